package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file, relative to the working directory.
const ConfigPath = "config.yaml"

// DotEnvPath is the optional env file read before config.yaml.
const DotEnvPath = ".env"

// MinJWTSecretLength matches the session store's HS256 requirement.
const MinJWTSecretLength = 32

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                     string   `yaml:"port"`
	LogLevel                 string   `yaml:"logLevel"`
	JWTSecret                string   `yaml:"jwtSecret"`
	JWTIssuer                string   `yaml:"jwtIssuer"`
	SessionTTL               string   `yaml:"sessionTTL"`
	RedisAddr                string   `yaml:"redisAddr"`
	RedisPassword            string   `yaml:"redisPassword"`
	SignupRateLimitPerMinute int      `yaml:"signupRateLimitPerMinute"`
	LoginRateLimitPerMinute  int      `yaml:"loginRateLimitPerMinute"`
	AdminEmail               string   `yaml:"adminEmail"`
	AdminPassword            string   `yaml:"adminPassword"`
	AdminName                string   `yaml:"adminName"`
	SeedDemo                 bool     `yaml:"seedDemo"`
	ImageBaseURL             string   `yaml:"imageBaseURL"`
	TrustedProxies           []string `yaml:"trustedProxies"`
	AllowedOrigins           []string `yaml:"allowedOrigins"`
}

// Path returns the config path, honouring RECIPES_CONFIG.
func Path() string {
	if v := strings.TrimSpace(os.Getenv("RECIPES_CONFIG")); v != "" {
		return v
	}
	return ConfigPath
}

// LoadDotEnv exports the variables in path into the process environment.
// Variables already set win over the file, and a missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DotEnvPath
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads config from path (defaults to config.yaml). A missing file is
// not an error so the service can be configured from the environment alone.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	// Override with environment variables
	if v := os.Getenv("RECIPES_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("RECIPES_SESSION_TTL"); v != "" {
		cfg.SessionTTL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("RECIPES_SIGNUP_RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: RECIPES_SIGNUP_RATE_LIMIT_PER_MINUTE: %w", err)
		}
		cfg.SignupRateLimitPerMinute = n
	}
	if v := os.Getenv("RECIPES_LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: RECIPES_LOGIN_RATE_LIMIT_PER_MINUTE: %w", err)
		}
		cfg.LoginRateLimitPerMinute = n
	}
	if v := os.Getenv("RECIPES_ADMIN_EMAIL"); v != "" {
		cfg.AdminEmail = v
	}
	if v := os.Getenv("RECIPES_ADMIN_PASSWORD"); v != "" {
		cfg.AdminPassword = v
	}
	if v := os.Getenv("RECIPES_ADMIN_NAME"); v != "" {
		cfg.AdminName = v
	}
	if v := os.Getenv("RECIPES_IMAGE_BASE_URL"); v != "" {
		cfg.ImageBaseURL = v
	}
	if v := os.Getenv("RECIPES_TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitList(v)
	}
	if v := os.Getenv("RECIPES_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("RECIPES_SEED_DEMO"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: RECIPES_SEED_DEMO: %w", err)
		}
		cfg.SeedDemo = b
	}
	return nil
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("config: port is required (set in config.yaml or RECIPES_PORT)")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: jwtSecret is required (set JWT_SECRET)")
	}
	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("config: jwtSecret must be at least %d bytes", MinJWTSecretLength)
	}
	if cfg.SignupRateLimitPerMinute < 0 || cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return errors.New("config: adminEmail and adminPassword must be set together")
	}
	if cfg.SeedDemo && cfg.AdminEmail == "" {
		return errors.New("config: seedDemo requires an admin account to author the recipes")
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	return nil
}

// ParseSessionTTL parses optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("invalid sessionTTL duration: %s is negative", ttlStr)
	}
	return dur, nil
}

// RateLimitEnabled reports whether any limiter should be built.
func (c FileConfig) RateLimitEnabled() bool {
	return c.SignupRateLimitPerMinute > 0 || c.LoginRateLimitPerMinute > 0
}

// SharedRateLimit reports whether limiter state lives in Redis. Otherwise
// each process keeps its own counters.
func (c FileConfig) SharedRateLimit() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
