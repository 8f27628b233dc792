package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"recipebook/internal/ratelimit"
	"recipebook/internal/util"
	"recipebook/pkg/store"
	"recipebook/services/recipes/internal/app"
	"recipebook/services/recipes/internal/config"
	"recipebook/services/recipes/internal/server"
)

func main() {
	if err := config.LoadDotEnv(config.DotEnvPath); err != nil {
		log.Fatalf("failed to load env file: %v", err)
	}
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, sessionTTL, store.JWTOptions{Issuer: cfg.JWTIssuer})
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}
	appCore, err := app.New(app.Config{
		Store:    store.NewMemoryStore(),
		Sessions: sessions,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	if err := seed(appCore, cfg); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("invalid trustedProxies: %v", err)
	}
	signupLimiter, loginLimiter, redisClient, err := newLimiters(cfg)
	if err != nil {
		log.Fatalf("failed to init rate limiters: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		SignupLimiter:  signupLimiter,
		LoginLimiter:   loginLimiter,
		TrustedProxies: trusted,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("recipes server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down recipes server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func seed(a *app.App, cfg config.FileConfig) error {
	if cfg.AdminEmail == "" {
		slog.Warn("no admin configured; recipes cannot be created until one is seeded")
		return nil
	}
	admin, created, err := a.SeedAdmin(cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	slog.Info("admin account ready", "user_id", admin.ID, "created", created)
	if !cfg.SeedDemo {
		return nil
	}
	n, err := a.SeedDemoRecipes(admin.ID, cfg.ImageBaseURL)
	if err != nil {
		return fmt.Errorf("seed demo recipes: %w", err)
	}
	slog.Info("demo recipes seeded", "count", n)
	return nil
}

// newLimiters builds the signup and login limiters. With redisAddr they
// share one Redis client; without it each process counts on its own.
func newLimiters(cfg config.FileConfig) (ratelimit.Limiter, ratelimit.Limiter, *redis.Client, error) {
	if !cfg.RateLimitEnabled() {
		return nil, nil, nil, nil
	}
	if !cfg.SharedRateLimit() {
		slog.Warn("redisAddr not set; rate limits are tracked per process")
		var signup, login ratelimit.Limiter
		if cfg.SignupRateLimitPerMinute > 0 {
			l, err := ratelimit.NewLocalLimiter(cfg.SignupRateLimitPerMinute, time.Minute)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("init signup limiter: %w", err)
			}
			signup = l
		}
		if cfg.LoginRateLimitPerMinute > 0 {
			l, err := ratelimit.NewLocalLimiter(cfg.LoginRateLimitPerMinute, time.Minute)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("init login limiter: %w", err)
			}
			login = l
		}
		return signup, login, nil, nil
	}

	client, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, nil, err
	}
	var signup, login ratelimit.Limiter
	if cfg.SignupRateLimitPerMinute > 0 {
		l, err := ratelimit.NewFixedWindowLimiter(client, "recipebook:ratelimit:signup", cfg.SignupRateLimitPerMinute, time.Minute)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("init signup limiter: %w", err)
		}
		signup = l
	}
	if cfg.LoginRateLimitPerMinute > 0 {
		l, err := ratelimit.NewFixedWindowLimiter(client, "recipebook:ratelimit:login", cfg.LoginRateLimitPerMinute, time.Minute)
		if err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("init login limiter: %w", err)
		}
		login = l
	}
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unreachable; rate-limited endpoints will reject requests until it recovers", "err", err)
	}
	return signup, login, client, nil
}
