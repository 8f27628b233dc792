package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"recipebook/internal/ratelimit"
)

func TestLoginRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test:login", 3, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	// newTestEnv logs in twice, consuming two of the three attempts.
	env := newTestEnv(t, Config{LoginLimiter: limiter})

	body := map[string]string{"email": "user@example.com", "password": "user-pass"}
	resp, _ := env.do(t, http.MethodPost, "/api/auth/login", "", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("third login expected 200, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", "", body)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("fourth login expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestSignupRateLimitFailsClosed(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test:signup", 5, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	env := newTestEnv(t, Config{SignupLimiter: limiter})
	redis.Close()

	resp, _ := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Blocked", "email": "blocked@example.com", "password": "blocked-pass",
	})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("signup with redis down expected 429, got %d", resp.StatusCode)
	}
}

func TestSignupLocalRateLimit(t *testing.T) {
	limiter, err := ratelimit.NewLocalLimiter(1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	env := newTestEnv(t, Config{SignupLimiter: limiter})

	resp, _ := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "First", "email": "first@example.com", "password": "first-pass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first signup expected 201, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Second", "email": "second@example.com", "password": "second-pass",
	})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second signup expected 429, got %d", resp.StatusCode)
	}
}
