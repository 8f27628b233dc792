package ratelimit

import "context"

// Limiter admits or rejects one attempt for key.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
}

var (
	_ Limiter = (*FixedWindowLimiter)(nil)
	_ Limiter = (*LocalLimiter)(nil)
)
