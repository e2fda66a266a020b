package core

import "context"

// RateLimiterKind selects between the two interchangeable implementations
// described in spec.md §4.3.
type RateLimiterKind string

const (
	RateLimiterTokenBucket   RateLimiterKind = "token_bucket"
	RateLimiterSlidingWindow RateLimiterKind = "sliding_window"
)

// RateLimiterConfig configures either rate limiter implementation.
type RateLimiterConfig struct {
	Kind               RateLimiterKind `toml:"kind"`
	RequestsPerMinute  int             `toml:"requests_per_minute"`
	BurstSize          int             `toml:"burst_size"`           // token bucket only
	WindowSizeSeconds  int             `toml:"window_size_seconds"`  // sliding window only
	HourlyLimit        int             `toml:"hourly_limit"`         // sliding window, optional
	EstimatedTokenCap  int             `toml:"estimated_token_cap"`  // token bucket, optional token-estimate bucket
	ConcurrentRequests int             `toml:"concurrent_requests"`
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Kind:               RateLimiterTokenBucket,
		RequestsPerMinute:  60,
		BurstSize:          10,
		WindowSizeSeconds:  60,
		ConcurrentRequests: 8,
	}
}

// ConcurrentGuard is a scoped resource-acquisition primitive: Release must
// be called exactly once, on every exit path, to free the concurrency slot.
type ConcurrentGuard interface {
	Release()
}

// RateLimiter is the per-model admission control described in spec.md §4.3.
type RateLimiter interface {
	// Acquire attempts to admit one request. If raise is true and the
	// request is refused, Acquire returns a GatewayError with code
	// rate_limit_exceeded instead of (false, nil).
	Acquire(ctx context.Context, raise bool) (bool, error)
	// AcquireForRequest additionally reserves estimatedTokens from the
	// token-estimate bucket, if configured; rolls the request-count token
	// back if the token-estimate acquire fails.
	AcquireForRequest(ctx context.Context, req Request, estimatedTokens int) (bool, error)
	// ConcurrentRequest acquires a concurrency slot, returning a guard to
	// release it. Returns an error with code rate_limit_exceeded if the
	// semaphore is exhausted.
	ConcurrentRequest(ctx context.Context) (ConcurrentGuard, error)
}

// RateLimiterFactory constructs a RateLimiter. Registered by
// internal/reliability at init() time.
type RateLimiterFactory func(cfg RateLimiterConfig) RateLimiter

var rateLimiterFactory RateLimiterFactory

func RegisterRateLimiterFactory(f RateLimiterFactory) {
	rateLimiterFactory = f
}

func NewRateLimiter(cfg RateLimiterConfig) RateLimiter {
	if rateLimiterFactory == nil {
		panic("core: no rate limiter factory registered (import internal/reliability)")
	}
	return rateLimiterFactory(cfg)
}
