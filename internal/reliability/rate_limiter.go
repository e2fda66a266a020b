package reliability

import (
	"context"
	"sync"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func init() {
	core.RegisterRateLimiterFactory(newRateLimiter)
}

func newRateLimiter(cfg core.RateLimiterConfig) core.RateLimiter {
	sem := newSemaphore(cfg.ConcurrentRequests)
	switch cfg.Kind {
	case core.RateLimiterSlidingWindow:
		return &slidingWindowLimiter{cfg: cfg, sem: sem}
	default:
		return newTokenBucketLimiter(cfg, sem)
	}
}

// semaphore is the concurrency guard shared by both limiter kinds.
type semaphore struct {
	slots chan struct{}
}

func newSemaphore(n int) *semaphore {
	if n <= 0 {
		n = 1
	}
	return &semaphore{slots: make(chan struct{}, n)}
}

type semaphoreGuard struct {
	sem *semaphore
	once sync.Once
}

func (g *semaphoreGuard) Release() {
	g.once.Do(func() {
		<-g.sem.slots
	})
}

func (s *semaphore) acquire(ctx context.Context) (core.ConcurrentGuard, error) {
	select {
	case s.slots <- struct{}{}:
		return &semaphoreGuard{sem: s}, nil
	default:
		return nil, core.NewGatewayError(core.ErrorCodeRateLimited, "no concurrency slots available")
	}
}

// tokenBucketLimiter implements the token-bucket kind of spec.md §4.3, plus
// an optional second bucket over estimated output tokens.
type tokenBucketLimiter struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	tokenEstimateCap float64
	tokenEstimate    float64

	sem *semaphore
}

func newTokenBucketLimiter(cfg core.RateLimiterConfig, sem *semaphore) *tokenBucketLimiter {
	capacity := float64(cfg.BurstSize)
	if capacity <= 0 {
		capacity = float64(cfg.RequestsPerMinute)
	}
	return &tokenBucketLimiter{
		capacity:         capacity,
		tokens:           capacity,
		refillRate:       float64(cfg.RequestsPerMinute) / 60.0,
		lastRefill:       time.Now(),
		tokenEstimateCap: float64(cfg.EstimatedTokenCap),
		tokenEstimate:    float64(cfg.EstimatedTokenCap),
		sem:              sem,
	}
}

func (l *tokenBucketLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.lastRefill = now
	l.tokens += elapsed * l.refillRate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
}

func (l *tokenBucketLimiter) Acquire(ctx context.Context, raise bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	if l.tokens < 1 {
		if raise {
			return false, core.NewGatewayError(core.ErrorCodeRateLimited, "request rate limit exceeded")
		}
		return false, nil
	}
	l.tokens--
	return true, nil
}

func (l *tokenBucketLimiter) AcquireForRequest(ctx context.Context, req core.Request, estimatedTokens int) (bool, error) {
	ok, err := l.Acquire(ctx, true)
	if !ok {
		return false, err
	}
	if l.tokenEstimateCap <= 0 {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokenEstimate < float64(estimatedTokens) {
		l.tokens++ // roll back the request-count token
		return false, core.NewGatewayError(core.ErrorCodeRateLimited, "estimated token budget exceeded")
	}
	l.tokenEstimate -= float64(estimatedTokens)
	return true, nil
}

func (l *tokenBucketLimiter) ConcurrentRequest(ctx context.Context) (core.ConcurrentGuard, error) {
	return l.sem.acquire(ctx)
}

// slidingWindowLimiter implements the sliding-window kind of spec.md §4.3,
// tracking per-request timestamps within the configured window plus an
// optional hourly ceiling.
type slidingWindowLimiter struct {
	mu        sync.Mutex
	cfg       core.RateLimiterConfig
	window    []time.Time
	hourStamp []time.Time
	sem       *semaphore
}

func (l *slidingWindowLimiter) prune(now time.Time) {
	windowCutoff := now.Add(-time.Duration(l.cfg.WindowSizeSeconds) * time.Second)
	i := 0
	for ; i < len(l.window); i++ {
		if l.window[i].After(windowCutoff) {
			break
		}
	}
	l.window = l.window[i:]

	if l.cfg.HourlyLimit > 0 {
		hourCutoff := now.Add(-1 * time.Hour)
		j := 0
		for ; j < len(l.hourStamp); j++ {
			if l.hourStamp[j].After(hourCutoff) {
				break
			}
		}
		l.hourStamp = l.hourStamp[j:]
	}
}

func (l *slidingWindowLimiter) Acquire(ctx context.Context, raise bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.prune(now)

	limit := l.cfg.RequestsPerMinute * l.cfg.WindowSizeSeconds / 60
	if limit <= 0 {
		limit = l.cfg.RequestsPerMinute
	}
	if len(l.window) >= limit {
		if raise {
			return false, core.NewGatewayError(core.ErrorCodeRateLimited, "sliding window rate limit exceeded")
		}
		return false, nil
	}
	if l.cfg.HourlyLimit > 0 && len(l.hourStamp) >= l.cfg.HourlyLimit {
		if raise {
			return false, core.NewGatewayError(core.ErrorCodeRateLimited, "hourly rate limit exceeded")
		}
		return false, nil
	}

	l.window = append(l.window, now)
	if l.cfg.HourlyLimit > 0 {
		l.hourStamp = append(l.hourStamp, now)
	}
	return true, nil
}

func (l *slidingWindowLimiter) AcquireForRequest(ctx context.Context, req core.Request, estimatedTokens int) (bool, error) {
	return l.Acquire(ctx, true)
}

func (l *slidingWindowLimiter) ConcurrentRequest(ctx context.Context) (core.ConcurrentGuard, error) {
	return l.sem.acquire(ctx)
}
