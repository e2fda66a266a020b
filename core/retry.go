// Retry policy public types, grounded on the teacher's core/retry_logic.go
// exponential-backoff-with-jitter shape, adapted to the spec's substring
// error categorizer (spec.md §4.3, §7) instead of an exact-match error-code
// list.
package core

import (
	"context"
	"time"
)

// ErrorCategory is the result of classifying an error by substring rules,
// per spec.md §4.3.
type ErrorCategory string

const (
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryRateLimit      ErrorCategory = "rate_limit"
	CategoryInvalidRequest ErrorCategory = "invalid_request"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryNetwork        ErrorCategory = "network"
	CategoryModel          ErrorCategory = "model"
	CategoryUnknown        ErrorCategory = "unknown"
)

// recoverableCategories is the set {timeout, rate_limit, network, model,
// unknown} from spec.md §4.3.
var recoverableCategories = map[ErrorCategory]bool{
	CategoryTimeout:        true,
	CategoryRateLimit:      true,
	CategoryNetwork:        true,
	CategoryModel:          true,
	CategoryUnknown:        true,
	CategoryInvalidRequest: false,
	CategoryAuthentication: false,
}

// CategoryRecoverable reports whether a classified category is retryable.
func CategoryRecoverable(c ErrorCategory) bool {
	return recoverableCategories[c]
}

// RetryPolicy configures the retry engine.
type RetryPolicy struct {
	MaxRetries    int           `json:"max_retries" toml:"max_retries"`
	BaseDelay     time.Duration `json:"base_delay" toml:"base_delay"`
	MaxDelay      time.Duration `json:"max_delay" toml:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor" toml:"backoff_factor"`
	Jitter        bool          `json:"jitter" toml:"jitter"`
}

// DefaultRetryPolicy returns a sensible default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BaseDelay:     1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// RetryResult summarizes the outcome of ExecuteWithRetry.
type RetryResult struct {
	Success       bool
	Attempts      int
	LastError     error
	TotalDuration time.Duration
}

// RetryEngine classifies errors and retries recoverable ones with
// exponential backoff, per spec.md §4.3 and §7.
type RetryEngine interface {
	Classify(err error) ErrorCategory
	CalculateDelay(attempt int) time.Duration
	ExecuteWithRetry(ctx context.Context, op func() error) RetryResult
}

// RetryEngineFactory constructs a RetryEngine. Registered by
// internal/reliability at init() time.
type RetryEngineFactory func(policy RetryPolicy) RetryEngine

var retryEngineFactory RetryEngineFactory

func RegisterRetryEngineFactory(f RetryEngineFactory) {
	retryEngineFactory = f
}

func NewRetryEngine(policy RetryPolicy) RetryEngine {
	if retryEngineFactory == nil {
		panic("core: no retry engine factory registered (import internal/reliability)")
	}
	return retryEngineFactory(policy)
}

// FallbackAttempt records one hop of a fallback chain, per spec.md §4.3 S4.
type FallbackAttempt struct {
	From     string        `json:"from"`
	To       string        `json:"to"`
	Reason   string        `json:"reason"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
}

// FallbackResult is the outcome of a fallback-protected call.
type FallbackResult struct {
	SucceedingClient string
	Attempts         []FallbackAttempt
}
