package reliability

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func init() {
	core.RegisterRetryEngineFactory(newRetryEngine)
}

// categorySubstrings classifies an error's message by substring, grounded
// on the teacher's internal/core/error_handling/retry_logic.go
// containsErrorCode matcher, generalized from an exact error-code list to
// the spec's free-text category substrings (spec.md §4.3).
var categorySubstrings = []struct {
	category core.ErrorCategory
	needles  []string
}{
	{core.CategoryTimeout, []string{"timeout", "deadline exceeded", "context deadline"}},
	{core.CategoryRateLimit, []string{"rate limit", "rate_limit", "429", "too many requests"}},
	{core.CategoryInvalidRequest, []string{"invalid_request", "bad request", "400"}},
	{core.CategoryAuthentication, []string{"authentication", "unauthorized", "401", "403", "forbidden"}},
	{core.CategoryNetwork, []string{"connection refused", "network", "no such host", "eof", "broken pipe"}},
	{core.CategoryModel, []string{"model_error", "model error", "500", "502", "503"}},
}

// retryEngine is grounded on the teacher's
// internal/core/error_handling/retry_logic.go RetrierImplementation:
// attempt loop, error history, context-cancellation-aware backoff wait.
type retryEngine struct {
	policy core.RetryPolicy
}

func newRetryEngine(policy core.RetryPolicy) core.RetryEngine {
	return &retryEngine{policy: policy}
}

func (e *retryEngine) Classify(err error) core.ErrorCategory {
	if err == nil {
		return core.CategoryUnknown
	}
	msg := strings.ToLower(err.Error())
	if ge, ok := err.(*core.GatewayError); ok {
		switch ge.Code {
		case core.ErrorCodeTimeout:
			return core.CategoryTimeout
		case core.ErrorCodeRateLimited:
			return core.CategoryRateLimit
		case core.ErrorCodeInvalidRequest:
			return core.CategoryInvalidRequest
		case core.ErrorCodeAuthentication:
			return core.CategoryAuthentication
		case core.ErrorCodeNetwork:
			return core.CategoryNetwork
		case core.ErrorCodeModel:
			return core.CategoryModel
		}
	}
	for _, rule := range categorySubstrings {
		for _, needle := range rule.needles {
			if strings.Contains(msg, needle) {
				return rule.category
			}
		}
	}
	return core.CategoryUnknown
}

func (e *retryEngine) CalculateDelay(attempt int) time.Duration {
	delay := float64(e.policy.BaseDelay) * pow(e.policy.BackoffFactor, attempt)
	if time.Duration(delay) > e.policy.MaxDelay {
		delay = float64(e.policy.MaxDelay)
	}
	if e.policy.Jitter {
		delay *= 0.9 + 0.2*rand.Float64()
	}
	return time.Duration(delay)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

func (e *retryEngine) ExecuteWithRetry(ctx context.Context, op func() error) core.RetryResult {
	start := time.Now()
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		attempts = attempt + 1
		lastErr = op()
		if lastErr == nil {
			return core.RetryResult{Success: true, Attempts: attempt + 1, TotalDuration: time.Since(start)}
		}
		if !core.CategoryRecoverable(e.Classify(lastErr)) {
			break
		}
		if attempt == e.policy.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return core.RetryResult{Success: false, Attempts: attempt + 1, LastError: ctx.Err(), TotalDuration: time.Since(start)}
		case <-time.After(e.CalculateDelay(attempt)):
		}
	}
	return core.RetryResult{Success: false, Attempts: attempts, LastError: lastErr, TotalDuration: time.Since(start)}
}
