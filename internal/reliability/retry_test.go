package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func TestClassifyBySubstring(t *testing.T) {
	e := newRetryEngine(core.DefaultRetryPolicy()).(*retryEngine)

	cases := map[string]core.ErrorCategory{
		"request timeout after 30s":       core.CategoryTimeout,
		"429 Too Many Requests":           core.CategoryRateLimit,
		"401 unauthorized":                core.CategoryAuthentication,
		"dial tcp: connection refused":    core.CategoryNetwork,
		"upstream 503 model_error":        core.CategoryModel,
		"completely unrelated gibberish":  core.CategoryUnknown,
	}
	for msg, want := range cases {
		got := e.Classify(errors.New(msg))
		if got != want {
			t.Errorf("Classify(%q) = %v, want %v", msg, got, want)
		}
	}
}

func TestExecuteWithRetrySucceedsEventually(t *testing.T) {
	e := newRetryEngine(core.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, BackoffFactor: 2, Jitter: false})

	attempts := 0
	result := e.ExecuteWithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("timeout talking to upstream")
		}
		return nil
	})

	if !result.Success {
		t.Fatalf("expected eventual success, got %+v", result)
	}
	if result.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", result.Attempts)
	}
}

func TestExecuteWithRetryStopsOnNonRecoverable(t *testing.T) {
	e := newRetryEngine(core.RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1, Jitter: false})

	attempts := 0
	result := e.ExecuteWithRetry(context.Background(), func() error {
		attempts++
		return errors.New("401 unauthorized")
	})

	if result.Success {
		t.Fatal("expected failure")
	}
	if attempts != 1 {
		t.Fatalf("expected no retries for non-recoverable error, got %d attempts", attempts)
	}
}
