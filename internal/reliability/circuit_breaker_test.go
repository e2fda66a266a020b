package reliability

import (
	"errors"
	"testing"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := newBreaker("test-model", core.BreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  50 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	})

	for i := 0; i < 3; i++ {
		if cb.State() != core.BreakerClosed {
			t.Fatalf("expected CLOSED, got %v", cb.State())
		}
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		if err := cb.Call(func() error { return errors.New("boom") }); err == nil {
			t.Fatal("expected error")
		}
	}

	if cb.State() != core.BreakerOpen {
		t.Fatalf("expected OPEN after threshold, got %v", cb.State())
	}

	err := cb.Call(func() error { return nil })
	if err == nil {
		t.Fatal("expected rejection while open")
	}
	ge, ok := err.(*core.GatewayError)
	if !ok || ge.Code != core.ErrorCodeCircuitOpen {
		t.Fatalf("expected circuit_open error, got %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if cb.State() != core.BreakerHalfOpen {
		t.Fatalf("expected HALF_OPEN after recovery timeout, got %v", cb.State())
	}
}

func TestBreakerHalfOpenAdmitCountCloses(t *testing.T) {
	cb := newBreaker("test-model", core.BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  10 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	})

	_ = cb.Call(func() error { return errors.New("boom") })
	if cb.State() != core.BreakerOpen {
		t.Fatalf("expected OPEN, got %v", cb.State())
	}
	time.Sleep(15 * time.Millisecond)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected admit in half-open, got %v", err)
	}
	if cb.State() != core.BreakerHalfOpen {
		t.Fatalf("expected still HALF_OPEN after 1 of 2 admits, got %v", cb.State())
	}

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected second admit, got %v", err)
	}
	if cb.State() != core.BreakerClosed {
		t.Fatalf("expected CLOSED after half_open_max_calls admits, got %v", cb.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := newBreaker("test-model", core.BreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  10 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	})
	_ = cb.Call(func() error { return errors.New("boom") })
	time.Sleep(15 * time.Millisecond)
	_ = cb.State() // trigger transition to half-open

	if err := cb.Call(func() error { return errors.New("still broken") }); err == nil {
		t.Fatal("expected error from fn")
	}
	if cb.State() != core.BreakerOpen {
		t.Fatalf("expected re-OPEN on half-open failure, got %v", cb.State())
	}
}

func TestBreakerReset(t *testing.T) {
	cb := newBreaker("test-model", core.DefaultBreakerConfig())
	for i := 0; i < 10; i++ {
		_ = cb.Call(func() error { return errors.New("boom") })
	}
	cb.Reset()
	if cb.State() != core.BreakerClosed {
		t.Fatalf("expected CLOSED after Reset, got %v", cb.State())
	}
	if cb.Metrics().FailureCount != 0 {
		t.Fatalf("expected failure count reset to 0, got %d", cb.Metrics().FailureCount)
	}
}
