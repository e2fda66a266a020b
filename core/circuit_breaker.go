// Circuit breaker public types, grounded on the teacher's
// core/circuit_breaker.go: same mutex-guarded three-state shape, adapted
// from a success-threshold half-open rule to the spec's admit-count
// half-open rule (spec.md §4.3, §8 invariant 5).
package core

import "time"

// BreakerState represents the state of a per-model circuit breaker.
type BreakerState int

const (
	// BreakerClosed - normal operation, calls pass through.
	BreakerClosed BreakerState = iota
	// BreakerOpen - calls rejected until the recovery timeout elapses.
	BreakerOpen
	// BreakerHalfOpen - a limited number of probe calls are admitted.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold" toml:"failure_threshold"`
	RecoveryTimeout  time.Duration `json:"recovery_timeout" toml:"recovery_timeout"`
	HalfOpenMaxCalls int           `json:"half_open_max_calls" toml:"half_open_max_calls"`
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenMaxCalls: 2,
	}
}

// BreakerMetrics snapshots a breaker's observable state, per the
// CircuitBreakerState record in spec.md §3.
type BreakerMetrics struct {
	State          BreakerState `json:"state"`
	FailureCount   int          `json:"failure_count"`
	LastFailureAt  time.Time    `json:"last_failure_at"`
	HalfOpenCalls  int          `json:"half_open_calls"`
}

// CircuitBreaker is the per-model reliability gate described in spec.md §4.3.
type CircuitBreaker interface {
	// Call executes fn under breaker protection, returning a GatewayError
	// with code circuit_open if the call is rejected without running fn.
	Call(fn func() error) error
	// State returns the current state, performing the OPEN->HALF_OPEN age
	// check inline as spec.md §4.3 requires.
	State() BreakerState
	Metrics() BreakerMetrics
	// Reset forces the breaker back to CLOSED.
	Reset()
	OnStateChange(fn func(from, to BreakerState))
}

// BreakerFactory constructs a CircuitBreaker from configuration. Registered
// by internal/reliability at init() time, following the teacher's
// factory-registration idiom (core/circuit_breaker.go, core/memory.go).
type BreakerFactory func(name string, cfg BreakerConfig) CircuitBreaker

var breakerFactory BreakerFactory

// RegisterBreakerFactory registers the concrete breaker implementation.
func RegisterBreakerFactory(f BreakerFactory) {
	breakerFactory = f
}

// NewCircuitBreaker builds a CircuitBreaker via the registered factory.
// Panics if no internal implementation has been wired in — callers should
// import internal/reliability for its registration side effect.
func NewCircuitBreaker(name string, cfg BreakerConfig) CircuitBreaker {
	if breakerFactory == nil {
		panic("core: no circuit breaker factory registered (import internal/reliability)")
	}
	return breakerFactory(name, cfg)
}
