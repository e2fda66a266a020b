// Package reliability implements the per-model circuit breaker, rate
// limiter, retry engine, request queue, and fallback chain of the co
// scientist runtime's reliability envelope. It registers each as a core
// factory at init() time, following the teacher's
// internal/core/error_handling package split.
package reliability

import (
	"sync"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func init() {
	core.RegisterBreakerFactory(newBreaker)
}

// breaker is grounded on the teacher's
// internal/core/error_handling/circuit_breaker.go CircuitBreakerImplementation:
// the same mutex-guarded three-state machine, adapted to the spec's
// admit-count half-open rule (half_open_max_calls successful admits close
// the breaker, rather than a distinct success_threshold).
type breaker struct {
	name string
	cfg  core.BreakerConfig

	mu            sync.Mutex
	state         core.BreakerState
	failureCount  int
	lastFailureAt time.Time
	halfOpenCalls int

	onChange func(from, to core.BreakerState)
}

func newBreaker(name string, cfg core.BreakerConfig) core.CircuitBreaker {
	return &breaker{name: name, cfg: cfg, state: core.BreakerClosed}
}

func (b *breaker) Call(fn func() error) error {
	if !b.admit() {
		return core.NewGatewayError(core.ErrorCodeCircuitOpen, "circuit breaker open for "+b.name)
	}
	err := fn()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// admit performs the OPEN->HALF_OPEN age check and decides whether this call
// may proceed, per spec.md §4.3.
func (b *breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case core.BreakerClosed:
		return true
	case core.BreakerOpen:
		if time.Since(b.lastFailureAt) >= b.cfg.RecoveryTimeout {
			b.setState(core.BreakerHalfOpen)
			b.halfOpenCalls = 0
			return true
		}
		return false
	case core.BreakerHalfOpen:
		return b.halfOpenCalls < b.cfg.HalfOpenMaxCalls
	default:
		return false
	}
}

func (b *breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case core.BreakerHalfOpen:
		b.halfOpenCalls++
		if b.halfOpenCalls >= b.cfg.HalfOpenMaxCalls {
			b.setState(core.BreakerClosed)
			b.failureCount = 0
		}
	case core.BreakerClosed:
		b.failureCount = 0
	}
}

func (b *breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailureAt = time.Now()

	switch b.state {
	case core.BreakerHalfOpen:
		b.setState(core.BreakerOpen)
	case core.BreakerClosed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.setState(core.BreakerOpen)
		}
	}
}

func (b *breaker) setState(s core.BreakerState) {
	if s == b.state {
		return
	}
	from := b.state
	b.state = s
	if b.onChange != nil {
		cb := b.onChange
		go cb(from, s)
	}
}

func (b *breaker) State() core.BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == core.BreakerOpen && time.Since(b.lastFailureAt) >= b.cfg.RecoveryTimeout {
		b.setState(core.BreakerHalfOpen)
		b.halfOpenCalls = 0
	}
	return b.state
}

func (b *breaker) Metrics() core.BreakerMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return core.BreakerMetrics{
		State:         b.state,
		FailureCount:  b.failureCount,
		LastFailureAt: b.lastFailureAt,
		HalfOpenCalls: b.halfOpenCalls,
	}
}

func (b *breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(core.BreakerClosed)
	b.failureCount = 0
	b.halfOpenCalls = 0
}

func (b *breaker) OnStateChange(fn func(from, to core.BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}
