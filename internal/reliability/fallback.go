package reliability

import (
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

// ExecuteFallback walks a ranked model list, invoking call for each
// candidate until one succeeds, recording every hop per spec.md §4.3 S4.
// It is a plain helper rather than a registered core factory: the Gateway
// composes it directly with its own retry/breaker-wrapped call.
func ExecuteFallback(order []string, call func(model string) error) core.FallbackResult {
	var attempts []core.FallbackAttempt
	for i, model := range order {
		start := time.Now()
		err := call(model)
		attempt := core.FallbackAttempt{
			To:       model,
			Success:  err == nil,
			Duration: time.Since(start),
		}
		if i > 0 {
			attempt.From = order[i-1]
		}
		if err != nil {
			attempt.Reason = err.Error()
		}
		attempts = append(attempts, attempt)
		if err == nil {
			return core.FallbackResult{SucceedingClient: model, Attempts: attempts}
		}
	}
	return core.FallbackResult{Attempts: attempts}
}
