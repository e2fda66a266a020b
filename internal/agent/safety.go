package agent

import (
	"sync"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

// memSafetyLogger is an append-only, in-process audit trail that
// PerformSafetyCheck, EvaluateHypothesis and the Generation agent record
// into, per spec.md §4.8. It is deliberately independent of
// Context Memory: safety history must remain readable even if a hypothesis's
// iteration has since been archived or garbage-collected.
type memSafetyLogger struct {
	mu      sync.Mutex
	history map[string][]core.Review
}

// NewSafetyLogger constructs the in-process SafetyLogger shared by the
// Reflection agent's EvaluateHypothesis and PerformSafetyCheck paths.
func NewSafetyLogger() core.SafetyLogger {
	return &memSafetyLogger{history: map[string][]core.Review{}}
}

func (l *memSafetyLogger) Record(hypothesisID string, flags []string, verdict core.ReviewVerdict) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history[hypothesisID] = append(l.history[hypothesisID], core.Review{
		HypothesisID: hypothesisID,
		Verdict:      verdict,
		SafetyFlags:  flags,
		CreatedAt:    time.Now().UTC(),
	})
	return nil
}

func (l *memSafetyLogger) History(hypothesisID string) ([]core.Review, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Review, len(l.history[hypothesisID]))
	copy(out, l.history[hypothesisID])
	return out, nil
}
