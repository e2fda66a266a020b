package core

// Task is a logical unit of work a model can be routed for (e.g.
// "hypothesis_generation", "review", "ranking"), distinct from AgentType:
// several agent types may share a task preference list.
type Task string

// ModelSelector maintains task/agent routing preferences and usage
// tracking, per spec.md §4.4.
type ModelSelector interface {
	SetTaskPreferences(task Task, models []string)
	SetRoutingRule(agent AgentType, model string)

	// SelectForTask filters task preferences by availability; when
	// budgetConscious is true, results are sorted ascending by input cost.
	SelectForTask(task Task, budgetConscious bool) ([]string, error)
	// SelectForAgent resolves a routing rule if present, else maps the
	// agent to its canonical task and defers to SelectForTask.
	SelectForAgent(agent AgentType) (string, error)
	// SelectWithFailover rejects models whose breaker is OPEN and returns
	// the first available candidate, preferring the given model if set.
	SelectWithFailover(task Task, preferred string) (string, error)

	// MarkAvailable/MarkUnavailable are invoked by the Health Monitor on
	// status transitions.
	MarkAvailable(model string)
	MarkUnavailable(model string)
	IsAvailable(model string) bool

	// RecordUsage accumulates a completed request's token/cost usage.
	RecordUsage(model string, inputTokens, outputTokens int, cost float64)
	Usage(model string) UsageRecord
	UsageReport() map[string]UsageRecord
}

// ModelSelectorFactory constructs a ModelSelector. Registered by
// internal/selector at init() time.
type ModelSelectorFactory func(breakerState func(model string) BreakerState) ModelSelector

var modelSelectorFactory ModelSelectorFactory

func RegisterModelSelectorFactory(f ModelSelectorFactory) {
	modelSelectorFactory = f
}

func NewModelSelector(breakerState func(model string) BreakerState) ModelSelector {
	if modelSelectorFactory == nil {
		panic("core: no model selector factory registered (import internal/selector)")
	}
	return modelSelectorFactory(breakerState)
}
