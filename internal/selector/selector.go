// Package selector implements core.ModelSelector: task/agent routing
// preferences, availability tracking fed by the Health Monitor and breaker
// state, and usage accounting, grounded on the teacher's core/orchestrator.go
// routing-table shape (AgentNames/OrchestratorConfig) generalized from
// agent-to-orchestrator routing to agent/task-to-model routing.
package selector

import (
	"sort"
	"sync"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func init() {
	core.RegisterModelSelectorFactory(newSelector)
}

// agentTasks maps each AgentType to its canonical Task when no explicit
// routing rule overrides it, per spec.md §4.4.
var agentTasks = map[core.AgentType]core.Task{
	core.AgentGeneration: "hypothesis_generation",
	core.AgentReflection: "review",
	core.AgentRanking:    "ranking",
	core.AgentEvolution:  "evolution",
	core.AgentProximity:  "similarity",
	core.AgentMetaReview: "synthesis",
}

type modelSelector struct {
	mu              sync.RWMutex
	taskPreferences map[core.Task][]string
	routingRules    map[core.AgentType]string
	unavailable     map[string]bool
	usage           map[string]core.UsageRecord
	breakerState    func(model string) core.BreakerState
	costOf          map[string]float64 // per-input-token cost hint, set via RecordUsage observations
}

func newSelector(breakerState func(model string) core.BreakerState) core.ModelSelector {
	return &modelSelector{
		taskPreferences: make(map[core.Task][]string),
		routingRules:    make(map[core.AgentType]string),
		unavailable:     make(map[string]bool),
		usage:           make(map[string]core.UsageRecord),
		costOf:          make(map[string]float64),
		breakerState:    breakerState,
	}
}

func (s *modelSelector) SetTaskPreferences(task core.Task, models []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(models))
	copy(cp, models)
	s.taskPreferences[task] = cp
}

func (s *modelSelector) SetRoutingRule(agent core.AgentType, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routingRules[agent] = model
}

func (s *modelSelector) SelectForTask(task core.Task, budgetConscious bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := s.taskPreferences[task]
	var available []string
	for _, m := range candidates {
		if s.isAvailableLocked(m) {
			available = append(available, m)
		}
	}
	if len(available) == 0 {
		return nil, core.NewGatewayError(core.ErrorCodeModel, "no available models for task "+string(task))
	}
	if budgetConscious {
		sort.Slice(available, func(i, j int) bool {
			return s.costOf[available[i]] < s.costOf[available[j]]
		})
	}
	return available, nil
}

func (s *modelSelector) SelectForAgent(agent core.AgentType) (string, error) {
	s.mu.RLock()
	if m, ok := s.routingRules[agent]; ok {
		s.mu.RUnlock()
		if s.IsAvailable(m) {
			return m, nil
		}
		return s.SelectWithFailover(agentTasks[agent], m)
	}
	s.mu.RUnlock()

	models, err := s.SelectForTask(agentTasks[agent], false)
	if err != nil {
		return "", err
	}
	return models[0], nil
}

func (s *modelSelector) SelectWithFailover(task core.Task, preferred string) (string, error) {
	if preferred != "" && s.IsAvailable(preferred) {
		return preferred, nil
	}
	models, err := s.SelectForTask(task, false)
	if err != nil {
		return "", err
	}
	return models[0], nil
}

func (s *modelSelector) MarkAvailable(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unavailable, model)
}

func (s *modelSelector) MarkUnavailable(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable[model] = true
}

func (s *modelSelector) IsAvailable(model string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAvailableLocked(model)
}

func (s *modelSelector) isAvailableLocked(model string) bool {
	if s.unavailable[model] {
		return false
	}
	if s.breakerState != nil && s.breakerState(model) == core.BreakerOpen {
		return false
	}
	return true
}

func (s *modelSelector) RecordUsage(model string, inputTokens, outputTokens int, cost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usage[model]
	u.InputTokens += inputTokens
	u.OutputTokens += outputTokens
	u.RequestCount++
	u.AccumulatedCost += cost
	s.usage[model] = u
	if inputTokens > 0 {
		s.costOf[model] = cost / float64(inputTokens)
	}
}

func (s *modelSelector) Usage(model string) core.UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[model]
}

func (s *modelSelector) UsageReport() map[string]core.UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]core.UsageRecord, len(s.usage))
	for k, v := range s.usage {
		out[k] = v
	}
	return out
}
