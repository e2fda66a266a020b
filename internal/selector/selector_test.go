package selector

import (
	"testing"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func TestSelectForTaskFiltersUnavailable(t *testing.T) {
	s := newSelector(func(model string) core.BreakerState { return core.BreakerClosed })
	s.SetTaskPreferences("hypothesis_generation", []string{"a", "b"})
	s.MarkUnavailable("a")

	models, err := s.SelectForTask("hypothesis_generation", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0] != "b" {
		t.Fatalf("expected only b, got %v", models)
	}
}

func TestBreakerOpenMakesModelUnavailable(t *testing.T) {
	open := map[string]bool{"broken": true}
	s := newSelector(func(model string) core.BreakerState {
		if open[model] {
			return core.BreakerOpen
		}
		return core.BreakerClosed
	})
	s.SetTaskPreferences("review", []string{"broken", "fine"})

	models, err := s.SelectForTask("review", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 1 || models[0] != "fine" {
		t.Fatalf("expected only fine, got %v", models)
	}
}

func TestSelectForAgentUsesRoutingRuleOverTaskDefault(t *testing.T) {
	s := newSelector(func(model string) core.BreakerState { return core.BreakerClosed })
	s.SetTaskPreferences("hypothesis_generation", []string{"default-model"})
	s.SetRoutingRule(core.AgentGeneration, "pinned-model")

	model, err := s.SelectForAgent(core.AgentGeneration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "pinned-model" {
		t.Fatalf("expected pinned-model, got %q", model)
	}
}

func TestRecordUsageAccumulates(t *testing.T) {
	s := newSelector(func(model string) core.BreakerState { return core.BreakerClosed })
	s.RecordUsage("gpt-4", 100, 50, 1.5)
	s.RecordUsage("gpt-4", 200, 100, 3.0)

	u := s.Usage("gpt-4")
	if u.InputTokens != 300 || u.OutputTokens != 150 || u.RequestCount != 2 || u.AccumulatedCost != 4.5 {
		t.Fatalf("unexpected accumulated usage: %+v", u)
	}
}

func TestSelectForTaskErrorsWhenNoneAvailable(t *testing.T) {
	s := newSelector(func(model string) core.BreakerState { return core.BreakerClosed })
	s.SetTaskPreferences("ranking", []string{"only"})
	s.MarkUnavailable("only")

	if _, err := s.SelectForTask("ranking", false); err == nil {
		t.Fatal("expected an error when no models are available")
	}
}
