package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jplfaria/cogniscient-runtime/core"
)

// generationMethods is the four strategies of spec.md §4.8, supplemented
// from original_source/src/llm's method-keyed strategy dispatch per
// SPEC_FULL.md §4.8.
var generationMethods = []core.GenerationMethod{
	core.MethodLiteratureBased,
	core.MethodDebate,
	core.MethodAssumptions,
	core.MethodExpansion,
}

// generationAgent tracks a running per-strategy success rate (initialized
// at 0.5), per SPEC_FULL.md §4.8. The rates are only reported; each
// Generate* method fixes its own strategy.
type generationAgent struct {
	envelope
	safety core.SafetyLogger

	mu              sync.Mutex
	attempts        map[core.GenerationMethod]int
	successes       map[core.GenerationMethod]int
	generationCount int
}

func newGenerationAgent(gw core.Gateway, mem core.ContextMemory, cfg core.AgentEnvelopeConfig, safety core.SafetyLogger) core.GenerationAgent {
	a := &generationAgent{
		envelope:  envelope{gw: gw, mem: mem, cfg: cfg, kind: core.AgentGeneration},
		safety:    safety,
		attempts:  map[core.GenerationMethod]int{},
		successes: map[core.GenerationMethod]int{},
	}
	for _, m := range generationMethods {
		a.attempts[m] = 0
		a.successes[m] = 0
	}
	return a
}

func (a *generationAgent) recordOutcome(method core.GenerationMethod, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts[method]++
	if ok {
		a.successes[method]++
	}
	a.generationCount++
}

// MethodSuccessRates reports each strategy's success/attempt ratio,
// defaulting to 0.5 (no signal yet) per SPEC_FULL.md §4.8.
func (a *generationAgent) MethodSuccessRates() map[core.GenerationMethod]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[core.GenerationMethod]float64, len(generationMethods))
	for _, m := range generationMethods {
		if a.attempts[m] == 0 {
			out[m] = 0.5
			continue
		}
		out[m] = float64(a.successes[m]) / float64(a.attempts[m])
	}
	return out
}

func (a *generationAgent) generate(ctx context.Context, method core.GenerationMethod, researchGoal string, prompt string) (core.AgentResult, error) {
	req := a.newRequest(core.RequestGenerate, prompt, map[string]any{"method": string(method)})

	var parsed struct {
		Summary         string   `json:"summary"`
		FullDescription string   `json:"full_description"`
		Assumptions     []string `json:"assumptions"`
		Confidence      float64  `json:"confidence"`
	}
	_, raw, err := a.call(ctx, req, &parsed)
	if err != nil {
		a.recordOutcome(method, false)
		return core.AgentResult{}, err
	}
	if parsed.Summary == "" {
		parsed.Summary = raw
	}

	hyp := core.Hypothesis{
		ID:              uuid.NewString(),
		ResearchGoal:    researchGoal,
		Summary:         parsed.Summary,
		FullDescription: parsed.FullDescription,
		Method:          method,
		Assumptions:     parsed.Assumptions,
		Novel:           true,
		CreatedAt:       time.Now().UTC(),
	}

	storage := a.persist(req.RequestID, hyp)
	a.recordOutcome(method, storage.Success)
	if a.safety != nil {
		_ = a.safety.Record(hyp.ID, nil, core.VerdictApproved)
	}

	return core.AgentResult{
		TaskID:     req.RequestID,
		AgentType:  core.AgentGeneration,
		Artifact:   hyp,
		Confidence: parsed.Confidence,
	}, nil
}

func (a *generationAgent) GenerateLiteratureBased(ctx context.Context, researchGoal string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Generate a novel research hypothesis grounded in existing literature for the goal: %s", researchGoal)
	return a.generate(ctx, core.MethodLiteratureBased, researchGoal, prompt)
}

func (a *generationAgent) GenerateDebate(ctx context.Context, researchGoal string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Simulate a scientific debate among experts and distill a hypothesis for the goal: %s", researchGoal)
	return a.generate(ctx, core.MethodDebate, researchGoal, prompt)
}

func (a *generationAgent) GenerateFromAssumptions(ctx context.Context, researchGoal string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Identify testable assumptions and derive a hypothesis for the goal: %s", researchGoal)
	return a.generate(ctx, core.MethodAssumptions, researchGoal, prompt)
}

func (a *generationAgent) GenerateExpansion(ctx context.Context, parentHypothesisID string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Expand on the implications of hypothesis %s and propose a related hypothesis", parentHypothesisID)
	return a.generate(ctx, core.MethodExpansion, parentHypothesisID, prompt)
}
