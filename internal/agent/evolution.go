package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jplfaria/cogniscient-runtime/core"
)

type evolutionAgent struct {
	envelope
}

func newEvolutionAgent(gw core.Gateway, mem core.ContextMemory, cfg core.AgentEnvelopeConfig) core.EvolutionAgent {
	return &evolutionAgent{envelope: envelope{gw: gw, mem: mem, cfg: cfg, kind: core.AgentEvolution}}
}

func (a *evolutionAgent) EnhanceHypothesis(ctx context.Context, hypothesisID string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Refine hypothesis %s: address its weakest assumption and sharpen its testability", hypothesisID)
	req := a.newRequest(core.RequestGenerate, prompt, map[string]any{"parent_id": hypothesisID})

	var parsed struct {
		Summary         string   `json:"summary"`
		FullDescription string   `json:"full_description"`
		Assumptions     []string `json:"assumptions"`
		ChangeLog       string   `json:"change_log"`
		Confidence      float64  `json:"confidence"`
	}
	_, raw, err := a.call(ctx, req, &parsed)
	if err != nil {
		return core.AgentResult{}, err
	}
	if parsed.Summary == "" {
		parsed.Summary = raw
	}
	if parsed.ChangeLog == "" {
		parsed.ChangeLog = "refined via evolution agent"
	}

	evolved := core.EvolvedHypothesis{
		ParentID: hypothesisID,
		Hypothesis: core.Hypothesis{
			ID:              uuid.NewString(),
			Summary:         parsed.Summary,
			FullDescription: parsed.FullDescription,
			Method:          core.MethodExpansion,
			Assumptions:     parsed.Assumptions,
			Novel:           true,
			CreatedAt:       time.Now().UTC(),
		},
		ChangeLog: parsed.ChangeLog,
	}

	storage := a.persist(req.RequestID, evolved)

	return core.AgentResult{
		TaskID:     req.RequestID,
		AgentType:  core.AgentEvolution,
		Artifact:   evolved,
		Confidence: parsed.Confidence,
		Cached:     !storage.Success,
	}, nil
}
