package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jplfaria/cogniscient-runtime/core"
)

type proximityAgent struct {
	envelope
}

func newProximityAgent(gw core.Gateway, mem core.ContextMemory, cfg core.AgentEnvelopeConfig) core.ProximityAgent {
	return &proximityAgent{envelope: envelope{gw: gw, mem: mem, cfg: cfg, kind: core.AgentProximity}}
}

func (a *proximityAgent) CalculateSimilarity(ctx context.Context, hypA, hypB string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Rate the conceptual similarity of hypothesis %s and hypothesis %s on a 0-1 scale", hypA, hypB)
	req := a.newRequest(core.RequestAnalyze, prompt, nil)

	var parsed struct {
		Score      float64 `json:"score"`
		Confidence float64 `json:"confidence"`
	}
	_, _, err := a.call(ctx, req, &parsed)
	if err != nil {
		return core.AgentResult{}, err
	}

	score := core.SimilarityScore{HypothesisA: hypA, HypothesisB: hypB, Score: parsed.Score}
	storage := a.persist(req.RequestID, score)

	return core.AgentResult{
		TaskID:     req.RequestID,
		AgentType:  core.AgentProximity,
		Artifact:   score,
		Confidence: parsed.Confidence,
		Cached:     !storage.Success,
	}, nil
}

func (a *proximityAgent) ExtractResearchPatterns(ctx context.Context, hypothesisIDs []string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Identify the shared research themes across hypotheses: %s", strings.Join(hypothesisIDs, ", "))
	req := a.newRequest(core.RequestAnalyze, prompt, nil)

	var parsed struct {
		SharedThemes []string `json:"shared_themes"`
		Confidence   float64  `json:"confidence"`
	}
	_, _, err := a.call(ctx, req, &parsed)
	if err != nil {
		return core.AgentResult{}, err
	}

	extraction := core.PatternExtraction{
		ClusterID:    uuid.NewString(),
		Members:      hypothesisIDs,
		SharedThemes: parsed.SharedThemes,
	}
	storage := a.persist(req.RequestID, extraction)

	return core.AgentResult{
		TaskID:     req.RequestID,
		AgentType:  core.AgentProximity,
		Artifact:   extraction,
		Confidence: parsed.Confidence,
		Cached:     !storage.Success,
	}, nil
}
