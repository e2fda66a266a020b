package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

type metaReviewAgent struct {
	envelope
}

func newMetaReviewAgent(gw core.Gateway, mem core.ContextMemory, cfg core.AgentEnvelopeConfig) core.MetaReviewAgent {
	return &metaReviewAgent{envelope: envelope{gw: gw, mem: mem, cfg: cfg, kind: core.AgentMetaReview}}
}

func (a *metaReviewAgent) ParseResearchGoal(ctx context.Context, goalText string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Decompose the following research goal into its constituent sub-questions: %s", goalText)
	req := a.newRequest(core.RequestAnalyze, prompt, nil)

	var parsed struct {
		SubQuestions []string `json:"sub_questions"`
		Confidence   float64  `json:"confidence"`
	}
	_, raw, err := a.call(ctx, req, &parsed)
	if err != nil {
		return core.AgentResult{}, err
	}
	artifact := map[string]any{"goal": goalText, "sub_questions": parsed.SubQuestions, "raw": raw}
	storage := a.persist(req.RequestID, artifact)

	return core.AgentResult{
		TaskID:     req.RequestID,
		AgentType:  core.AgentMetaReview,
		Artifact:   artifact,
		Confidence: parsed.Confidence,
		Cached:     !storage.Success,
	}, nil
}

func (a *metaReviewAgent) Synthesize(ctx context.Context, iterationNumber int) (core.AgentResult, error) {
	stats, err := a.mem.IterationStats(iterationNumber)
	if err != nil {
		return core.AgentResult{}, fmt.Errorf("agent: read iteration %d stats: %w", iterationNumber, err)
	}

	prompt := fmt.Sprintf(
		"Synthesize research cycle %d into key findings, top hypotheses and next steps. Outputs by agent: %v",
		iterationNumber, stats.OutputsByAgent,
	)
	req := a.newRequest(core.RequestAnalyze, prompt, map[string]any{"iteration": iterationNumber})

	var parsed struct {
		KeyFindings   []string `json:"key_findings"`
		TopHypotheses []string `json:"top_hypotheses"`
		NextSteps     []string `json:"next_steps"`
		Confidence    float64  `json:"confidence"`
	}
	_, _, err = a.call(ctx, req, &parsed)
	if err != nil {
		return core.AgentResult{}, err
	}

	review := core.MetaReview{
		IterationNumber: iterationNumber,
		KeyFindings:     parsed.KeyFindings,
		TopHypotheses:   parsed.TopHypotheses,
		NextSteps:       parsed.NextSteps,
		CreatedAt:       time.Now().UTC(),
	}
	storage := a.persist(req.RequestID, review)

	return core.AgentResult{
		TaskID:     req.RequestID,
		AgentType:  core.AgentMetaReview,
		Artifact:   review,
		Confidence: parsed.Confidence,
		Cached:     !storage.Success,
	}, nil
}
