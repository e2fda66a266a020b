package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

type reflectionAgent struct {
	envelope
	safety core.SafetyLogger
}

func newReflectionAgent(gw core.Gateway, mem core.ContextMemory, cfg core.AgentEnvelopeConfig, safety core.SafetyLogger) core.ReflectionAgent {
	return &reflectionAgent{
		envelope: envelope{gw: gw, mem: mem, cfg: cfg, kind: core.AgentReflection},
		safety:   safety,
	}
}

type reflectionPayload struct {
	Verdict     string   `json:"verdict"`
	Confidence  float64  `json:"confidence"`
	Critique    string   `json:"critique"`
	SafetyFlags []string `json:"safety_flags"`
}

func (a *reflectionAgent) EvaluateHypothesis(ctx context.Context, hypothesisID string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Critically evaluate hypothesis %s for plausibility, novelty and testability", hypothesisID)
	req := a.newRequest(core.RequestEvaluate, prompt, nil)

	var parsed reflectionPayload
	_, raw, err := a.call(ctx, req, &parsed)
	if err != nil {
		return core.AgentResult{}, err
	}
	if parsed.Critique == "" {
		parsed.Critique = raw
	}

	verdict := core.ReviewVerdict(parsed.Verdict)
	if verdict != core.VerdictApproved && verdict != core.VerdictFlagged && verdict != core.VerdictRejected {
		verdict = core.VerdictFlagged
	}
	if parsed.Confidence < a.cfg.ConfidenceThreshold && verdict == core.VerdictApproved {
		verdict = core.VerdictFlagged
	}

	review := core.Review{
		HypothesisID: hypothesisID,
		Verdict:      verdict,
		Confidence:   parsed.Confidence,
		Critique:     parsed.Critique,
		SafetyFlags:  parsed.SafetyFlags,
		CreatedAt:    time.Now().UTC(),
	}

	storage := a.persist(req.RequestID, review)
	if a.safety != nil {
		_ = a.safety.Record(hypothesisID, review.SafetyFlags, review.Verdict)
	}

	return core.AgentResult{
		TaskID:     req.RequestID,
		AgentType:  core.AgentReflection,
		Artifact:   review,
		Confidence: review.Confidence,
		Cached:     !storage.Success,
	}, nil
}

func (a *reflectionAgent) PerformSafetyCheck(ctx context.Context, hypothesisID string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Perform a dedicated safety review of hypothesis %s; flag any dual-use or ethical concerns", hypothesisID)
	req := a.newRequest(core.RequestAnalyze, prompt, nil)

	var parsed reflectionPayload
	_, raw, err := a.call(ctx, req, &parsed)
	if err != nil {
		return core.AgentResult{}, err
	}
	if parsed.Critique == "" {
		parsed.Critique = raw
	}

	verdict := core.ReviewVerdict(parsed.Verdict)
	if verdict == "" {
		if len(parsed.SafetyFlags) > 0 {
			verdict = core.VerdictFlagged
		} else {
			verdict = core.VerdictApproved
		}
	}

	review := core.Review{
		HypothesisID: hypothesisID,
		Verdict:      verdict,
		Confidence:   parsed.Confidence,
		Critique:     parsed.Critique,
		SafetyFlags:  parsed.SafetyFlags,
		CreatedAt:    time.Now().UTC(),
	}

	storage := a.persist(req.RequestID, review)
	if a.safety != nil {
		if err := a.safety.Record(hypothesisID, review.SafetyFlags, review.Verdict); err != nil {
			return core.AgentResult{}, fmt.Errorf("agent: record safety check: %w", err)
		}
	}

	return core.AgentResult{
		TaskID:     req.RequestID,
		AgentType:  core.AgentReflection,
		Artifact:   review,
		Confidence: review.Confidence,
		Cached:     !storage.Success,
	}, nil
}
