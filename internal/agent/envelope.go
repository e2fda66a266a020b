// Package agent implements core.GenerationAgent, core.ReflectionAgent,
// core.RankingAgent, core.EvolutionAgent, core.ProximityAgent and
// core.MetaReviewAgent: the six specialized reasoning agents of spec.md
// §4.8. Grounded on the teacher's core/agent.go Run(ctx, event)
// (AgentResult, error) handler shape, generalized to the spec's typed
// Request -> domain artifact -> Context Memory pipeline.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jplfaria/cogniscient-runtime/core"
)

func init() {
	core.RegisterAgentEnvelopeFactories(core.AgentEnvelopeFactories{
		Generation: newGenerationAgent,
		Reflection: newReflectionAgent,
		Ranking:    newRankingAgent,
		Evolution:  newEvolutionAgent,
		Proximity:  newProximityAgent,
		MetaReview: newMetaReviewAgent,
	})
}

// envelope is embedded by every agent implementation: it builds typed
// requests, dispatches them through the Gateway, and persists the
// resulting artifact via Context Memory, per spec.md §4.8.
type envelope struct {
	gw   core.Gateway
	mem  core.ContextMemory
	cfg  core.AgentEnvelopeConfig
	kind core.AgentType
}

func (e *envelope) newRequest(reqType core.RequestType, prompt string, params map[string]any) core.Request {
	return core.Request{
		RequestID:   uuid.NewString(),
		AgentType:   e.kind,
		RequestType: reqType,
		Content:     core.RequestContent{Prompt: prompt, Parameters: params},
	}
}

// call dispatches req through the Gateway operation matching its
// RequestType and decodes the response content as JSON into out; if the
// content is not valid JSON, out is left unpopulated and the raw text is
// reported via the returned string.
func (e *envelope) call(ctx context.Context, req core.Request, out any) (core.Response, string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	var resp core.Response
	var err error
	switch req.RequestType {
	case core.RequestGenerate:
		resp, err = e.gw.Generate(ctx, req)
	case core.RequestEvaluate:
		resp, err = e.gw.Evaluate(ctx, req)
	case core.RequestCompare:
		resp, err = e.gw.Compare(ctx, req)
	default:
		resp, err = e.gw.Analyze(ctx, req)
	}
	if err != nil {
		return resp, "", err
	}
	if resp.Status != core.StatusSuccess {
		return resp, "", fmt.Errorf("agent: gateway call failed: %s", resp.Error.Message)
	}
	content := resp.Response.Content
	if out != nil {
		_ = json.Unmarshal([]byte(content), out)
	}
	return resp, content, nil
}

// persist converts artifact to a results map and stores it as an
// AgentOutput under the active iteration, per spec.md §4.8.
func (e *envelope) persist(taskID string, artifact any) core.StorageResult {
	b, err := json.Marshal(artifact)
	if err != nil {
		return core.StorageResult{Success: false, Error: err.Error()}
	}
	var results map[string]any
	if err := json.Unmarshal(b, &results); err != nil {
		return core.StorageResult{Success: false, Error: err.Error()}
	}
	return e.mem.StoreAgentOutput(core.AgentOutput{
		AgentType: e.kind,
		TaskID:    taskID,
		Results:   results,
	})
}
