package agent

import (
	"context"
	"testing"

	"github.com/jplfaria/cogniscient-runtime/core"
	"github.com/jplfaria/cogniscient-runtime/internal/memory"
	"github.com/stretchr/testify/require"
)

// fakeGateway returns a canned JSON body regardless of request content,
// sufficient to exercise the agent envelope's dispatch/decode/persist path
// without a real upstream model.
type fakeGateway struct {
	body string
	fail bool
}

func (g *fakeGateway) respond(req core.Request) (core.Response, error) {
	if g.fail {
		return core.NewErrorResponse(req.RequestID, core.ErrorCodeModel, "boom", true), nil
	}
	return core.NewSuccessResponse(req.RequestID, g.body, nil), nil
}

func (g *fakeGateway) Generate(ctx context.Context, req core.Request) (core.Response, error) { return g.respond(req) }
func (g *fakeGateway) Analyze(ctx context.Context, req core.Request) (core.Response, error)  { return g.respond(req) }
func (g *fakeGateway) Evaluate(ctx context.Context, req core.Request) (core.Response, error) { return g.respond(req) }
func (g *fakeGateway) Compare(ctx context.Context, req core.Request) (core.Response, error)  { return g.respond(req) }
func (g *fakeGateway) TestConnectivity(ctx context.Context, provider string) error            { return nil }
func (g *fakeGateway) VerifyModelAccess(ctx context.Context, provider string, models []string) (map[string]bool, error) {
	return nil, nil
}
func (g *fakeGateway) HealthStatus(ctx context.Context) (map[string]core.ModelHealth, error) {
	return nil, nil
}
func (g *fakeGateway) Shutdown() {}

func newTestMemory(t *testing.T) core.ContextMemory {
	t.Helper()
	cm, err := memory.New(core.ContextMemoryConfig{RootDir: t.TempDir(), RetentionDays: 30, CleanupBatchSize: 5})
	require.NoError(t, err)
	return cm
}

func TestGenerationAgentTracksPerMethodSuccessRate(t *testing.T) {
	gw := &fakeGateway{body: `{"summary":"enzyme X inhibits Y","confidence":0.8}`}
	mem := newTestMemory(t)
	_, err := mem.StartNewIteration()
	require.NoError(t, err)

	a := newGenerationAgent(gw, mem, core.DefaultAgentEnvelopeConfig(), NewSafetyLogger())

	result, err := a.GenerateLiteratureBased(context.Background(), "find enzyme inhibitors")
	require.NoError(t, err)
	hyp := result.Artifact.(core.Hypothesis)
	require.Equal(t, "enzyme X inhibits Y", hyp.Summary)
	require.Equal(t, core.MethodLiteratureBased, hyp.Method)

	rates := a.MethodSuccessRates()
	require.Equal(t, 1.0, rates[core.MethodLiteratureBased])
	require.Equal(t, 0.5, rates[core.MethodDebate])
}

func TestGenerationAgentRecordsToSafetyLogger(t *testing.T) {
	gw := &fakeGateway{body: `{"summary":"enzyme X inhibits Y","confidence":0.8}`}
	mem := newTestMemory(t)
	_, err := mem.StartNewIteration()
	require.NoError(t, err)

	safety := NewSafetyLogger()
	a := newGenerationAgent(gw, mem, core.DefaultAgentEnvelopeConfig(), safety)

	result, err := a.GenerateLiteratureBased(context.Background(), "find enzyme inhibitors")
	require.NoError(t, err)
	hyp := result.Artifact.(core.Hypothesis)

	history, err := safety.History(hyp.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, core.VerdictApproved, history[0].Verdict)
}

func TestGenerationAgentRecordsFailure(t *testing.T) {
	gw := &fakeGateway{fail: true}
	mem := newTestMemory(t)
	a := newGenerationAgent(gw, mem, core.DefaultAgentEnvelopeConfig(), NewSafetyLogger())

	_, err := a.GenerateDebate(context.Background(), "goal")
	require.Error(t, err)

	rates := a.MethodSuccessRates()
	require.Equal(t, 0.0, rates[core.MethodDebate])
}

func TestReflectionAgentDowngradesLowConfidenceToFlagged(t *testing.T) {
	gw := &fakeGateway{body: `{"verdict":"approved","confidence":0.2,"critique":"weak evidence"}`}
	mem := newTestMemory(t)
	cfg := core.DefaultAgentEnvelopeConfig()
	cfg.ConfidenceThreshold = 0.6
	safety := NewSafetyLogger()
	a := newReflectionAgent(gw, mem, cfg, safety)

	result, err := a.EvaluateHypothesis(context.Background(), "hyp-1")
	require.NoError(t, err)
	review := result.Artifact.(core.Review)
	require.Equal(t, core.VerdictFlagged, review.Verdict)

	history, err := safety.History("hyp-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestPerformSafetyCheckRecordsFlags(t *testing.T) {
	gw := &fakeGateway{body: `{"verdict":"rejected","safety_flags":["dual_use"],"critique":"risk"}`}
	mem := newTestMemory(t)
	safety := NewSafetyLogger()
	a := newReflectionAgent(gw, mem, core.DefaultAgentEnvelopeConfig(), safety)

	_, err := a.PerformSafetyCheck(context.Background(), "hyp-2")
	require.NoError(t, err)

	history, err := safety.History("hyp-2")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, core.VerdictRejected, history[0].Verdict)
}

func TestRankingAgentUpdatesEloAndStandings(t *testing.T) {
	gw := &fakeGateway{body: `{"winner":"hyp-a","rationale":"stronger evidence"}`}
	mem := newTestMemory(t)
	a := newRankingAgent(gw, mem, core.DefaultAgentEnvelopeConfig())

	_, err := a.CompareHypotheses(context.Background(), "hyp-a", "hyp-b")
	require.NoError(t, err)

	standings := a.Standings()
	require.Len(t, standings, 2)
	require.Equal(t, "hyp-a", standings[0].HypothesisID)
	require.Greater(t, standings[0].Rating, standings[1].Rating)
}

func TestEvolutionAgentPersistsChangeLog(t *testing.T) {
	gw := &fakeGateway{body: `{"summary":"refined hypothesis","change_log":"tightened scope"}`}
	mem := newTestMemory(t)
	a := newEvolutionAgent(gw, mem, core.DefaultAgentEnvelopeConfig())

	result, err := a.EnhanceHypothesis(context.Background(), "hyp-1")
	require.NoError(t, err)
	evolved := result.Artifact.(core.EvolvedHypothesis)
	require.Equal(t, "hyp-1", evolved.ParentID)
	require.Equal(t, "tightened scope", evolved.ChangeLog)
}

func TestProximityAgentComputesSimilarity(t *testing.T) {
	gw := &fakeGateway{body: `{"score":0.42}`}
	mem := newTestMemory(t)
	a := newProximityAgent(gw, mem, core.DefaultAgentEnvelopeConfig())

	result, err := a.CalculateSimilarity(context.Background(), "hyp-a", "hyp-b")
	require.NoError(t, err)
	score := result.Artifact.(core.SimilarityScore)
	require.Equal(t, 0.42, score.Score)
}

func TestMetaReviewAgentSynthesizesIteration(t *testing.T) {
	gw := &fakeGateway{body: `{"key_findings":["finding 1"],"top_hypotheses":["hyp-a"],"next_steps":["run assay"]}`}
	mem := newTestMemory(t)
	n, err := mem.StartNewIteration()
	require.NoError(t, err)

	a := newMetaReviewAgent(gw, mem, core.DefaultAgentEnvelopeConfig())
	result, err := a.Synthesize(context.Background(), n)
	require.NoError(t, err)
	review := result.Artifact.(core.MetaReview)
	require.Equal(t, n, review.IterationNumber)
	require.Equal(t, []string{"finding 1"}, review.KeyFindings)
}
