package core

import (
	"context"
	"time"
)

// GenerationMethod enumerates the Generation agent's four strategies,
// supplemented from original_source/src/llm (BAML wrapper scripts) per
// SPEC_FULL.md §4.8.
type GenerationMethod string

const (
	MethodLiteratureBased GenerationMethod = "literature_based"
	MethodDebate          GenerationMethod = "debate"
	MethodAssumptions     GenerationMethod = "assumptions"
	MethodExpansion       GenerationMethod = "expansion"
)

// Hypothesis is the Generation agent's domain artifact.
type Hypothesis struct {
	ID              string           `json:"id"`
	ResearchGoal    string           `json:"research_goal"`
	Summary         string           `json:"summary"`
	FullDescription string           `json:"full_description"`
	Method          GenerationMethod `json:"method"`
	Assumptions     []string         `json:"assumptions,omitempty"`
	Novel           bool             `json:"novel"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ReviewVerdict enumerates the Reflection agent's safety/quality outcomes.
type ReviewVerdict string

const (
	VerdictApproved    ReviewVerdict = "approved"
	VerdictFlagged     ReviewVerdict = "flagged"
	VerdictRejected    ReviewVerdict = "rejected"
)

// Review is the Reflection agent's domain artifact.
type Review struct {
	HypothesisID string        `json:"hypothesis_id"`
	Verdict      ReviewVerdict `json:"verdict"`
	Confidence   float64       `json:"confidence"`
	Critique     string        `json:"critique"`
	SafetyFlags  []string      `json:"safety_flags,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Ranking is the Ranking agent's domain artifact: an Elo-style ordering.
type Ranking struct {
	HypothesisID string  `json:"hypothesis_id"`
	Rating       float64 `json:"rating"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
}

// Comparison is the Ranking agent's pairwise tournament record.
type Comparison struct {
	HypothesisA string    `json:"hypothesis_a"`
	HypothesisB string    `json:"hypothesis_b"`
	Winner      string    `json:"winner"`
	Rationale   string    `json:"rationale"`
	CreatedAt   time.Time `json:"created_at"`
}

// EvolvedHypothesis is the Evolution agent's domain artifact: a refined
// descendant of an existing hypothesis.
type EvolvedHypothesis struct {
	ParentID   string    `json:"parent_id"`
	Hypothesis Hypothesis `json:"hypothesis"`
	ChangeLog  string     `json:"change_log"`
}

// SimilarityScore is the Proximity agent's pairwise output.
type SimilarityScore struct {
	HypothesisA string  `json:"hypothesis_a"`
	HypothesisB string  `json:"hypothesis_b"`
	Score       float64 `json:"score"`
}

// PatternExtraction is the Proximity agent's cluster-level output.
type PatternExtraction struct {
	ClusterID    string   `json:"cluster_id"`
	Members      []string `json:"members"`
	SharedThemes []string `json:"shared_themes"`
}

// MetaReview is the Meta-review agent's synthesized research-cycle summary.
type MetaReview struct {
	IterationNumber int      `json:"iteration_number"`
	KeyFindings     []string `json:"key_findings"`
	TopHypotheses   []string `json:"top_hypotheses"`
	NextSteps       []string `json:"next_steps"`
	CreatedAt       time.Time `json:"created_at"`
}

// AgentEnvelopeConfig bounds one agent invocation, per spec.md §4.8.
type AgentEnvelopeConfig struct {
	MaxRetries         int           `toml:"max_retries"`
	ConfidenceThreshold float64      `toml:"confidence_threshold"`
	Timeout            time.Duration `toml:"timeout"`
	CacheResults       bool          `toml:"cache_results"`
}

// DefaultAgentEnvelopeConfig returns sensible defaults.
func DefaultAgentEnvelopeConfig() AgentEnvelopeConfig {
	return AgentEnvelopeConfig{MaxRetries: 2, ConfidenceThreshold: 0.6, Timeout: 60 * time.Second, CacheResults: true}
}

// AgentResult is the envelope's outcome: a persisted artifact plus the
// provenance of the Gateway call that produced it.
type AgentResult struct {
	TaskID    string  `json:"task_id"`
	AgentType AgentType `json:"agent_type"`
	Artifact  any     `json:"artifact"`
	Confidence float64 `json:"confidence"`
	Cached    bool    `json:"cached"`
}

// GenerationAgent wraps the Generation agent's four methods, per spec.md
// §4.8 and SPEC_FULL.md's original_source supplement.
type GenerationAgent interface {
	GenerateLiteratureBased(ctx context.Context, researchGoal string) (AgentResult, error)
	GenerateDebate(ctx context.Context, researchGoal string) (AgentResult, error)
	GenerateFromAssumptions(ctx context.Context, researchGoal string) (AgentResult, error)
	GenerateExpansion(ctx context.Context, parentHypothesisID string) (AgentResult, error)
	// MethodSuccessRates reports the running per-strategy success rate. The
	// strategy of a call is fixed by which Generate* method is invoked; the
	// rates do not influence that choice.
	MethodSuccessRates() map[GenerationMethod]float64
}

// ReflectionAgent evaluates hypotheses and performs the safety check.
type ReflectionAgent interface {
	EvaluateHypothesis(ctx context.Context, hypothesisID string) (AgentResult, error)
	PerformSafetyCheck(ctx context.Context, hypothesisID string) (AgentResult, error)
}

// RankingAgent compares hypotheses pairwise and maintains an Elo ordering.
type RankingAgent interface {
	CompareHypotheses(ctx context.Context, a, b string) (AgentResult, error)
	Standings() []Ranking
}

// EvolutionAgent refines existing hypotheses.
type EvolutionAgent interface {
	EnhanceHypothesis(ctx context.Context, hypothesisID string) (AgentResult, error)
}

// ProximityAgent computes similarity and extracts shared research patterns.
type ProximityAgent interface {
	CalculateSimilarity(ctx context.Context, a, b string) (AgentResult, error)
	ExtractResearchPatterns(ctx context.Context, hypothesisIDs []string) (AgentResult, error)
}

// MetaReviewAgent parses research goals and synthesizes a research cycle.
type MetaReviewAgent interface {
	ParseResearchGoal(ctx context.Context, goalText string) (AgentResult, error)
	Synthesize(ctx context.Context, iterationNumber int) (AgentResult, error)
}

// SafetyLogger is the append-only audit trail that the Generation agent and
// the Reflection agent's EvaluateHypothesis and PerformSafetyCheck record
// into, per spec.md §4.8.
type SafetyLogger interface {
	Record(hypothesisID string, flags []string, verdict ReviewVerdict) error
	History(hypothesisID string) ([]Review, error)
}

// AgentEnvelopeFactories bundles the per-agent-type constructors registered
// by internal/agent at init() time, mirroring the teacher's per-kind
// factory-registration idiom (RegisterCircuitBreakerFactory et al.)
// generalized to six agent kinds sharing one Gateway and one ContextMemory.
type AgentEnvelopeFactories struct {
	Generation GenerationAgentFactory
	Reflection ReflectionAgentFactory
	Ranking    RankingAgentFactory
	Evolution  EvolutionAgentFactory
	Proximity  ProximityAgentFactory
	MetaReview MetaReviewAgentFactory
}

type (
	GenerationAgentFactory func(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig, safety SafetyLogger) GenerationAgent
	ReflectionAgentFactory func(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig, safety SafetyLogger) ReflectionAgent
	RankingAgentFactory    func(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig) RankingAgent
	EvolutionAgentFactory  func(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig) EvolutionAgent
	ProximityAgentFactory  func(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig) ProximityAgent
	MetaReviewAgentFactory func(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig) MetaReviewAgent
)

var agentFactories AgentEnvelopeFactories

func RegisterAgentEnvelopeFactories(f AgentEnvelopeFactories) {
	agentFactories = f
}

// AgentFactories returns the factories registered by internal/agent,
// for callers (e.g. internal/scheduler) that assemble the six agents
// themselves rather than going through NewGenerationAgent et al. one at a
// time.
func AgentFactories() AgentEnvelopeFactories {
	return agentFactories
}

func NewGenerationAgent(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig, safety SafetyLogger) GenerationAgent {
	if agentFactories.Generation == nil {
		panic("core: no generation agent factory registered (import internal/agent)")
	}
	return agentFactories.Generation(gw, mem, cfg, safety)
}

func NewReflectionAgent(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig, safety SafetyLogger) ReflectionAgent {
	if agentFactories.Reflection == nil {
		panic("core: no reflection agent factory registered (import internal/agent)")
	}
	return agentFactories.Reflection(gw, mem, cfg, safety)
}

func NewRankingAgent(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig) RankingAgent {
	if agentFactories.Ranking == nil {
		panic("core: no ranking agent factory registered (import internal/agent)")
	}
	return agentFactories.Ranking(gw, mem, cfg)
}

func NewEvolutionAgent(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig) EvolutionAgent {
	if agentFactories.Evolution == nil {
		panic("core: no evolution agent factory registered (import internal/agent)")
	}
	return agentFactories.Evolution(gw, mem, cfg)
}

func NewProximityAgent(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig) ProximityAgent {
	if agentFactories.Proximity == nil {
		panic("core: no proximity agent factory registered (import internal/agent)")
	}
	return agentFactories.Proximity(gw, mem, cfg)
}

func NewMetaReviewAgent(gw Gateway, mem ContextMemory, cfg AgentEnvelopeConfig) MetaReviewAgent {
	if agentFactories.MetaReview == nil {
		panic("core: no meta-review agent factory registered (import internal/agent)")
	}
	return agentFactories.MetaReview(gw, mem, cfg)
}
