package core

import "context"

// Gateway is the public surface described in spec.md §4.6: a
// provider-agnostic façade over upstream LLM endpoints. Internal layers may
// use exception-like mechanisms but the Gateway never lets them leak past
// this boundary — every operation returns a terminal Response or error.
type Gateway interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Analyze(ctx context.Context, req Request) (Response, error)
	Evaluate(ctx context.Context, req Request) (Response, error)
	Compare(ctx context.Context, req Request) (Response, error)

	// TestConnectivity probes {base_url}/models with a short timeout.
	TestConnectivity(ctx context.Context, provider string) error
	// VerifyModelAccess probes {base_url}/models and reports presence of
	// each requested model id (bare or argo:-prefixed).
	VerifyModelAccess(ctx context.Context, provider string, models []string) (map[string]bool, error)

	// HealthStatus returns the current per-model health snapshot used by
	// the Health Monitor.
	HealthStatus(ctx context.Context) (map[string]ModelHealth, error)

	// Shutdown stops the background queue processor.
	Shutdown()
}

// ModelHealth is a single model's entry in a Gateway health probe.
type ModelHealth struct {
	Model     string `json:"model"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// UsageRecord tracks monotonically non-decreasing per-model usage, per
// spec.md §3.
type UsageRecord struct {
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	RequestCount    int     `json:"request_count"`
	AccumulatedCost float64 `json:"accumulated_cost"`
}

// ProviderEndpoint names one upstream provider instance (real or mock) and
// its connection parameters, as held by the Provider Registry (spec.md §2,
// L3).
type ProviderEndpoint struct {
	Name       string            `toml:"name"`
	BaseURL    string            `toml:"base_url"`
	AuthUser   string            `toml:"auth_user"`
	APIKey     string            `toml:"api_key"`
	Timeout    int               `toml:"timeout_seconds"`
	ExtraHeaders map[string]string `toml:"extra_headers"`
}

// ModelProvider is the wire-level client each ProviderEndpoint resolves to:
// a chat-completions HTTP adapter or a mock. Grounded on the teacher's
// internal/llm.ModelProvider adapters (OpenAIAdapter et al.), generalized
// to the spec's generic chat-completions contract (spec.md §6).
type ModelProvider interface {
	Name() string
	// Complete performs one POST {base_url}/chat/completions call.
	Complete(ctx context.Context, model string, req Request) (content string, usage UsageRecord, err error)
	// ListModels performs GET {base_url}/models.
	ListModels(ctx context.Context) (map[string]string, error)
	// Health performs GET {base_url}/health.
	Health(ctx context.Context) (string, error)
}

// ProviderRegistry holds named provider instances and a default selection,
// per spec.md §2 (L3, Provider Registry).
type ProviderRegistry interface {
	Register(name string, provider ModelProvider)
	Get(name string) (ModelProvider, bool)
	Default() (ModelProvider, bool)
	SetDefault(name string)
	Names() []string
}

// GatewayFactory constructs a Gateway from its dependencies. Registered by
// internal/gateway at init() time.
type GatewayFactory func(deps GatewayDeps) Gateway

// GatewayDeps bundles the L0-L2 collaborators a Gateway needs, avoiding a
// constructor with a dozen positional parameters.
type GatewayDeps struct {
	Validator    Validator
	Providers    ProviderRegistry
	Capabilities CapabilityRegistry
	Selector     ModelSelector
	Breakers     func(model string) CircuitBreaker
	Limiters     func(model string) RateLimiter
	Queues       func(model string) RequestQueue
	Retry        RetryEngine
	FallbackOrder []string
}

var gatewayFactory GatewayFactory

func RegisterGatewayFactory(f GatewayFactory) {
	gatewayFactory = f
}

func NewGateway(deps GatewayDeps) Gateway {
	if gatewayFactory == nil {
		panic("core: no gateway factory registered (import internal/gateway)")
	}
	return gatewayFactory(deps)
}
