package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

// fakeValidator rejects requests with an empty prompt, otherwise passes
// them through unchanged.
type fakeValidator struct{}

func (fakeValidator) Validate(req core.Request) []core.ValidationError {
	if req.Content.Prompt == "" {
		return []core.ValidationError{{Field: "content.prompt", Message: "prompt required"}}
	}
	return nil
}
func (fakeValidator) Sanitize(req core.Request) core.Request { return req }

// fakeProvider returns a canned response, optionally failing the first N
// calls for a given model to exercise retry/fallback.
type fakeProvider struct {
	name       string
	failModels map[string]int // model -> remaining failures
	calls      map[string]int
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{name: name, failModels: map[string]int{}, calls: map[string]int{}}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(ctx context.Context, model string, req core.Request) (string, core.UsageRecord, error) {
	p.calls[model]++
	if n, ok := p.failModels[model]; ok && n > 0 {
		p.failModels[model] = n - 1
		return "", core.UsageRecord{}, core.NewGatewayError(core.ErrorCodeModel, "upstream error for "+model)
	}
	return "ok from " + model, core.UsageRecord{InputTokens: 10, OutputTokens: 20}, nil
}

func (p *fakeProvider) ListModels(ctx context.Context) (map[string]string, error) {
	return map[string]string{"gpt-4o": "gpt-4o"}, nil
}

func (p *fakeProvider) Health(ctx context.Context) (string, error) { return "healthy", nil }

type fakeProviderRegistry struct {
	def *fakeProvider
}

func (r *fakeProviderRegistry) Register(name string, provider core.ModelProvider) {}
func (r *fakeProviderRegistry) Get(name string) (core.ModelProvider, bool)        { return r.def, true }
func (r *fakeProviderRegistry) Default() (core.ModelProvider, bool)               { return r.def, true }
func (r *fakeProviderRegistry) SetDefault(name string)                           {}
func (r *fakeProviderRegistry) Names() []string                                  { return []string{r.def.name} }

type fakeCapabilities struct {
	mismatch bool
}

func (c *fakeCapabilities) Register(model string, caps core.ModelCapabilities)  {}
func (c *fakeCapabilities) RegisterAlias(alias, canonical string)              {}
func (c *fakeCapabilities) Resolve(model string) string                        { return model }
func (c *fakeCapabilities) Lookup(model string) (core.ModelCapabilities, bool) {
	return core.ModelCapabilities{MaxContext: 128000, MaxOutputTokens: 4096, CostInPer1K: 1, CostOutPer1K: 2}, true
}
func (c *fakeCapabilities) Supports(model string, requestSize, outputSize int, reqs core.CapabilityRequirements) bool {
	return !c.mismatch
}
func (c *fakeCapabilities) FindSuitable(reqs core.CapabilityRequirements) []string { return nil }
func (c *fakeCapabilities) FindCheapest(reqs core.CapabilityRequirements, estOutputTokens int) (string, bool) {
	return "", false
}
func (c *fakeCapabilities) Validate(model string, reqs core.CapabilityRequirements) error {
	if c.mismatch {
		return &core.CapabilityMismatch{Field: "max_context", Limit: 128000, Requested: float64(reqs.MinContext)}
	}
	return nil
}

type fakeSelector struct {
	model string
}

func (s *fakeSelector) SetTaskPreferences(task core.Task, models []string) {}
func (s *fakeSelector) SetRoutingRule(agent core.AgentType, model string)  {}
func (s *fakeSelector) SelectForTask(task core.Task, budgetConscious bool) ([]string, error) {
	return []string{s.model}, nil
}
func (s *fakeSelector) SelectForAgent(agent core.AgentType) (string, error) { return s.model, nil }
func (s *fakeSelector) SelectWithFailover(task core.Task, preferred string) (string, error) {
	return s.model, nil
}
func (s *fakeSelector) MarkAvailable(model string)   {}
func (s *fakeSelector) MarkUnavailable(model string) {}
func (s *fakeSelector) IsAvailable(model string) bool { return true }

func (s *fakeSelector) RecordUsage(model string, inputTokens, outputTokens int, cost float64) {}
func (s *fakeSelector) Usage(model string) core.UsageRecord                                   { return core.UsageRecord{} }
func (s *fakeSelector) UsageReport() map[string]core.UsageRecord                              { return nil }

func newTestRequest(prompt string) core.Request {
	return core.Request{
		RequestID:   "req-1",
		AgentType:   core.AgentGeneration,
		RequestType: core.RequestGenerate,
		Content:     core.RequestContent{Prompt: prompt},
	}
}

func baseDeps(provider *fakeProvider) core.GatewayDeps {
	registry := &fakeProviderRegistry{def: provider}
	return core.GatewayDeps{
		Validator:    fakeValidator{},
		Providers:    registry,
		Capabilities: &fakeCapabilities{},
		Selector:     &fakeSelector{model: "gpt-4o"},
		Breakers:     func(model string) core.CircuitBreaker { return nil },
		Limiters:     func(model string) core.RateLimiter { return nil },
		Queues:       func(model string) core.RequestQueue { return nil },
		Retry:        nil,
	}
}

func TestDispatchRejectsInvalidRequest(t *testing.T) {
	deps := baseDeps(newFakeProvider("p"))
	g := newGateway(deps)
	defer g.(*gw).Shutdown()

	resp, err := g.Generate(context.Background(), newTestRequest(""))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.Status != core.StatusError || resp.Error.Code != core.ErrorCodeInvalidRequest {
		t.Fatalf("expected invalid_request error, got %+v", resp)
	}
}

func TestDispatchRejectsCapabilityMismatch(t *testing.T) {
	deps := baseDeps(newFakeProvider("p"))
	deps.Capabilities = &fakeCapabilities{mismatch: true}
	g := newGateway(deps)
	defer g.(*gw).Shutdown()

	resp, err := g.Generate(context.Background(), newTestRequest("hello"))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.Status != core.StatusError || resp.Error.Code != core.ErrorCodeInvalidRequest {
		t.Fatalf("expected capability mismatch surfaced as invalid_request, got %+v", resp)
	}
}

func TestDispatchSucceedsAndRecordsUsage(t *testing.T) {
	provider := newFakeProvider("p")
	deps := baseDeps(provider)
	g := newGateway(deps)
	defer g.(*gw).Shutdown()

	resp, err := g.Generate(context.Background(), newTestRequest("hello"))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.Status != core.StatusSuccess {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Response.Content != "ok from gpt-4o" {
		t.Fatalf("unexpected content: %s", resp.Response.Content)
	}
}

func TestDispatchFallsBackAcrossCandidates(t *testing.T) {
	provider := newFakeProvider("p")
	provider.failModels["gpt-4o"] = 1

	deps := baseDeps(provider)
	deps.FallbackOrder = []string{"gpt-4o-mini"}
	g := newGateway(deps)
	defer g.(*gw).Shutdown()

	resp, err := g.Generate(context.Background(), newTestRequest("hello"))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.Status != core.StatusSuccess {
		t.Fatalf("expected success via fallback, got %+v", resp)
	}
	if resp.Response.Content != "ok from gpt-4o-mini" {
		t.Fatalf("expected fallback candidate to serve the response, got %q", resp.Response.Content)
	}
	if provider.calls["gpt-4o"] != 1 {
		t.Fatalf("expected exactly one attempt against the failing candidate, got %d", provider.calls["gpt-4o"])
	}
}

// openBreaker is a core.CircuitBreaker stub permanently stuck OPEN.
type openBreaker struct{}

func (openBreaker) Call(fn func() error) error { return core.NewGatewayError(core.ErrorCodeCircuitOpen, "open") }
func (openBreaker) State() core.BreakerState   { return core.BreakerOpen }
func (openBreaker) Metrics() core.BreakerMetrics { return core.BreakerMetrics{State: core.BreakerOpen} }
func (openBreaker) Reset()                     {}
func (openBreaker) OnStateChange(fn func(from, to core.BreakerState)) {}

func TestDispatchEnqueuesWhenBreakerOpen(t *testing.T) {
	provider := newFakeProvider("p")
	deps := baseDeps(provider)
	deps.Breakers = func(model string) core.CircuitBreaker { return openBreaker{} }
	q := newTestQueue(10, time.Minute)
	deps.Queues = func(model string) core.RequestQueue { return q }
	g := newGateway(deps)
	defer g.(*gw).Shutdown()

	resp, err := g.Generate(context.Background(), newTestRequest("hello"))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.Status != core.StatusSuccess || resp.Response.Metadata["queued"] != true {
		t.Fatalf("expected queued acknowledgement, got %+v", resp)
	}
	if q.Len() != 1 {
		t.Fatalf("expected one entry queued, got %d", q.Len())
	}
}

func TestDispatchRejectsWhenBreakerOpenAndNoQueue(t *testing.T) {
	provider := newFakeProvider("p")
	deps := baseDeps(provider)
	deps.Breakers = func(model string) core.CircuitBreaker { return openBreaker{} }
	g := newGateway(deps)
	defer g.(*gw).Shutdown()

	resp, err := g.Generate(context.Background(), newTestRequest("hello"))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if resp.Status != core.StatusError || resp.Error.Code != core.ErrorCodeCircuitOpen {
		t.Fatalf("expected circuit_open error, got %+v", resp)
	}
}

// testQueue is a minimal core.RequestQueue fake with no TTL enforcement,
// sufficient to exercise enqueue/drain wiring without the reliability
// package's real expiry semantics.
type testQueue struct {
	maxSize int
	wait    time.Duration
	entries []testEntry
}

type testEntry struct {
	req    core.Request
	future *testFuture
}

type testFuture struct {
	done chan struct{}
	resp core.Response
	err  error
}

func (f *testFuture) Wait(ctx context.Context) (core.Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return core.Response{}, ctx.Err()
	}
}

func (f *testFuture) Resolve(resp core.Response, err error) {
	f.resp, f.err = resp, err
	close(f.done)
}

func newTestQueue(maxSize int, wait time.Duration) *testQueue {
	return &testQueue{maxSize: maxSize, wait: wait}
}

func (q *testQueue) Enqueue(req core.Request) (core.QueuedFuture, bool) {
	if len(q.entries) >= q.maxSize {
		return nil, false
	}
	f := &testFuture{done: make(chan struct{})}
	q.entries = append(q.entries, testEntry{req: req, future: f})
	return f, true
}

func (q *testQueue) Dequeue() (core.Request, core.QueuedFuture, bool) {
	if len(q.entries) == 0 {
		return core.Request{}, nil, false
	}
	head := q.entries[0]
	q.entries = q.entries[1:]
	return head.req, head.future, true
}

func (q *testQueue) Len() int { return len(q.entries) }

func (q *testQueue) Clear(err error) {
	for _, e := range q.entries {
		e.future.Resolve(core.Response{}, err)
	}
	q.entries = nil
}

func TestDrainLoopResolvesQueuedFutures(t *testing.T) {
	provider := newFakeProvider("p")
	deps := baseDeps(provider)
	q := newTestQueue(10, time.Minute)
	deps.Queues = func(model string) core.RequestQueue { return q }
	g := newGateway(deps).(*gw)
	defer g.Shutdown()

	future, ok := q.Enqueue(newTestRequest("hello"))
	if !ok {
		t.Fatal("expected enqueue to succeed")
	}
	g.markKnown("gpt-4o")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := future.Wait(ctx)
	if err != nil {
		t.Fatalf("expected drain loop to resolve the future, got err: %v", err)
	}
	if resp.Status != core.StatusSuccess {
		t.Fatalf("expected success response from drain, got %+v", resp)
	}
}
