// Package gateway implements core.Gateway: the provider-agnostic façade
// that runs every request through validation, capability checks, model
// selection, the reliability envelope (breaker/queue/rate-limiter/retry/
// fallback), and the upstream HTTP call, per spec.md §4.6. Grounded on the
// teacher's core/orchestrator.go Dispatch/Stop shape, generalized from
// agent dispatch to LLM-call dispatch.
package gateway

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jplfaria/cogniscient-runtime/core"
	"github.com/jplfaria/cogniscient-runtime/internal/reliability"
)

func init() {
	core.RegisterGatewayFactory(newGateway)
}

const queuedSentinel = "Request queued for processing when service recovers"

type gw struct {
	deps   core.GatewayDeps
	tracer trace.Tracer

	mu          sync.Mutex
	knownModels map[string]bool

	cancel context.CancelFunc
	done   chan struct{}
}

func newGateway(deps core.GatewayDeps) core.Gateway {
	g := &gw{
		deps:        deps,
		tracer:      otel.Tracer("github.com/jplfaria/cogniscient-runtime/internal/gateway"),
		knownModels: make(map[string]bool),
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.done = make(chan struct{})
	go g.drainLoop(ctx)
	return g
}

func (g *gw) Generate(ctx context.Context, req core.Request) (core.Response, error) {
	return g.dispatch(ctx, req)
}
func (g *gw) Analyze(ctx context.Context, req core.Request) (core.Response, error) {
	return g.dispatch(ctx, req)
}
func (g *gw) Evaluate(ctx context.Context, req core.Request) (core.Response, error) {
	return g.dispatch(ctx, req)
}
func (g *gw) Compare(ctx context.Context, req core.Request) (core.Response, error) {
	return g.dispatch(ctx, req)
}

func estimateTokens(s string) int {
	return len(s)/4 + 1
}

func outputEstimate(req core.Request) int {
	if v, ok := req.Content.Parameters["max_length"]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return 512
}

func requestedModel(req core.Request) string {
	if v, ok := req.Content.Parameters["model"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// dispatch runs the full pipeline of spec.md §4.6 steps 1-7, wrapped in a
// span so a configured OpenTelemetry SDK can trace per-call latency and
// outcome the way the teacher's Runner traces per-event dispatch.
func (g *gw) dispatch(ctx context.Context, req core.Request) (core.Response, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.dispatch", trace.WithAttributes(
		attribute.String("agent_type", string(req.AgentType)),
		attribute.String("request_id", req.RequestID),
	))
	defer span.End()

	resp, err := g.doDispatch(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if resp.Status == core.StatusError {
		span.SetStatus(codes.Error, errorMessage(resp))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return resp, err
}

func errorMessage(resp core.Response) string {
	if resp.Error == nil {
		return string(resp.Status)
	}
	return resp.Error.Message
}

func (g *gw) doDispatch(ctx context.Context, req core.Request) (core.Response, error) {
	if g.deps.Validator != nil {
		sanitized := g.deps.Validator.Sanitize(req)
		if errs := g.deps.Validator.Validate(sanitized); len(errs) > 0 {
			return core.NewErrorResponse(req.RequestID, core.ErrorCodeInvalidRequest, errs[0].Message, false), nil
		}
		req = sanitized
	}

	model := requestedModel(req)
	if model == "" {
		var err error
		model, err = g.deps.Selector.SelectForAgent(req.AgentType)
		if err != nil {
			return core.NewErrorResponse(req.RequestID, core.ErrorCodeModel, err.Error(), true), nil
		}
	}
	g.markKnown(model)

	if g.deps.Capabilities != nil {
		canonical := g.deps.Capabilities.Resolve(model)
		reqs := core.CapabilityRequirements{MinContext: estimateTokens(req.Content.Prompt), MinOutputTokens: outputEstimate(req)}
		if err := g.deps.Capabilities.Validate(canonical, reqs); err != nil {
			return core.NewErrorResponse(req.RequestID, core.ErrorCodeInvalidRequest, err.Error(), false), nil
		}
	}

	breaker := g.deps.Breakers(model)
	if breaker != nil && breaker.State() == core.BreakerOpen {
		return g.enqueueOrReject(model, req)
	}

	return g.callWithReliability(ctx, model, req)
}

func (g *gw) enqueueOrReject(model string, req core.Request) (core.Response, error) {
	queue := g.deps.Queues(model)
	if queue == nil {
		return core.NewErrorResponse(req.RequestID, core.ErrorCodeCircuitOpen, "circuit open and no queue configured for "+model, true), nil
	}
	if _, ok := queue.Enqueue(req); !ok {
		return core.NewErrorResponse(req.RequestID, core.ErrorCodeQueueFull, "queue full for model "+model, true), nil
	}
	return core.NewSuccessResponse(req.RequestID, queuedSentinel, map[string]any{"queued": true, "model": model}), nil
}

func (g *gw) callWithReliability(ctx context.Context, model string, req core.Request) (core.Response, error) {
	limiter := g.deps.Limiters(model)
	if limiter != nil {
		ok, err := limiter.AcquireForRequest(ctx, req, outputEstimate(req))
		if err != nil {
			return core.NewErrorResponse(req.RequestID, core.ErrorCodeRateLimited, err.Error(), true), nil
		}
		if !ok {
			return core.NewErrorResponse(req.RequestID, core.ErrorCodeRateLimited, "rate limit exceeded for "+model, true), nil
		}
		guard, err := limiter.ConcurrentRequest(ctx)
		if err != nil {
			return core.NewErrorResponse(req.RequestID, core.ErrorCodeRateLimited, err.Error(), true), nil
		}
		defer guard.Release()
	}

	provider, ok := g.deps.Providers.Default()
	if !ok {
		return core.NewErrorResponse(req.RequestID, core.ErrorCodeModel, "no provider configured", true), nil
	}

	candidates := dedupeCandidates(append([]string{model}, g.deps.FallbackOrder...))
	contents := map[string]string{}
	usages := map[string]core.UsageRecord{}
	codes := map[string]string{}

	fallback := reliability.ExecuteFallback(candidates, func(candidate string) error {
		breaker := g.deps.Breakers(candidate)
		attempt := func() error {
			content, usage, e := provider.Complete(ctx, candidate, req)
			contents[candidate] = content
			usages[candidate] = usage
			return e
		}
		guarded := attempt
		if breaker != nil {
			guarded = func() error { return breaker.Call(attempt) }
		}

		var callErr error
		if g.deps.Retry != nil {
			result := g.deps.Retry.ExecuteWithRetry(ctx, guarded)
			callErr = result.LastError
			if result.Success {
				callErr = nil
			}
		} else {
			callErr = guarded()
		}
		if callErr != nil {
			code := core.ErrorCodeModel
			if ge, ok := callErr.(*core.GatewayError); ok {
				code = ge.Code
			}
			codes[candidate] = code
		}
		return callErr
	})

	if fallback.SucceedingClient != "" {
		candidate := fallback.SucceedingClient
		if g.deps.Selector != nil {
			usage := usages[candidate]
			cost := 0.0
			if g.deps.Capabilities != nil {
				if caps, ok := g.deps.Capabilities.Lookup(g.deps.Capabilities.Resolve(candidate)); ok {
					cost = caps.EstimateCost(usage.InputTokens, usage.OutputTokens)
				}
			}
			g.deps.Selector.RecordUsage(candidate, usage.InputTokens, usage.OutputTokens, cost)
		}
		return core.NewSuccessResponse(req.RequestID, contents[candidate], map[string]any{"model": candidate}), nil
	}

	if len(fallback.Attempts) == 0 {
		return core.NewErrorResponse(req.RequestID, core.ErrorCodeModel, "no candidates attempted", true), nil
	}
	last := fallback.Attempts[len(fallback.Attempts)-1]
	code := codes[last.To]
	if code == "" {
		code = core.ErrorCodeModel
	}
	return core.NewErrorResponse(req.RequestID, code, last.Reason, core.IsRecoverable(code)), nil
}

func dedupeCandidates(candidates []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func (g *gw) markKnown(model string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.knownModels[model] = true
}

// drainLoop is the background processor of spec.md §4.6 step 8: it drains a
// model's queue once that model's breaker leaves OPEN.
func (g *gw) drainLoop(ctx context.Context) {
	defer close(g.done)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.drainOnce(ctx)
		}
	}
}

func (g *gw) drainOnce(ctx context.Context) {
	g.mu.Lock()
	models := make([]string, 0, len(g.knownModels))
	for m := range g.knownModels {
		models = append(models, m)
	}
	g.mu.Unlock()

	for _, model := range models {
		breaker := g.deps.Breakers(model)
		if breaker != nil && breaker.State() == core.BreakerOpen {
			continue
		}
		queue := g.deps.Queues(model)
		if queue == nil {
			continue
		}
		for {
			req, future, ok := queue.Dequeue()
			if !ok {
				break
			}
			resp, _ := g.callWithReliability(ctx, model, req)
			if r, ok := future.(core.ResolvableFuture); ok {
				r.Resolve(resp, nil)
			}
		}
	}
}

func (g *gw) TestConnectivity(ctx context.Context, providerName string) error {
	p, ok := g.deps.Providers.Get(providerName)
	if !ok {
		p, ok = g.deps.Providers.Default()
		if !ok {
			return core.NewGatewayError(core.ErrorCodeModel, "no provider configured")
		}
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := p.ListModels(probeCtx)
	return err
}

func (g *gw) VerifyModelAccess(ctx context.Context, providerName string, models []string) (map[string]bool, error) {
	p, ok := g.deps.Providers.Get(providerName)
	if !ok {
		p, ok = g.deps.Providers.Default()
		if !ok {
			return nil, core.NewGatewayError(core.ErrorCodeModel, "no provider configured")
		}
	}
	available, err := p.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(models))
	for _, m := range models {
		_, present := available[strings.TrimPrefix(m, "argo:")]
		out[m] = present
	}
	return out, nil
}

func (g *gw) HealthStatus(ctx context.Context) (map[string]core.ModelHealth, error) {
	p, ok := g.deps.Providers.Default()
	if !ok {
		return nil, core.NewGatewayError(core.ErrorCodeModel, "no provider configured")
	}
	status, err := p.Health(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]core.ModelHealth)
	g.mu.Lock()
	for model := range g.knownModels {
		out[model] = core.ModelHealth{Model: model, Available: status == "healthy", Detail: status}
	}
	g.mu.Unlock()
	return out, nil
}

func (g *gw) Shutdown() {
	if g.cancel != nil {
		g.cancel()
	}
	if g.done != nil {
		<-g.done
	}
}
