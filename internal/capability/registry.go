// Package capability implements core.CapabilityRegistry: a model→capability
// map with alias resolution, suitability filtering, and cost-based
// selection, grounded on the teacher's core/memory.go registry-lookup shape
// (map-backed, guarded by a read/write mutex) generalized from
// memory providers to model capabilities (spec.md §4.2).
package capability

import (
	"sort"
	"sync"

	"github.com/jplfaria/cogniscient-runtime/core"
)

type registry struct {
	mu      sync.RWMutex
	models  map[string]core.ModelCapabilities
	aliases map[string]string
}

// New constructs a capability registry. Not wired through a core factory
// since CapabilityRegistry has no Register-at-init() collaborators of its
// own; callers construct it directly and pass it into GatewayDeps.
func New() core.CapabilityRegistry {
	return &registry{
		models:  make(map[string]core.ModelCapabilities),
		aliases: make(map[string]string),
	}
}

func (r *registry) Register(model string, caps core.ModelCapabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[model] = caps
}

func (r *registry) RegisterAlias(alias, canonical string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = canonical
}

func (r *registry) Resolve(model string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[model]; ok {
		return canonical
	}
	return model
}

func (r *registry) Lookup(model string) (core.ModelCapabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical := model
	if c, ok := r.aliases[model]; ok {
		canonical = c
	}
	caps, ok := r.models[canonical]
	return caps, ok
}

func (r *registry) Supports(model string, requestSize, outputSize int, reqs core.CapabilityRequirements) bool {
	caps, ok := r.Lookup(model)
	if !ok {
		return false
	}
	return meets(caps, requestSize, outputSize, reqs)
}

func (r *registry) FindSuitable(reqs core.CapabilityRequirements) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, caps := range r.models {
		if meets(caps, reqs.MinContext, reqs.MinOutputTokens, reqs) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (r *registry) FindCheapest(reqs core.CapabilityRequirements, estOutputTokens int) (string, bool) {
	candidates := r.FindSuitable(reqs)
	if len(candidates) == 0 {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	best := candidates[0]
	bestCost := r.models[best].EstimateCost(reqs.MinContext, estOutputTokens)
	for _, name := range candidates[1:] {
		cost := r.models[name].EstimateCost(reqs.MinContext, estOutputTokens)
		if cost < bestCost {
			best, bestCost = name, cost
		}
	}
	return best, true
}

func (r *registry) Validate(model string, reqs core.CapabilityRequirements) error {
	caps, ok := r.Lookup(model)
	if !ok {
		return &core.CapabilityMismatch{Field: "model", Limit: 0, Requested: 0}
	}
	if caps.MaxContext < reqs.MinContext {
		return &core.CapabilityMismatch{Field: "max_context", Limit: float64(caps.MaxContext), Requested: float64(reqs.MinContext)}
	}
	if caps.MaxOutputTokens < reqs.MinOutputTokens {
		return &core.CapabilityMismatch{Field: "max_output_tokens", Limit: float64(caps.MaxOutputTokens), Requested: float64(reqs.MinOutputTokens)}
	}
	if reqs.RequireMultimodal && !caps.Multimodal {
		return &core.CapabilityMismatch{Field: "multimodal", Limit: 0, Requested: 1}
	}
	if reqs.RequireStreaming && !caps.Streaming {
		return &core.CapabilityMismatch{Field: "streaming", Limit: 0, Requested: 1}
	}
	if reqs.RequireFunctions && !caps.FunctionCalling {
		return &core.CapabilityMismatch{Field: "function_calling", Limit: 0, Requested: 1}
	}
	if reqs.RequireJSONMode && !caps.JSONMode {
		return &core.CapabilityMismatch{Field: "json_mode", Limit: 0, Requested: 1}
	}
	return nil
}

func meets(caps core.ModelCapabilities, requestSize, outputSize int, reqs core.CapabilityRequirements) bool {
	if caps.MaxContext < requestSize || caps.MaxContext < reqs.MinContext {
		return false
	}
	if caps.MaxOutputTokens < outputSize || caps.MaxOutputTokens < reqs.MinOutputTokens {
		return false
	}
	if reqs.RequireMultimodal && !caps.Multimodal {
		return false
	}
	if reqs.RequireStreaming && !caps.Streaming {
		return false
	}
	if reqs.RequireFunctions && !caps.FunctionCalling {
		return false
	}
	if reqs.RequireJSONMode && !caps.JSONMode {
		return false
	}
	return true
}
