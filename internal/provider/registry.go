package provider

import (
	"sync"

	"github.com/jplfaria/cogniscient-runtime/core"
)

type registry struct {
	mu       sync.RWMutex
	byName   map[string]core.ModelProvider
	defaultN string
}

// NewRegistry constructs an empty core.ProviderRegistry.
func NewRegistry() core.ProviderRegistry {
	return &registry{byName: make(map[string]core.ModelProvider)}
}

func (r *registry) Register(name string, p core.ModelProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = p
	if r.defaultN == "" {
		r.defaultN = name
	}
}

func (r *registry) Get(name string) (core.ModelProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

func (r *registry) Default() (core.ModelProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[r.defaultN]
	return p, ok
}

func (r *registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultN = name
}

func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	return out
}
