package provider

import (
	"testing"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func TestRegistryFirstRegisteredBecomesDefault(t *testing.T) {
	r := NewRegistry()
	a := NewAdapter(core.ProviderEndpoint{Name: "a"})
	b := NewAdapter(core.ProviderEndpoint{Name: "b"})
	r.Register("a", a)
	r.Register("b", b)

	def, ok := r.Default()
	if !ok || def.Name() != "a" {
		t.Fatalf("expected a to be default, got %v ok=%v", def, ok)
	}
}

func TestRegistrySetDefault(t *testing.T) {
	r := NewRegistry()
	r.Register("a", NewAdapter(core.ProviderEndpoint{Name: "a"}))
	r.Register("b", NewAdapter(core.ProviderEndpoint{Name: "b"}))
	r.SetDefault("b")

	def, _ := r.Default()
	if def.Name() != "b" {
		t.Fatalf("expected b to be default after SetDefault, got %v", def.Name())
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("missing"); ok {
		t.Fatal("expected missing provider to report false")
	}
}
