package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func TestCompleteExtractsContentAndUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "gpt-4o" {
			t.Errorf("expected model gpt-4o, got %v", body["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello world"}, "finish_reason": "stop"},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	a := NewAdapter(core.ProviderEndpoint{Name: "test", BaseURL: srv.URL})
	content, usage, err := a.Complete(context.Background(), "gpt-4o", core.Request{
		Content: core.RequestContent{Prompt: "hi"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "hello world" {
		t.Fatalf("expected content 'hello world', got %q", content)
	}
	if usage.InputTokens != 10 || usage.OutputTokens != 5 {
		t.Fatalf("unexpected usage: %+v", usage)
	}
}

func TestCompleteUsesMaxCompletionTokensForReasoningModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["max_completion_tokens"]; !ok {
			t.Error("expected max_completion_tokens for reasoning model")
		}
		if _, ok := body["max_tokens"]; ok {
			t.Error("did not expect max_tokens for reasoning model")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	a := NewAdapter(core.ProviderEndpoint{Name: "test", BaseURL: srv.URL})
	_, _, err := a.Complete(context.Background(), "o3-mini", core.Request{
		Content: core.RequestContent{Prompt: "hi", Parameters: map[string]any{"max_length": 100}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompleteMapsStatusCodesToErrorCodes(t *testing.T) {
	cases := map[int]string{
		http.StatusTooManyRequests:     core.ErrorCodeRateLimited,
		http.StatusUnauthorized:        core.ErrorCodeAuthentication,
		http.StatusInternalServerError: core.ErrorCodeModel,
		http.StatusBadRequest:          core.ErrorCodeInvalidRequest,
	}
	for status, wantCode := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		a := NewAdapter(core.ProviderEndpoint{Name: "test", BaseURL: srv.URL})
		_, _, err := a.Complete(context.Background(), "gpt-4o", core.Request{Content: core.RequestContent{Prompt: "hi"}})
		srv.Close()
		ge, ok := err.(*core.GatewayError)
		if !ok || ge.Code != wantCode {
			t.Errorf("status %d: expected code %s, got %v", status, wantCode, err)
		}
	}
}

func TestListModelsStripsArgoPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"id": "argo:gpt-4o", "status": "available"},
				{"id": "gpt-3.5-turbo", "status": "available"},
			},
		})
	}))
	defer srv.Close()

	a := NewAdapter(core.ProviderEndpoint{Name: "test", BaseURL: srv.URL})
	models, err := a.ListModels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !HasModel(models, "gpt-4o") || !HasModel(models, "argo:gpt-3.5-turbo") {
		t.Fatalf("expected both bare and argo:-prefixed lookups to work, got %v", models)
	}
}

func TestHealthReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "healthy"})
	}))
	defer srv.Close()

	a := NewAdapter(core.ProviderEndpoint{Name: "test", BaseURL: srv.URL})
	status, err := a.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "healthy" {
		t.Fatalf("expected healthy, got %q", status)
	}
}
