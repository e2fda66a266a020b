// Package provider implements core.ModelProvider: a chat-completions HTTP
// client generalized from the teacher's internal/llm/openai_adapter.go
// OpenAIAdapter to the spec's generic {base_url}/chat/completions,
// /models, /health contract (spec.md §4.6), including the reasoning-model
// max_completion_tokens convention and argo:-prefixed model IDs.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

// reasoningModelPrefixes lists model name prefixes that require
// max_completion_tokens instead of max_tokens, per spec.md §4.6.
var reasoningModelPrefixes = []string{"o1", "o3", "o4"}

func isReasoningModel(model string) bool {
	for _, p := range reasoningModelPrefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// Adapter implements core.ModelProvider against any chat-completions
// compatible endpoint. Grounded on OpenAIAdapter's field shape (baseURL,
// extraHeaders, httpClient) and setHeaders/getBaseURL helpers.
type Adapter struct {
	name         string
	baseURL      string
	authUser     string
	apiKey       string
	extraHeaders map[string]string
	httpClient   *http.Client
}

// NewAdapter builds an Adapter from a ProviderEndpoint, mirroring the
// teacher's NewOpenAIAdapterWithConfig defaulting logic.
func NewAdapter(ep core.ProviderEndpoint) *Adapter {
	timeout := time.Duration(ep.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Adapter{
		name:         ep.Name,
		baseURL:      strings.TrimSuffix(ep.BaseURL, "/"),
		authUser:     ep.AuthUser,
		apiKey:       ep.APIKey,
		extraHeaders: ep.ExtraHeaders,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
	if a.authUser != "" {
		req.Header.Set("X-User-Id", a.authUser)
	}
	for k, v := range a.extraHeaders {
		req.Header.Set(k, v)
	}
}

func (a *Adapter) Complete(ctx context.Context, model string, req core.Request) (string, core.UsageRecord, error) {
	messages := []map[string]string{{"role": "user", "content": req.Content.Prompt}}

	body := map[string]any{
		"model":    model,
		"messages": messages,
	}
	if t, ok := req.Content.Parameters["temperature"]; ok {
		body["temperature"] = t
	}
	if maxLen, ok := req.Content.Parameters["max_length"]; ok {
		if isReasoningModel(model) {
			body["max_completion_tokens"] = maxLen
		} else {
			body["max_tokens"] = maxLen
		}
	}
	if topP, ok := req.Content.Parameters["top_p"]; ok {
		body["top_p"] = topP
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", core.UsageRecord{}, core.NewGatewayError(core.ErrorCodeInvalidRequest, "encode chat completion request: "+err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", core.UsageRecord{}, core.NewGatewayError(core.ErrorCodeNetwork, err.Error())
	}
	a.setHeaders(httpReq)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", core.UsageRecord{}, core.NewGatewayError(core.ErrorCodeNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", core.UsageRecord{}, core.NewGatewayError(core.ErrorCodeRateLimited, "upstream rate limited")
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", core.UsageRecord{}, core.NewGatewayError(core.ErrorCodeAuthentication, "upstream rejected credentials")
	}
	if resp.StatusCode >= 500 {
		b, _ := io.ReadAll(resp.Body)
		return "", core.UsageRecord{}, core.NewGatewayError(core.ErrorCodeModel, fmt.Sprintf("upstream %d: %s", resp.StatusCode, string(b)))
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", core.UsageRecord{}, core.NewGatewayError(core.ErrorCodeInvalidRequest, fmt.Sprintf("upstream %d: %s", resp.StatusCode, string(b)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", core.UsageRecord{}, core.NewGatewayError(core.ErrorCodeModel, "decode chat completion response: "+err.Error())
	}
	if len(parsed.Choices) == 0 {
		return "", core.UsageRecord{}, core.NewGatewayError(core.ErrorCodeModel, "upstream returned no choices")
	}

	usage := core.UsageRecord{
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		RequestCount: 1,
	}
	return parsed.Choices[0].Message.Content, usage, nil
}

func (a *Adapter) ListModels(ctx context.Context) (map[string]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return nil, core.NewGatewayError(core.ErrorCodeNetwork, err.Error())
	}
	a.setHeaders(httpReq)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewGatewayError(core.ErrorCodeNetwork, err.Error())
	}
	defer resp.Body.Close()

	var parsed struct {
		Models []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.NewGatewayError(core.ErrorCodeModel, "decode models response: "+err.Error())
	}
	out := make(map[string]string, len(parsed.Models))
	for _, m := range parsed.Models {
		out[strings.TrimPrefix(m.ID, "argo:")] = m.Status
	}
	return out, nil
}

func (a *Adapter) Health(ctx context.Context) (string, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/health", nil)
	if err != nil {
		return "", core.NewGatewayError(core.ErrorCodeNetwork, err.Error())
	}
	a.setHeaders(httpReq)

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", core.NewGatewayError(core.ErrorCodeNetwork, err.Error())
	}
	defer resp.Body.Close()

	var parsed struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", core.NewGatewayError(core.ErrorCodeModel, "decode health response: "+err.Error())
	}
	return parsed.Status, nil
}

// HasModel reports whether a requested model id (bare or argo:-prefixed) is
// present in a ListModels result set, per spec.md §4.6.
func HasModel(models map[string]string, requested string) bool {
	bare := strings.TrimPrefix(requested, "argo:")
	_, ok := models[bare]
	return ok
}
