package validation

import (
	"strings"
	"testing"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func baseRequest() core.Request {
	return core.Request{
		RequestID:   "req-1",
		AgentType:   core.AgentGeneration,
		RequestType: core.RequestGenerate,
		Content:     core.RequestContent{Prompt: "investigate mitochondrial repair pathways"},
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	v := &validator{}
	if errs := v.Validate(baseRequest()); len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestValidateRejectsUnknownAgentType(t *testing.T) {
	v := &validator{}
	req := baseRequest()
	req.AgentType = "not-a-real-agent"
	errs := v.Validate(req)
	if len(errs) == 0 {
		t.Fatal("expected a validation error")
	}
}

func TestValidateRejectsEmptyPrompt(t *testing.T) {
	v := &validator{}
	req := baseRequest()
	req.Content.Prompt = ""
	errs := v.Validate(req)
	found := false
	for _, e := range errs {
		if e.Field == "content.prompt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a content.prompt error, got %+v", errs)
	}
}

func TestValidateRejectsTemperatureOutOfRange(t *testing.T) {
	v := &validator{}
	req := baseRequest()
	req.Content.Parameters = map[string]any{"temperature": 1.5}
	errs := v.Validate(req)
	if len(errs) != 1 || errs[0].Field != "content.parameters.temperature" {
		t.Fatalf("expected a temperature error, got %+v", errs)
	}
}

func TestSanitizeStripsScriptTags(t *testing.T) {
	v := &validator{}
	req := baseRequest()
	req.Content.Prompt = "hello <script>alert(1)</script> world"
	sanitized := v.Sanitize(req)
	if strings.Contains(sanitized.Content.Prompt, "<") {
		t.Fatalf("expected tags to be stripped, got %q", sanitized.Content.Prompt)
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	v := &validator{}
	req := baseRequest()
	req.Content.Prompt = "<b>bold</b> plain"
	once := v.Sanitize(req)
	twice := v.Sanitize(once)
	if once.Content.Prompt != twice.Content.Prompt {
		t.Fatalf("expected Sanitize to be idempotent: %q vs %q", once.Content.Prompt, twice.Content.Prompt)
	}
}
