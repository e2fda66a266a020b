// Package validation implements core.Validator: structural, enum, content,
// and parameter checks on requests, plus HTML/script sanitization. Grounded
// on the teacher's internal/validation/workflow.go init()-registration
// idiom and structured-result shape, generalized from workflow composition
// checks to request validation.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func init() {
	core.RegisterValidatorFactory(func() core.Validator { return &validator{} })
}

type validator struct{}

func validAgentType(a core.AgentType) bool {
	switch a {
	case core.AgentGeneration, core.AgentReflection, core.AgentRanking, core.AgentEvolution, core.AgentProximity, core.AgentMetaReview:
		return true
	}
	return false
}

func validRequestType(r core.RequestType) bool {
	switch r {
	case core.RequestGenerate, core.RequestAnalyze, core.RequestEvaluate, core.RequestCompare:
		return true
	}
	return false
}

func (v *validator) Validate(req core.Request) []core.ValidationError {
	var errs []core.ValidationError

	if req.RequestID == "" {
		errs = append(errs, core.ValidationError{Field: "request_id", Message: "request_id is required"})
	}
	if !validAgentType(req.AgentType) {
		errs = append(errs, core.ValidationError{Field: "agent_type", Message: fmt.Sprintf("unknown agent_type %q", req.AgentType)})
	}
	if !validRequestType(req.RequestType) {
		errs = append(errs, core.ValidationError{Field: "request_type", Message: fmt.Sprintf("unknown request_type %q", req.RequestType)})
	}

	errs = append(errs, v.validateContent(req.Content)...)

	if size, err := req.Size(); err != nil {
		errs = append(errs, core.ValidationError{Field: "*", Message: "request could not be serialized"})
	} else if size > core.MaxRequestBytes {
		errs = append(errs, core.ValidationError{Field: "*", Message: fmt.Sprintf("request size %d exceeds %d bytes", size, core.MaxRequestBytes)})
	}

	return errs
}

func (v *validator) validateContent(c core.RequestContent) []core.ValidationError {
	var errs []core.ValidationError

	if c.Prompt == "" {
		errs = append(errs, core.ValidationError{Field: "content.prompt", Message: "prompt must be non-empty"})
	} else if utf8.RuneCountInString(c.Prompt) > core.MaxPromptChars {
		errs = append(errs, core.ValidationError{Field: "content.prompt", Message: fmt.Sprintf("prompt exceeds %d characters", core.MaxPromptChars)})
	}

	if c.Context != nil {
		if b, err := serializedSize(c.Context); err != nil {
			errs = append(errs, core.ValidationError{Field: "content.context", Message: "context could not be serialized"})
		} else if b > core.MaxContextBytes {
			errs = append(errs, core.ValidationError{Field: "content.context", Message: fmt.Sprintf("context size %d exceeds %d bytes", b, core.MaxContextBytes)})
		}
	}

	errs = append(errs, v.validateParameters(c.Parameters)...)
	return errs
}

func (v *validator) validateParameters(params map[string]any) []core.ValidationError {
	var errs []core.ValidationError
	if params == nil {
		return errs
	}
	if raw, ok := params["temperature"]; ok {
		t, ok := asFloat(raw)
		if !ok || t < core.MinTemperature || t > core.MaxTemperature {
			errs = append(errs, core.ValidationError{Field: "content.parameters.temperature", Message: "temperature must be in [0, 1]"})
		}
	}
	if raw, ok := params["max_length"]; ok {
		n, ok := asFloat(raw)
		if !ok || n <= 0 || n > core.MaxLengthParam {
			errs = append(errs, core.ValidationError{Field: "content.parameters.max_length", Message: "max_length must be in (0, 1000000]"})
		}
	}
	if raw, ok := params["response_format"]; ok {
		s, ok := raw.(string)
		if !ok {
			errs = append(errs, core.ValidationError{Field: "content.parameters.response_format", Message: "response_format must be a string"})
		} else {
			switch core.ResponseFormat(s) {
			case core.FormatText, core.FormatStructured, core.FormatList:
			default:
				errs = append(errs, core.ValidationError{Field: "content.parameters.response_format", Message: "unknown response_format"})
			}
		}
	}
	return errs
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func serializedSize(v map[string]any) (int, error) {
	req := core.Request{Content: core.RequestContent{Context: v}}
	return req.Size()
}

// Sanitize strips HTML/script tags from request_id and prompt.
// Sanitize(Sanitize(r)) == Sanitize(r): stripTags is idempotent on its own
// output since it leaves no tag markers behind.
func (v *validator) Sanitize(req core.Request) core.Request {
	out := req
	out.RequestID = stripTags(req.RequestID)
	out.Content.Prompt = stripTags(req.Content.Prompt)
	return out
}

func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(tokenizer.Text())
		}
	}
}
