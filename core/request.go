// Package core provides the public types and interfaces shared across the
// co-scientist runtime: requests and responses, capabilities, reliability
// primitives, context memory records, and the agent envelope contract.
// Concrete implementations live in internal packages and register
// themselves with core's factory functions at init() time.
package core

import (
	"encoding/json"
	"fmt"
)

// AgentType enumerates the specialized reasoning agents the scheduler can
// dispatch work to.
type AgentType string

const (
	AgentGeneration AgentType = "generation"
	AgentReflection AgentType = "reflection"
	AgentRanking    AgentType = "ranking"
	AgentEvolution  AgentType = "evolution"
	AgentProximity  AgentType = "proximity"
	AgentMetaReview AgentType = "meta-review"
)

func (a AgentType) valid() bool {
	switch a {
	case AgentGeneration, AgentReflection, AgentRanking, AgentEvolution, AgentProximity, AgentMetaReview:
		return true
	}
	return false
}

// RequestType enumerates the kinds of operations the Gateway exposes.
type RequestType string

const (
	RequestGenerate RequestType = "generate"
	RequestAnalyze  RequestType = "analyze"
	RequestEvaluate RequestType = "evaluate"
	RequestCompare  RequestType = "compare"
)

func (r RequestType) valid() bool {
	switch r {
	case RequestGenerate, RequestAnalyze, RequestEvaluate, RequestCompare:
		return true
	}
	return false
}

// ResponseFormat enumerates the accepted values of parameters.response_format.
type ResponseFormat string

const (
	FormatText       ResponseFormat = "text"
	FormatStructured ResponseFormat = "structured"
	FormatList       ResponseFormat = "list"
)

// Size limits enforced by validation (§4.1).
const (
	MaxPromptChars   = 100_000
	MaxContextBytes  = 1 << 20 // 1 MiB
	MaxRequestBytes  = 5 << 20 // 5 MiB
	MaxLengthParam   = 1_000_000
	MinTemperature   = 0.0
	MaxTemperature   = 1.0
)

// RequestContent carries the prompt, free-form context and parameters of a
// Request.
type RequestContent struct {
	Prompt     string         `json:"prompt"`
	Context    map[string]any `json:"context,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Request is the typed envelope every agent emits to the LLM Gateway.
type Request struct {
	RequestID   string          `json:"request_id"`
	AgentType   AgentType       `json:"agent_type"`
	RequestType RequestType     `json:"request_type"`
	Content     RequestContent  `json:"content"`
}

// Size returns the serialized size of the request in bytes, used by
// validation's total-size cap.
func (r Request) Size() (int, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("serialize request: %w", err)
	}
	return len(b), nil
}

// ResponseStatus enumerates terminal states of a Response.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
	StatusPartial ResponseStatus = "partial"
)

// ResponseBody holds the successful payload of a Response.
type ResponseBody struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ResponseError holds the structured error triple required by §7.
type ResponseError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// Response is the typed envelope returned by every Gateway operation.
type Response struct {
	RequestID string         `json:"request_id"`
	Status    ResponseStatus `json:"status"`
	Response  *ResponseBody  `json:"response,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// NewSuccessResponse builds a terminal success Response.
func NewSuccessResponse(requestID, content string, metadata map[string]any) Response {
	return Response{
		RequestID: requestID,
		Status:    StatusSuccess,
		Response:  &ResponseBody{Content: content, Metadata: metadata},
	}
}

// NewErrorResponse builds a terminal error Response.
func NewErrorResponse(requestID, code, message string, recoverable bool) Response {
	return Response{
		RequestID: requestID,
		Status:    StatusError,
		Error:     &ResponseError{Code: code, Message: message, Recoverable: recoverable},
	}
}
