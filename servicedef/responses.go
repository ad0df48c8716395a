package servicedef

import (
	o "github.com/lemonade-sdk/server-test-harness/framework/opt"
)

// ResponsesRequest is the request body for POST /responses.
type ResponsesRequest struct {
	Model           string    `json:"model"`
	Input           []Message `json:"input"`
	MaxOutputTokens *int      `json:"max_output_tokens,omitempty"`
	Temperature     *float64  `json:"temperature,omitempty"`
	Stream          bool      `json:"stream,omitempty"`
}

type ResponsesResponse struct {
	ID     string           `json:"id"`
	Object string           `json:"object,omitempty"`
	Model  string           `json:"model,omitempty"`
	Output []ResponseOutput `json:"output"`
}

type ResponseOutput struct {
	Type    string                  `json:"type,omitempty"`
	Role    string                  `json:"role,omitempty"`
	Content []ResponseOutputContent `json:"content"`
}

type ResponseOutputContent struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// Event types emitted on a streamed /responses request, in order: one created event,
// any number of delta events, then one completed event carrying the full response.
const (
	ResponseEventCreated         = "response.created"
	ResponseEventOutputTextDelta = "response.output_text.delta"
	ResponseEventCompleted       = "response.completed"
)

// ResponsesStreamEvent is one SSE data frame of a streamed /responses request. The Type
// field is authoritative; the SSE event name, when present, matches it.
type ResponsesStreamEvent struct {
	Type     string                     `json:"type"`
	Delta    string                     `json:"delta,omitempty"`
	Response o.Maybe[ResponsesResponse] `json:"response,omitempty"`
}
