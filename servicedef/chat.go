package servicedef

import (
	o "github.com/lemonade-sdk/server-test-harness/framework/opt"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// Message is one entry in a chat conversation, in either direction.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Tool describes a function the model may call.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Parameters  ldvalue.Value `json:"parameters"`
}

// ToolCall is a function invocation produced by the model. In streamed responses the
// call arrives in pieces, with Index identifying which call a piece belongs to.
type ToolCall struct {
	Index    int              `json:"index,omitempty"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ChatCompletionRequest is the request body for POST /chat/completions. Optional numeric
// parameters are pointers so that an unset parameter is omitted from the JSON rather
// than sent as null or as a zero that the server would treat as meaningful.
type ChatCompletionRequest struct {
	Model               string         `json:"model"`
	Messages            []Message      `json:"messages"`
	MaxCompletionTokens *int           `json:"max_completion_tokens,omitempty"`
	MaxTokens           *int           `json:"max_tokens,omitempty"`
	Temperature         *float64       `json:"temperature,omitempty"`
	TopP                *float64       `json:"top_p,omitempty"`
	TopK                *int           `json:"top_k,omitempty"`
	RepeatPenalty       *float64       `json:"repeat_penalty,omitempty"`
	Seed                *int64         `json:"seed,omitempty"`
	Stop                []string       `json:"stop,omitempty"`
	Tools               []Tool         `json:"tools,omitempty"`
	ToolChoice          string         `json:"tool_choice,omitempty"`
	LogProbs            *bool          `json:"logprobs,omitempty"`
	Stream              bool           `json:"stream,omitempty"`
	StreamOptions       *StreamOptions `json:"stream_options,omitempty"`
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one SSE data frame of a streamed chat completion. When
// stream_options.include_usage was requested, the final chunk before [DONE] carries
// Usage and an empty choice list.
type ChatCompletionChunk struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []ChatChunkChoice `json:"choices"`
	Usage   o.Maybe[Usage]    `json:"usage,omitempty"`
}

type ChatChunkChoice struct {
	Index        int             `json:"index"`
	Delta        ChatDelta       `json:"delta"`
	FinishReason o.Maybe[string] `json:"finish_reason"`
}

// ChatDelta is the incremental payload of a streamed chunk. Content distinguishes a
// null/absent delta (role-only or finish chunks) from a present-but-empty string.
type ChatDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   o.Maybe[string] `json:"content,omitempty"`
	ToolCalls []ToolCall      `json:"tool_calls,omitempty"`
}
