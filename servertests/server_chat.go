package servertests

import (
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	o "github.com/lemonade-sdk/server-test-harness/framework/opt"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doChatCompletionTests(t *lmtest.T) {
	t.Run("non-streaming", doChatNonStreamingTest)
	t.Run("streaming", doChatStreamingTest)
	t.Run("streaming matches non-streaming", doChatStreamingConsistencyTest)
	t.Run("streaming usage accounting", doChatStreamingUsageTest)
	t.Run("concurrent streams", doChatConcurrentStreamsTest)
	t.Run("stop parameter", doChatStopParameterTest)
	t.Run("generation parameters", doChatGenerationParametersTest)
	t.Run("tool calls", doChatToolCallsTest)
	t.Run("tool calls streaming", doChatToolCallsStreamingTest)
	t.Run("system message", doChatSystemMessageTest)
}

func doChatNonStreamingTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureChatCompletions)
	client := RequireServer(t)

	resp := client.ChatCompletion(t, servicedef.ChatCompletionRequest{
		Model:               requireContext(t).chatModel(),
		Messages:            standardMessages(),
		MaxCompletionTokens: intPtr(10),
	})

	content := resp.Choices[0].Message.Content
	assert.Greater(t, len(content), 5, "response should have content")

	assert.Greater(t, resp.Usage.PromptTokens, 0)
	assert.Greater(t, resp.Usage.CompletionTokens, 0)
	assert.Greater(t, resp.Usage.TotalTokens, 0)
	assert.Equal(t, resp.Usage.TotalTokens, resp.Usage.PromptTokens+resp.Usage.CompletionTokens)
}

func doChatStreamingTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureChatCompletionsStreaming)
	client := RequireServer(t)

	chunks := client.ChatCompletionChunks(t, servicedef.ChatCompletionRequest{
		Model:               requireContext(t).chatModel(),
		Messages:            standardMessages(),
		MaxCompletionTokens: intPtr(10),
	})

	text, contentChunks := concatContentDeltas(chunks)
	assert.Greater(t, contentChunks, 2, "should have multiple content chunks, got %d", contentChunks)
	assert.Greater(t, len(text), 5, "response should have content")
}

// With temperature zero, decoding is greedy, so the streamed deltas must concatenate
// to exactly the text a non-streaming request with the same parameters produces.
func doChatStreamingConsistencyTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureChatCompletionsStreaming)
	client := RequireServer(t)

	request := servicedef.ChatCompletionRequest{
		Model:               requireContext(t).chatModel(),
		Messages:            standardMessages(),
		MaxCompletionTokens: intPtr(10),
		Temperature:         floatPtr(0),
	}

	whole := client.ChatCompletion(t, request).Choices[0].Message.Content
	streamed, _ := concatContentDeltas(client.ChatCompletionChunks(t, request))

	assert.Equal(t, whole, streamed, "streamed content should reassemble to the non-streaming response")
}

func doChatStreamingUsageTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureChatCompletionsStreaming)
	client := RequireServer(t)

	chunks := client.ChatCompletionChunks(t, servicedef.ChatCompletionRequest{
		Model:               requireContext(t).chatModel(),
		Messages:            standardMessages(),
		MaxCompletionTokens: intPtr(10),
		StreamOptions:       &servicedef.StreamOptions{IncludeUsage: true},
	})

	usage := o.None[servicedef.Usage]()
	for _, chunk := range chunks {
		if chunk.Usage.IsDefined() {
			usage = chunk.Usage
			assert.Empty(t, chunk.Choices, "the usage chunk should carry no choices")
		}
	}
	require.True(t, usage.IsDefined(), "no chunk carried usage information")

	u := usage.Value()
	assert.Greater(t, u.PromptTokens, 0)
	assert.Greater(t, u.CompletionTokens, 0)
	assert.Equal(t, u.TotalTokens, u.PromptTokens+u.CompletionTokens)
}

type chatStreamOutcome struct {
	text          string
	contentChunks int
	err           error
}

// Two streams read at the same time must each deliver a complete, correctly ordered
// response; the server may interleave them on the wire however it likes.
func doChatConcurrentStreamsTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureChatCompletionsAsync)
	client := RequireServer(t)
	model := requireContext(t).chatModel()

	outcomes := make(chan chatStreamOutcome, 2)
	temperatures := []float64{0.3, 0.8}
	for _, temperature := range temperatures {
		request := servicedef.ChatCompletionRequest{
			Model:               model,
			Messages:            standardMessages(),
			MaxCompletionTokens: intPtr(10),
			Temperature:         floatPtr(temperature),
		}
		go func(request servicedef.ChatCompletionRequest) {
			text, contentChunks, err := client.CollectChatStream(request)
			outcomes <- chatStreamOutcome{text: text, contentChunks: contentChunks, err: err}
		}(request)
	}

	for range temperatures {
		outcome := <-outcomes
		require.NoError(t, outcome.err)
		assert.Greater(t, outcome.contentChunks, 2, "should have multiple content chunks")
		assert.Greater(t, len(outcome.text), 5, "response should have content")
	}
}

func doChatStopParameterTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureStopParameter)
	client := RequireServer(t)

	// Ask for a numbered list and stop before the second item.
	resp := client.ChatCompletion(t, servicedef.ChatCompletionRequest{
		Model:               requireContext(t).chatModel(),
		Messages:            []servicedef.Message{{Role: "user", Content: "List 5 colors, one per line, numbered 1-5."}},
		Stop:                []string{"2."},
		MaxCompletionTokens: intPtr(50),
	})

	content := resp.Choices[0].Message.Content
	assert.Greater(t, len(content), 2, "response should have content before the stop sequence")
	assert.NotContains(t, content, "2.", "generation should have stopped before the stop sequence")
}

type samplingParams struct {
	temperature   float64
	topP          float64
	repeatPenalty float64
	topK          int
}

func doChatGenerationParametersTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureGenerationParameters)
	client := RequireServer(t)
	model := requireContext(t).chatModel()

	messages := []servicedef.Message{{Role: "user", Content: "The weather is sunny and"}}
	makeRequest := func(t *lmtest.T, p samplingParams) string {
		resp := client.ChatCompletion(t, servicedef.ChatCompletionRequest{
			Model:               model,
			Messages:            messages,
			MaxCompletionTokens: intPtr(15),
			Temperature:         floatPtr(p.temperature),
			TopP:                floatPtr(p.topP),
			RepeatPenalty:       floatPtr(p.repeatPenalty),
			TopK:                intPtr(p.topK),
		})
		return resp.Choices[0].Message.Content
	}

	base := samplingParams{temperature: 0.7, topP: 0.9, repeatPenalty: 1.1, topK: 40}
	baseline := makeRequest(t, base)
	require.Equal(t, baseline, makeRequest(t, base),
		"identical parameters should produce identical outputs")

	variants := []struct {
		name   string
		change func(*samplingParams)
	}{
		{"temperature", func(p *samplingParams) { p.temperature = 0.1 }},
		{"top_p", func(p *samplingParams) { p.topP = 0.1 }},
		{"repeat_penalty", func(p *samplingParams) { p.repeatPenalty = 2.0 }},
		{"top_k", func(p *samplingParams) { p.topK = 1 }},
	}
	for _, variant := range variants {
		t.Run(variant.name, func(t *lmtest.T) {
			params := base
			variant.change(&params)
			assert.NotEqual(t, baseline, makeRequest(t, params),
				"changing %s should produce different output", variant.name)
		})
	}
}

func toolCallMessages() []servicedef.Message {
	return []servicedef.Message{
		{Role: "user", Content: "Run the calculator_calculate tool with expression set to 1+1"},
	}
}

func doChatToolCallsTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureToolCalls)
	client := RequireServer(t)

	resp := client.ChatCompletion(t, servicedef.ChatCompletionRequest{
		Model:               requireContext(t).chatModel(),
		Messages:            toolCallMessages(),
		Tools:               []servicedef.Tool{sampleTool()},
		MaxCompletionTokens: intPtr(50),
	})

	calls := resp.Choices[0].Message.ToolCalls
	require.Len(t, calls, 1, "response should have exactly one tool call")
	assert.Equal(t, "calculator_calculate", calls[0].Function.Name)
	assert.NotEmpty(t, calls[0].Function.Arguments)
}

func doChatToolCallsStreamingTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureToolCallsStreaming)
	client := RequireServer(t)

	chunks := client.ChatCompletionChunks(t, servicedef.ChatCompletionRequest{
		Model:               requireContext(t).chatModel(),
		Messages:            toolCallMessages(),
		Tools:               []servicedef.Tool{sampleTool()},
		MaxCompletionTokens: intPtr(50),
	})

	fragments := 0
	for _, chunk := range chunks {
		for _, choice := range chunk.Choices {
			fragments += len(choice.Delta.ToolCalls)
		}
	}
	require.Greater(t, fragments, 0, "should receive tool call chunks")

	calls := streamedToolCalls(chunks)
	require.Len(t, calls, 1, "fragments should reassemble into exactly one call")
	assert.Equal(t, "calculator_calculate", calls[0].Function.Name)
}

func doChatSystemMessageTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureChatCompletions)
	client := RequireServer(t)

	messages := append([]servicedef.Message{
		{Role: "system", Content: "You are a helpful assistant. Answer briefly."},
	}, standardMessages()...)
	resp := client.ChatCompletion(t, servicedef.ChatCompletionRequest{
		Model:               requireContext(t).chatModel(),
		Messages:            messages,
		MaxCompletionTokens: intPtr(20),
	})

	assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
	assert.NotEmpty(t, resp.Choices[0].Message.Content)
	assert.Equal(t, resp.Usage.TotalTokens, resp.Usage.PromptTokens+resp.Usage.CompletionTokens)
}

// concatContentDeltas joins the streamed content deltas in arrival order and also
// reports how many chunks carried content, since role-only and finish chunks do not.
func concatContentDeltas(chunks []servicedef.ChatCompletionChunk) (string, int) {
	text := ""
	contentChunks := 0
	for _, chunk := range chunks {
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content.IsDefined() {
			text += chunk.Choices[0].Delta.Content.Value()
			contentChunks++
		}
	}
	return text, contentChunks
}

// streamedToolCalls reassembles tool calls from streamed fragments. Each fragment
// names the call it belongs to by index; arguments arrive as string pieces that
// concatenate in order, while the call id, type, and function name arrive once.
func streamedToolCalls(chunks []servicedef.ChatCompletionChunk) []servicedef.ToolCall {
	byIndex := make(map[int]*servicedef.ToolCall)
	var order []int
	for _, chunk := range chunks {
		for _, choice := range chunk.Choices {
			for _, fragment := range choice.Delta.ToolCalls {
				call, ok := byIndex[fragment.Index]
				if !ok {
					copied := fragment
					byIndex[fragment.Index] = &copied
					order = append(order, fragment.Index)
					continue
				}
				if fragment.ID != "" {
					call.ID = fragment.ID
				}
				if fragment.Type != "" {
					call.Type = fragment.Type
				}
				if fragment.Function.Name != "" {
					call.Function.Name = fragment.Function.Name
				}
				call.Function.Arguments += fragment.Function.Arguments
			}
		}
	}
	calls := make([]servicedef.ToolCall, 0, len(order))
	for _, index := range order {
		calls = append(calls, *byIndex[index])
	}
	return calls
}
