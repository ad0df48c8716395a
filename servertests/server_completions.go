package servertests

import (
	"strings"

	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doCompletionTests(t *lmtest.T) {
	t.Run("non-streaming", doCompletionNonStreamingTest)
	t.Run("streaming", doCompletionStreamingTest)
	t.Run("concurrent streams", doCompletionConcurrentStreamsTest)
	t.Run("echo parameter", doCompletionEchoTest)
	t.Run("stop parameter", doCompletionStopParameterTest)
}

func doCompletionNonStreamingTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureCompletions)
	client := RequireServer(t)

	resp := client.Completion(t, servicedef.CompletionRequest{
		Model:     requireContext(t).chatModel(),
		Prompt:    testPrompt,
		MaxTokens: intPtr(10),
	})

	assert.Greater(t, len(resp.Choices[0].Text), 5, "response should have content")
	assert.Greater(t, resp.Usage.PromptTokens, 0)
	assert.Greater(t, resp.Usage.CompletionTokens, 0)
	assert.Greater(t, resp.Usage.TotalTokens, 0)
}

func doCompletionStreamingTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureCompletionsStreaming)
	client := RequireServer(t)

	chunks := client.CompletionChunks(t, servicedef.CompletionRequest{
		Model:     requireContext(t).chatModel(),
		Prompt:    testPrompt,
		MaxTokens: intPtr(10),
	})

	text, textChunks := concatCompletionTexts(chunks)
	assert.Greater(t, textChunks, 2, "should have multiple text chunks, got %d", textChunks)
	assert.Greater(t, len(text), 5, "response should have content")
}

func doCompletionConcurrentStreamsTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureCompletionsAsync)
	client := RequireServer(t)
	model := requireContext(t).chatModel()

	outcomes := make(chan chatStreamOutcome, 2)
	temperatures := []float64{0.3, 0.8}
	for _, temperature := range temperatures {
		request := servicedef.CompletionRequest{
			Model:       model,
			Prompt:      testPrompt,
			MaxTokens:   intPtr(10),
			Temperature: floatPtr(temperature),
		}
		go func(request servicedef.CompletionRequest) {
			text, textChunks, err := client.CollectCompletionStream(request)
			outcomes <- chatStreamOutcome{text: text, contentChunks: textChunks, err: err}
		}(request)
	}

	for range temperatures {
		outcome := <-outcomes
		require.NoError(t, outcome.err)
		assert.Greater(t, outcome.contentChunks, 2, "should have multiple text chunks")
		assert.Greater(t, len(outcome.text), 5, "response should have content")
	}
}

func doCompletionEchoTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureEchoParameter)
	client := RequireServer(t)

	prompt := "Hello, how are you?"
	resp := client.Completion(t, servicedef.CompletionRequest{
		Model:     requireContext(t).chatModel(),
		Prompt:    prompt,
		Echo:      true,
		MaxTokens: intPtr(10),
	})

	text := resp.Choices[0].Text
	assert.True(t, strings.HasPrefix(text, prompt), "response should start with the prompt when echo is set, got %q", text)
	assert.Greater(t, len(text), len(prompt), "response should continue past the echoed prompt")
}

func doCompletionStopParameterTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureStopParameter)
	client := RequireServer(t)

	resp := client.Completion(t, servicedef.CompletionRequest{
		Model:     requireContext(t).chatModel(),
		Prompt:    "Just say 'I am Joe and I like apples'. Here we go: 'I am Joe and",
		Stop:      []string{"apples"},
		MaxTokens: intPtr(10),
	})

	text := resp.Choices[0].Text
	assert.Greater(t, len(text), 2, "response should have content before the stop sequence")
	assert.NotContains(t, text, "apples", "generation should have stopped before the stop sequence")
}

func concatCompletionTexts(chunks []servicedef.CompletionResponse) (string, int) {
	text := ""
	textChunks := 0
	for _, chunk := range chunks {
		if len(chunk.Choices) > 0 && chunk.Choices[0].Text != "" {
			text += chunk.Choices[0].Text
			textChunks++
		}
	}
	return text, textChunks
}
