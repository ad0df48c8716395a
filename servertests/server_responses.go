package servertests

import (
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doResponsesTests(t *lmtest.T) {
	t.Run("non-streaming", doResponsesNonStreamingTest)
	t.Run("streaming", doResponsesStreamingTest)
}

func doResponsesNonStreamingTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureResponsesAPI)
	client := RequireServer(t)

	resp := client.CreateResponse(t, servicedef.ResponsesRequest{
		Model:           requireContext(t).chatModel(),
		Input:           responsesMessages(),
		Temperature:     floatPtr(0),
		MaxOutputTokens: intPtr(10),
	})

	require.NotEmpty(t, resp.Output, "response should have output items")
	require.NotEmpty(t, resp.Output[0].Content, "output item should have content")
	assert.Greater(t, len(resp.Output[0].Content[0].Text), 5, "response should have content")
}

func doResponsesStreamingTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureResponsesAPIStreaming)
	client := RequireServer(t)

	events := client.ResponseEvents(t, servicedef.ResponsesRequest{
		Model:           requireContext(t).chatModel(),
		Input:           responsesMessages(),
		Temperature:     floatPtr(0),
		MaxOutputTokens: intPtr(10),
	})
	require.NotEmpty(t, events, "stream should produce events")

	require.Equal(t, servicedef.ResponseEventCreated, events[0].Type,
		"first event should be %s, got %s", servicedef.ResponseEventCreated, events[0].Type)

	text := ""
	for _, event := range events {
		if event.Type == servicedef.ResponseEventOutputTextDelta {
			text += event.Delta
		}
	}

	last := events[len(events)-1]
	require.Equal(t, servicedef.ResponseEventCompleted, last.Type,
		"last event should be %s, got %s", servicedef.ResponseEventCompleted, last.Type)
	require.True(t, last.Response.IsDefined(), "the completed event should carry the response")
	final := last.Response.Value()
	require.NotEmpty(t, final.Output)
	require.NotEmpty(t, final.Output[0].Content)
	assert.Equal(t, final.Output[0].Content[0].Text, text,
		"complete response should match the streamed deltas")
	assert.Greater(t, len(text), 5, "response should have content")
}
