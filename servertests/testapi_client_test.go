package servertests

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework"
	h "github.com/lemonade-sdk/server-test-harness/framework/helpers"
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	"github.com/lemonade-sdk/server-test-harness/mockserver"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runAgainstMock runs a test scope whose APIClient talks to an in-process mock server,
// then fails the Go test if anything in the scope failed. This exercises the client's
// request encoding and response decoding against a server with known behavior.
func runAgainstMock(t *testing.T, action func(*lmtest.T, *APIClient)) {
	service := mockserver.NewMockInferenceServer(mockserver.Config{}, framework.NullLogger())
	defer service.Close()
	httphelpers.WithServer(service, func(server *httptest.Server) {
		results := lmtest.Run(lmtest.TestConfiguration{}, func(t *lmtest.T) {
			client := NewAPIClient(server.URL+servicedef.APIPrefix, framework.NullLogger())
			action(t, client)
		})
		for _, failure := range results.Failures {
			for _, err := range failure.Errors {
				t.Errorf("[%s] %s", failure.TestID, err)
			}
		}
	})
}

func TestAPIClientHealth(t *testing.T) {
	runAgainstMock(t, func(t *lmtest.T, client *APIClient) {
		health := client.Health(t)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, mockserver.DefaultVersion, health.Version)
		assert.False(t, health.ModelLoaded.IsDefined())
		assert.Empty(t, health.LoadedModelNames())
		require.True(t, health.LogStreaming.IsDefined())
		assert.True(t, health.LogStreaming.Value().SSE)

		client.LoadModel(t, "Qwen3-0.6B-GGUF")
		health = client.Health(t)
		assert.Equal(t, "Qwen3-0.6B-GGUF", health.ModelLoaded.Value())
		assert.Equal(t, []string{"Qwen3-0.6B-GGUF"}, health.LoadedModelNames())
	})
}

func TestAPIClientModels(t *testing.T) {
	runAgainstMock(t, func(t *lmtest.T, client *APIClient) {
		downloaded := client.Models(t, false)
		all := client.Models(t, true)
		assert.Equal(t, "list", all.Object)
		assert.Greater(t, len(all.Data), len(downloaded.Data))

		sdTurbo := all.Find("SD-Turbo")
		require.True(t, sdTurbo.IsDefined())
		require.True(t, sdTurbo.Value().ImageDefaults.IsDefined())
		assert.Equal(t, 512, sdTurbo.Value().ImageDefaults.Value().Width)

		assert.False(t, all.Find("No-Such-Model").IsDefined())
	})
}

func TestAPIClientChatCompletionStreaming(t *testing.T) {
	runAgainstMock(t, func(t *lmtest.T, client *APIClient) {
		req := servicedef.ChatCompletionRequest{
			Model:               "Qwen3-0.6B-GGUF",
			Messages:            []servicedef.Message{{Role: "user", Content: "Say something"}},
			MaxCompletionTokens: h.Ptr(10),
			Temperature:         h.Ptr(0.0),
		}
		direct := client.ChatCompletion(t, req)
		require.Len(t, direct.Choices, 1)
		directText := direct.Choices[0].Message.Content
		require.NotEqual(t, "", directText)

		chunks := client.ChatCompletionChunks(t, req)
		var streamed strings.Builder
		for _, chunk := range chunks {
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content.IsDefined() {
				streamed.WriteString(chunk.Choices[0].Delta.Content.Value())
			}
		}
		assert.Equal(t, directText, streamed.String())

		collected, contentChunks, err := client.CollectChatStream(req)
		require.NoError(t, err)
		assert.Equal(t, directText, collected)
		assert.Equal(t, 10, contentChunks)
	})
}

func TestAPIClientEmbeddings(t *testing.T) {
	runAgainstMock(t, func(t *lmtest.T, client *APIClient) {
		resp := client.Embeddings(t, servicedef.EmbeddingsRequest{
			Model:          "nomic-embed-text-v1-GGUF",
			Input:          ldvalue.String("Hello world"),
			EncodingFormat: servicedef.EncodingFormatFloat,
		})
		require.Len(t, resp.Data, 1)
		vector, err := resp.Data[0].FloatVector()
		require.NoError(t, err)
		assert.NotEmpty(t, vector)
	})
}

func TestAPIClientSystemInfo(t *testing.T) {
	runAgainstMock(t, func(t *lmtest.T, client *APIClient) {
		report := client.SystemInfo(t)
		require.True(t, report.HasRecipe("llamacpp"))
		backend, ok := report.Backend("llamacpp", "cpu")
		require.True(t, ok)
		assert.True(t, backend.Supported)
		assert.True(t, backend.Version.IsDefined())

		metal, ok := report.Backend("llamacpp", "metal")
		require.True(t, ok)
		assert.False(t, metal.Supported)
		assert.True(t, metal.Error.IsDefined())
	})
}

func TestAPIClientPostExpectingError(t *testing.T) {
	runAgainstMock(t, func(t *lmtest.T, client *APIClient) {
		status, body := client.PostExpectingError(t, servicedef.EndpointImageGenerations,
			map[string]string{"model": "SD-Turbo"})
		assert.Equal(t, 400, status)
		assert.Contains(t, body, "prompt")
	})
}

func TestAPIClientReadLogStream(t *testing.T) {
	runAgainstMock(t, func(t *lmtest.T, client *APIClient) {
		client.Health(t) // guarantees at least one buffered log line to replay
		lines := client.ReadLogStream(t, 1, 5*time.Second)
		require.NotEmpty(t, lines)
		assert.Contains(t, lines[0], servicedef.EndpointHealth)
	})
}

func TestAPIClientStreamCollectorsReportTransportErrors(t *testing.T) {
	client := NewAPIClient("http://127.0.0.1:1", framework.NullLogger())
	_, _, err := client.CollectChatStream(servicedef.ChatCompletionRequest{})
	assert.Error(t, err)
	_, _, err = client.CollectCompletionStream(servicedef.CompletionRequest{})
	assert.Error(t, err)
}
