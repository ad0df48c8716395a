package mockserver

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func TestEmbeddingVectors(t *testing.T) {
	t.Run("deterministic and unit length", func(t *testing.T) {
		v1 := embeddingVector("A man is eating pasta.")
		v2 := embeddingVector("A man is eating pasta.")
		require.Equal(t, v1, v2)
		assert.InDelta(t, 1.0, dot(v1, v1), 1e-9)
	})

	t.Run("case and punctuation do not matter", func(t *testing.T) {
		assert.Equal(t, embeddingVector("Pasta, pasta!"), embeddingVector("pasta PASTA"))
	})

	t.Run("shared words raise similarity", func(t *testing.T) {
		query := embeddingVector("A man is eating pasta.")
		related := embeddingVector("A man is eating food.")
		unrelated := embeddingVector("A cheetah chases prey on a field.")
		assert.Greater(t, dot(query, related), dot(query, unrelated))
	})
}

func TestEmbeddingsEndpointEncodings(t *testing.T) {
	withMockServer(t, Config{}, func(server *httptest.Server, _ *MockInferenceServer) {
		embeddingsURL := apiURL(server, servicedef.EndpointEmbeddings)
		input := ldvalue.ArrayOf(ldvalue.String("Hello world"), ldvalue.String("How are you?"))

		fetch := func(format string) servicedef.EmbeddingsResponse {
			status, body := postJSON(t, embeddingsURL, servicedef.EmbeddingsRequest{
				Model:          "nomic-embed-text-v1-GGUF",
				Input:          input,
				EncodingFormat: format,
			})
			require.Equal(t, http.StatusOK, status)
			var resp servicedef.EmbeddingsResponse
			require.NoError(t, json.Unmarshal([]byte(body.JSONString()), &resp))
			require.Len(t, resp.Data, 2)
			return resp
		}

		asFloat := fetch(servicedef.EncodingFormatFloat)
		asBase64 := fetch(servicedef.EncodingFormatBase64)

		for i := range asFloat.Data {
			assert.Equal(t, i, asFloat.Data[i].Index)
			require.Equal(t, ldvalue.ArrayType, asFloat.Data[i].Embedding.Type())
			require.Equal(t, ldvalue.StringType, asBase64.Data[i].Embedding.Type())

			reference, err := asFloat.Data[i].FloatVector()
			require.NoError(t, err)
			decoded, err := asBase64.Data[i].FloatVector()
			require.NoError(t, err)
			require.Len(t, decoded, len(reference))
			for j := range reference {
				// Base64 packs float32, so equality only holds to float32 precision.
				assert.InDelta(t, reference[j], decoded[j], 1e-6)
			}
		}
		assert.Greater(t, asFloat.Usage.PromptTokens, 0)
	})
}

func TestEmbeddingsInputValidation(t *testing.T) {
	withMockServer(t, Config{}, func(server *httptest.Server, _ *MockInferenceServer) {
		status, body := postJSON(t, apiURL(server, servicedef.EndpointEmbeddings),
			servicedef.EmbeddingsRequest{
				Model: "nomic-embed-text-v1-GGUF",
				Input: ldvalue.Int(42),
			})
		require.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "Invalid 'input' field in request", body.GetByKey("error").StringValue())
	})
}

func TestRerankingScoresWordOverlap(t *testing.T) {
	assert.Equal(t, 1.0, rerankingScore("a man is eating", "A man is eating pasta."))
	assert.Equal(t, 0.0, rerankingScore("a man is eating", "The quick brown fox."))
	assert.Equal(t, 0.0, rerankingScore("", "anything"))

	withMockServer(t, Config{}, func(server *httptest.Server, _ *MockInferenceServer) {
		status, body := postJSON(t, apiURL(server, servicedef.EndpointReranking),
			servicedef.RerankingRequest{
				Model: "bge-reranker-v2-m3-GGUF",
				Query: "A man is eating pasta.",
				Documents: []string{
					"A man is eating food.",
					"The girl is carrying a baby.",
					"A man is riding a horse.",
				},
			})
		require.Equal(t, http.StatusOK, status)
		var resp servicedef.RerankingResponse
		require.NoError(t, json.Unmarshal([]byte(body.JSONString()), &resp))
		require.Len(t, resp.Results, 3)

		scores := make(map[int]float64, len(resp.Results))
		for _, r := range resp.Results {
			scores[r.Index] = r.RelevanceScore
		}
		require.Len(t, scores, 3, "duplicate document indices in results")
		assert.Greater(t, scores[0], scores[1])
		assert.Greater(t, scores[0], scores[2])
	})
}

func TestPackFloat32Base64RoundTrip(t *testing.T) {
	vec := []float64{0, 0.25, -1, math.Pi}
	data := servicedef.EmbeddingData{Embedding: ldvalue.String(packFloat32Base64(vec))}
	decoded, err := data.FloatVector()
	require.NoError(t, err)
	require.Len(t, decoded, len(vec))
	for i := range vec {
		assert.InDelta(t, vec[i], decoded[i], 1e-6)
	}
}
