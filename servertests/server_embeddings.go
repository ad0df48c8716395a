package servertests

import (
	"math"

	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doEmbeddingsTests(t *lmtest.T) {
	t.Run("single string", doEmbeddingsSingleStringTest)
	t.Run("array of strings", doEmbeddingsArrayTest)
	t.Run("base64 encoding", doEmbeddingsBase64Test)
	t.Run("deterministic", doEmbeddingsDeterministicTest)
	t.Run("semantic similarity", doEmbeddingsSimilarityTest)
}

func doEmbeddingsSingleStringTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureEmbeddings)
	client := RequireServer(t)

	resp := client.Embeddings(t, servicedef.EmbeddingsRequest{
		Model:          embeddingModel,
		Input:          ldvalue.String("Hello, how are you today?"),
		EncodingFormat: servicedef.EncodingFormatFloat,
	})

	require.Len(t, resp.Data, 1)
	vector := requireVector(t, resp.Data[0])
	t.DebugLogger().Printf("embedding dimension: %d", len(vector))
}

func doEmbeddingsArrayTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureEmbeddings)
	client := RequireServer(t)

	resp := client.Embeddings(t, servicedef.EmbeddingsRequest{
		Model:          embeddingModel,
		Input:          stringsValue("Hello world", "How are you?", "This is a test"),
		EncodingFormat: servicedef.EncodingFormatFloat,
	})

	require.Len(t, resp.Data, 3)
	dimension := len(requireVector(t, resp.Data[0]))
	for i, data := range resp.Data {
		assert.Equal(t, i, data.Index)
		assert.Len(t, requireVector(t, data), dimension,
			"all embeddings in one batch should have the same dimension")
	}
}

// The base64 encoding format packs the same vector as little-endian float32, so it must
// decode to the dimension that the float format reports.
func doEmbeddingsBase64Test(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureEmbeddings)
	client := RequireServer(t)

	input := ldvalue.String("Hello, how are you today?")
	asFloats := client.Embeddings(t, servicedef.EmbeddingsRequest{
		Model:          embeddingModel,
		Input:          input,
		EncodingFormat: servicedef.EncodingFormatFloat,
	})
	asBase64 := client.Embeddings(t, servicedef.EmbeddingsRequest{
		Model:          embeddingModel,
		Input:          input,
		EncodingFormat: servicedef.EncodingFormatBase64,
	})

	require.Len(t, asBase64.Data, 1)
	require.Equal(t, ldvalue.StringType, asBase64.Data[0].Embedding.Type(),
		"base64 embeddings should arrive as a JSON string")

	reference := requireVector(t, asFloats.Data[0])
	decoded := requireVector(t, asBase64.Data[0])
	require.Len(t, decoded, len(reference))
	for i := range reference {
		assert.InDelta(t, reference[i], decoded[i], 1e-5)
	}
}

func doEmbeddingsDeterministicTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureEmbeddings)
	client := RequireServer(t)

	resp := client.Embeddings(t, servicedef.EmbeddingsRequest{
		Model:          embeddingModel,
		Input:          stringsValue("The same sentence twice", "The same sentence twice"),
		EncodingFormat: servicedef.EncodingFormatFloat,
	})

	require.Len(t, resp.Data, 2)
	first := requireVector(t, resp.Data[0])
	second := requireVector(t, resp.Data[1])
	assert.InDelta(t, 1.0, cosineSimilarity(first, second), 1e-6,
		"identical inputs should embed to identical vectors")
}

func doEmbeddingsSimilarityTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureEmbeddings)
	client := RequireServer(t)

	resp := client.Embeddings(t, servicedef.EmbeddingsRequest{
		Model: embeddingModel,
		Input: stringsValue(
			"The cat sat on the mat",
			"A feline rested on the carpet",
			"Dogs are loyal animals",
			"Python is a programming language",
		),
		EncodingFormat: servicedef.EncodingFormatFloat,
	})

	require.Len(t, resp.Data, 4)
	catMat := requireVector(t, resp.Data[0])
	felineCarpet := requireVector(t, resp.Data[1])
	dogs := requireVector(t, resp.Data[2])

	related := cosineSimilarity(catMat, felineCarpet)
	unrelated := cosineSimilarity(catMat, dogs)
	assert.Greater(t, related, unrelated,
		"paraphrases should be closer than unrelated sentences (%.4f vs %.4f)", related, unrelated)
}

func requireVector(t *lmtest.T, data servicedef.EmbeddingData) []float64 {
	vector, err := data.FloatVector()
	require.NoError(t, err)
	require.NotEmpty(t, vector, "embedding should not be empty")
	return vector
}

func stringsValue(texts ...string) ldvalue.Value {
	a := ldvalue.ArrayBuild()
	for _, text := range texts {
		a.Add(ldvalue.String(text))
	}
	return a.Build()
}

func cosineSimilarity(a, b []float64) float64 {
	dot, normA, normB := 0.0, 0.0, 0.0
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
