package servertests

import (
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	m "github.com/lemonade-sdk/server-test-harness/framework/matchers"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
)

func doRerankingTests(t *lmtest.T) {
	t.Run("relevant documents rank first", doRerankingRelevanceTest)
	t.Run("every document is scored", doRerankingCoverageTest)
}

func rerankingDocuments() []string {
	return []string{
		"A man is eating food.",
		"The girl is carrying a baby.",
		"A man is riding a horse.",
		"A young girl is playing violin.",
		"A man is eating a piece of bread.",
		"A man is eating noodles.",
	}
}

const rerankingQuery = "A man is eating pasta."

func doRerankingRelevanceTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureReranking)
	client := RequireServer(t)

	resp := client.Rerank(t, servicedef.RerankingRequest{
		Query:     rerankingQuery,
		Documents: rerankingDocuments(),
		Model:     rerankingModel,
	})

	results := resp.Results
	require.NotEmpty(t, results)
	slices.SortFunc(results, func(a, b servicedef.RerankingResult) int {
		switch {
		case a.RelevanceScore > b.RelevanceScore:
			return -1
		case a.RelevanceScore < b.RelevanceScore:
			return 1
		default:
			return 0
		}
	})

	require.GreaterOrEqual(t, len(results), 3)
	topIndices := []int{results[0].Index, results[1].Index, results[2].Index}
	t.DebugLogger().Printf("top 3 indices: %v", topIndices)

	// Documents 0, 4, and 5 are about eating; the rest are not.
	m.ItemsInAnyOrder(m.Equal(0), m.Equal(4), m.Equal(5)).Assert(t, topIndices)
}

func doRerankingCoverageTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureReranking)
	client := RequireServer(t)

	documents := rerankingDocuments()
	resp := client.Rerank(t, servicedef.RerankingRequest{
		Query:     rerankingQuery,
		Documents: documents,
		Model:     rerankingModel,
	})

	require.Len(t, resp.Results, len(documents), "every document should receive a score")
	seen := make(map[int]bool)
	for _, result := range resp.Results {
		assert.GreaterOrEqual(t, result.Index, 0)
		assert.Less(t, result.Index, len(documents))
		assert.False(t, seen[result.Index], "index %d scored twice", result.Index)
		seen[result.Index] = true
	}
}
