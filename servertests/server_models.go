package servertests

import (
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"
	m "github.com/lemonade-sdk/server-test-harness/framework/matchers"
	"github.com/lemonade-sdk/server-test-harness/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doModelManagementTests(t *lmtest.T) {
	t.Run("registry listing", doModelRegistryListingTest)
	t.Run("load two models", doMultiModelLoadTest)
	t.Run("unload a specific model", doUnloadSpecificModelTest)
	t.Run("least recently used eviction", doLRUEvictionTest)
	t.Run("unload all models", doUnloadAllModelsTest)
}

func doModelRegistryListingTest(t *lmtest.T) {
	client := RequireServer(t)
	model := requireContext(t).chatModel()

	all := client.Models(t, true)
	require.NotEmpty(t, all.Data)
	assert.True(t, all.Find(model).IsDefined(),
		"the built-in registry should include %s", model)

	// Without show_all the list is restricted to downloaded models, so it must be a
	// subset of the full registry.
	downloaded := client.Models(t, false)
	for _, entry := range downloaded.Data {
		assert.True(t, all.Find(entry.ID).IsDefined(),
			"downloaded model %s is missing from the full registry", entry.ID)
	}
}

func doMultiModelLoadTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureMultiModel)
	client := RequireServer(t)
	model1 := requireContext(t).chatModel()
	model2 := secondaryChatModel

	client.UnloadAllModels(t)
	client.LoadModel(t, model1)
	client.LoadModel(t, model2)

	health := client.Health(t)
	m.ItemsInAnyOrder(m.Equal(model1), m.Equal(model2)).Assert(t, health.LoadedModelNames())
}

func doUnloadSpecificModelTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureMultiModel)
	client := RequireServer(t)
	model := requireContext(t).chatModel()

	client.UnloadAllModels(t)
	client.LoadModel(t, model)

	status := client.UnloadModel(t, model)
	assert.Equal(t, servicedef.StatusSuccess, status.Status)
	assert.Empty(t, client.Health(t).AllModelsLoaded)
}

// The server is started with a limit of two loaded models, so loading a third must
// evict whichever of the first two was used least recently.
func doLRUEvictionTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureMultiModel)
	client := RequireServer(t)
	model1 := requireContext(t).chatModel()
	model2 := secondaryChatModel
	model3 := tertiaryChatModel

	client.UnloadAllModels(t)

	// Last-use timestamps need to tick between operations.
	client.LoadModel(t, model1)
	time.Sleep(time.Second)
	client.LoadModel(t, model2)
	time.Sleep(time.Second)

	require.Len(t, client.Health(t).AllModelsLoaded, 2)

	// Touch model2 so that model1 becomes the eviction candidate.
	client.ChatCompletion(t, servicedef.ChatCompletionRequest{
		Model:     model2,
		Messages:  []servicedef.Message{{Role: "user", Content: "Hi"}},
		MaxTokens: intPtr(5),
	})
	time.Sleep(time.Second)

	client.LoadModel(t, model3)
	time.Sleep(time.Second)

	health := client.Health(t)
	require.Len(t, health.AllModelsLoaded, 2)
	m.ItemsInAnyOrder(m.Equal(model2), m.Equal(model3)).Assert(t, health.LoadedModelNames())
}

func doUnloadAllModelsTest(t *lmtest.T) {
	requireFeature(t, servicedef.FeatureMultiModel)
	client := RequireServer(t)

	client.UnloadAllModels(t)
	client.LoadModel(t, requireContext(t).chatModel())

	status := client.UnloadAllModels(t)
	assert.Equal(t, servicedef.StatusSuccess, status.Status)
	assert.Empty(t, client.Health(t).AllModelsLoaded)
}
