package servicedef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSystemInfoJSON = `{
	"OS Version": "Linux-6.5.0-generic Ubuntu 22.04.3 LTS",
	"Processor": "AMD Ryzen 9 7950X 16-Core Processor",
	"Physical Memory": "64 GB",
	"devices": {
		"cpu": {"name": "AMD Ryzen 9 7950X 16-Core Processor", "cores": 16, "threads": 32, "available": true}
	},
	"recipes": {
		"llamacpp": {
			"backends": {
				"vulkan": {"supported": true, "available": true, "devices": ["amd_dgpu"], "version": "b4547"},
				"rocm": {"supported": true, "available": false, "devices": ["amd_dgpu"]},
				"metal": {"supported": false, "available": false, "devices": [], "error": "Requires macOS"}
			}
		},
		"ryzenai-llm": {
			"backends": {
				"default": {"supported": false, "available": false, "devices": [], "error": "Requires XDNA2 NPU"}
			}
		}
	}
}`

func TestParseSystemInfoReport(t *testing.T) {
	report, err := ParseSystemInfoReport([]byte(sampleSystemInfoJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"llamacpp", "ryzenai-llm"}, report.RecipeNames())
	assert.True(t, report.HasRecipe("llamacpp"))
	assert.False(t, report.HasRecipe("sd-cpp"))

	vulkan, ok := report.Backend("llamacpp", "vulkan")
	require.True(t, ok)
	assert.True(t, vulkan.Supported)
	assert.True(t, vulkan.Available)
	assert.Equal(t, []string{"amd_dgpu"}, vulkan.Devices)
	assert.Equal(t, "b4547", vulkan.Version.Value())
	assert.False(t, vulkan.Error.IsDefined())

	metal, ok := report.Backend("llamacpp", "metal")
	require.True(t, ok)
	assert.False(t, metal.Supported)
	assert.Equal(t, "Requires macOS", metal.Error.Value())

	npu, ok := report.Backend("ryzenai-llm", "default")
	require.True(t, ok)
	assert.False(t, npu.Supported)
	assert.Equal(t, "Requires XDNA2 NPU", npu.Error.Value())

	_, ok = report.Backend("llamacpp", "cpu")
	assert.False(t, ok)

	// The raw document keeps the hardware fields that the typed parse does not model.
	assert.Equal(t, "64 GB", report.Raw.GetByKey("Physical Memory").StringValue())
}

func TestParseSystemInfoReportMalformed(t *testing.T) {
	_, err := ParseSystemInfoReport([]byte(`{"recipes": [1,2,3]`))
	assert.Error(t, err)
}

func TestHealthResponseLoadedModelNames(t *testing.T) {
	h := HealthResponse{AllModelsLoaded: []LoadedModel{
		{ModelName: "a"}, {ModelName: "b"},
	}}
	assert.Equal(t, []string{"a", "b"}, h.LoadedModelNames())
	assert.Empty(t, HealthResponse{}.LoadedModelNames())
}
