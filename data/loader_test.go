package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileEmbedding(t *testing.T) {
	_, err := dataFilesRoot.ReadFile("data-files/capabilities.yaml")
	assert.NoError(t, err)

	files, err := dataFilesRoot.ReadDir("data-files/hardware-fixtures")
	assert.NoError(t, err)
	assert.NotEqual(t, 0, len(files))
}

func TestLoadDataFile(t *testing.T) {
	source, err := LoadDataFile("capabilities.yaml")
	require.NoError(t, err)
	assert.Equal(t, "capabilities.yaml", source.BaseName)
	assert.NotEqual(t, 0, len(source.Data))

	var parsed struct {
		Capabilities map[string]map[string]bool `json:"capabilities"`
	}
	require.NoError(t, source.ParseInto(&parsed))
	assert.Contains(t, parsed.Capabilities, "llamacpp")
	assert.True(t, parsed.Capabilities["llamacpp"]["chat_completions"])

	_, err = LoadDataFile("no-such-file.yaml")
	assert.Error(t, err)
}

func TestLoadAllDataFiles(t *testing.T) {
	sources, err := LoadAllDataFiles("hardware-fixtures")
	require.NoError(t, err)
	require.NotEqual(t, 0, len(sources))

	for _, source := range sources {
		t.Run(source.BaseName, func(t *testing.T) {
			var parsed struct {
				Name              string                 `json:"name"`
				Hardware          map[string]interface{} `json:"hardware"`
				ExpectSupported   map[string][]string    `json:"expect_supported"`
				ExpectUnsupported map[string][]string    `json:"expect_unsupported"`
			}
			require.NoError(t, source.ParseInto(&parsed))
			assert.NotEqual(t, "", parsed.Name)
			assert.Contains(t, parsed.Hardware, "devices")
			assert.NotEqual(t, 0, len(parsed.ExpectSupported))
			assert.NotEqual(t, 0, len(parsed.ExpectUnsupported))
		})
	}
}
