package testmodel

import (
	"testing"

	"github.com/lemonade-sdk/server-test-harness/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestMatrix() CapabilityMatrix {
	return NewCapabilityMatrix(map[string]map[string]bool{
		"llamacpp": {
			"chat_completions": true,
			"tool_calls":       true,
			"image_generation": false,
		},
		"sd-cpp": {
			"image_generation": true,
		},
	})
}

func TestCapabilityMatrixSupports(t *testing.T) {
	m := makeTestMatrix()

	assert.True(t, m.Supports("llamacpp", "chat_completions"))
	assert.True(t, m.Supports("sd-cpp", "image_generation"))

	t.Run("explicitly unsupported", func(t *testing.T) {
		assert.False(t, m.Supports("llamacpp", "image_generation"))
	})

	t.Run("unconfigured feature", func(t *testing.T) {
		assert.False(t, m.Supports("llamacpp", "no_such_feature"))
	})

	t.Run("unconfigured server", func(t *testing.T) {
		assert.False(t, m.Supports("no-such-server", "chat_completions"))
	})
}

func TestCapabilityMatrixCopiesItsInput(t *testing.T) {
	input := map[string]map[string]bool{
		"llamacpp": {"chat_completions": true},
	}
	m := NewCapabilityMatrix(input)

	input["llamacpp"]["chat_completions"] = false
	input["flm"] = map[string]bool{"chat_completions": true}

	assert.True(t, m.Supports("llamacpp", "chat_completions"))
	assert.False(t, m.Supports("flm", "chat_completions"))
}

func TestCapabilityMatrixServers(t *testing.T) {
	assert.Equal(t, []string{"llamacpp", "sd-cpp"}, makeTestMatrix().Servers())
}

func TestCapabilityMatrixWithOverrides(t *testing.T) {
	m := makeTestMatrix()
	m2 := m.WithOverrides([]CapabilityOverride{
		{Server: "llamacpp", Feature: "tool_calls", Supported: false},
		{Server: "llamacpp", Feature: "image_generation", Supported: true},
		{Server: "whispercpp", Feature: "audio_transcription", Supported: true},
	})

	assert.False(t, m2.Supports("llamacpp", "tool_calls"))
	assert.True(t, m2.Supports("llamacpp", "image_generation"))
	assert.True(t, m2.Supports("whispercpp", "audio_transcription"))

	t.Run("original matrix is unchanged", func(t *testing.T) {
		assert.True(t, m.Supports("llamacpp", "tool_calls"))
		assert.False(t, m.Supports("llamacpp", "image_generation"))
		assert.False(t, m.Supports("whispercpp", "audio_transcription"))
	})
}

func TestCapabilityMatrixResolve(t *testing.T) {
	caps := makeTestMatrix().Resolve("llamacpp")
	assert.Equal(t, framework.Capabilities{"llamacpp/chat_completions", "llamacpp/tool_calls"}, caps)

	assert.Len(t, makeTestMatrix().Resolve("no-such-server"), 0)
}

func TestParseCapabilityOverride(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		for _, p := range []struct {
			input  string
			expect CapabilityOverride
		}{
			{"llamacpp/tool_calls=false", CapabilityOverride{"llamacpp", "tool_calls", false}},
			{"llamacpp/tool_calls=true", CapabilityOverride{"llamacpp", "tool_calls", true}},
			{"sd-cpp/image_generation=1", CapabilityOverride{"sd-cpp", "image_generation", true}},
		} {
			t.Run(p.input, func(t *testing.T) {
				o, err := ParseCapabilityOverride(p.input)
				require.NoError(t, err)
				assert.Equal(t, p.expect, o)
			})
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, input := range []string{
			"",
			"llamacpp/tool_calls",
			"tool_calls=false",
			"/tool_calls=false",
			"llamacpp/=false",
			"llamacpp/tool_calls=maybe",
		} {
			t.Run(input, func(t *testing.T) {
				_, err := ParseCapabilityOverride(input)
				assert.Error(t, err)
			})
		}
	})
}
