package serviceinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionOutput(t *testing.T) {
	t.Run("standard version line", func(t *testing.T) {
		v, err := parseVersionOutput("lemonade-server version 8.1.11\n")
		require.NoError(t, err)
		assert.Equal(t, "8.1.11", v)
	})

	t.Run("version line preceded by startup chatter", func(t *testing.T) {
		v, err := parseVersionOutput("loading configuration\nlemonade-server version 8.1.11\n")
		require.NoError(t, err)
		assert.Equal(t, "8.1.11", v)
	})

	t.Run("bare version string", func(t *testing.T) {
		v, err := parseVersionOutput("8.1.11\n")
		require.NoError(t, err)
		assert.Equal(t, "8.1.11", v)
	})

	t.Run("empty output is an error", func(t *testing.T) {
		_, err := parseVersionOutput("   \n")
		assert.Error(t, err)
	})
}

func TestQueryServerBinaryRejectsMissingExecutable(t *testing.T) {
	_, err := QueryServerBinary("/definitely/not/a/real/path/lemonade-server")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
