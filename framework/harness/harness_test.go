package harness

import (
	"runtime"
	"strings"
	"testing"

	"github.com/lemonade-sdk/server-test-harness/framework/helpers"
	"github.com/lemonade-sdk/server-test-harness/serviceinfo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestHarness(t *testing.T, config ServerHarnessConfig) *ServerHarness {
	t.Helper()
	if config.Binary.Path == "" {
		config.Binary = serviceinfo.ServerBinary{Path: "lemonade-server"}
	}
	return NewServerHarness(config, nil)
}

func applyStartOptions(t *testing.T, options ...StartOption) startConfig {
	t.Helper()
	var config startConfig
	require.NoError(t, helpers.ApplyOptions(&config, options...))
	return config
}

func TestBuildServeArgs(t *testing.T) {
	t.Run("basic command line in CI mode", func(t *testing.T) {
		t.Setenv(EnvVarCIMode, "1")
		h := makeTestHarness(t, ServerHarnessConfig{WrappedServer: "llamacpp", Backend: "vulkan"})
		args := h.buildServeArgs(startConfig{})
		assert.Equal(t, []string{"serve", "--no-tray", "--log-level", "debug", "--llamacpp", "vulkan"}, args)
	})

	t.Run("tray suppression outside CI follows the platform", func(t *testing.T) {
		t.Setenv(EnvVarCIMode, "")
		h := makeTestHarness(t, ServerHarnessConfig{})
		args := h.buildServeArgs(startConfig{})
		if runtime.GOOS == "windows" {
			assert.Contains(t, args, "--no-tray")
		} else {
			assert.NotContains(t, args, "--no-tray")
		}
	})

	t.Run("tray suppression can be forced", func(t *testing.T) {
		t.Setenv(EnvVarCIMode, "")
		h := makeTestHarness(t, ServerHarnessConfig{})
		args := h.buildServeArgs(startConfig{forceNoTray: true})
		assert.Contains(t, args, "--no-tray")
	})

	t.Run("port flag only when not the default", func(t *testing.T) {
		h := makeTestHarness(t, ServerHarnessConfig{})
		assert.NotContains(t, h.buildServeArgs(startConfig{}), "--port")

		h = makeTestHarness(t, ServerHarnessConfig{Port: 8123})
		args := h.buildServeArgs(startConfig{})
		assert.Contains(t, strings.Join(args, " "), "--port 8123")
	})

	t.Run("backend flag depends on the wrapped server", func(t *testing.T) {
		h := makeTestHarness(t, ServerHarnessConfig{WrappedServer: "sd-cpp", Backend: "rocm"})
		assert.Contains(t, strings.Join(h.buildServeArgs(startConfig{}), " "), "--sdcpp rocm")

		h = makeTestHarness(t, ServerHarnessConfig{WrappedServer: "whispercpp", Backend: "npu"})
		joined := strings.Join(h.buildServeArgs(startConfig{}), " ")
		assert.NotContains(t, joined, "--llamacpp")
		assert.NotContains(t, joined, "--sdcpp")

		h = makeTestHarness(t, ServerHarnessConfig{WrappedServer: "llamacpp"})
		assert.NotContains(t, h.buildServeArgs(startConfig{}), "--llamacpp")
	})

	t.Run("extra args keep their order", func(t *testing.T) {
		h := makeTestHarness(t, ServerHarnessConfig{ExtraServeArgs: []string{"--max-loaded-models", "2"}})
		config := applyStartOptions(t, WithExtraArgs("--ctx-size", "4096"))
		joined := strings.Join(h.buildServeArgs(config), " ")
		assert.Contains(t, joined, "--max-loaded-models 2 --ctx-size 4096")
	})
}

func TestBuildEnv(t *testing.T) {
	t.Setenv("HARNESS_TEST_KEEP", "keep-me")
	t.Setenv("HARNESS_TEST_DROP", "drop-me")
	t.Setenv("HARNESS_TEST_REPLACE", "old")

	config := applyStartOptions(t,
		WithEnvVar("HARNESS_TEST_REPLACE", "new"),
		WithEnvVar("HARNESS_TEST_ADDED", "added"),
		WithoutEnvVar("HARNESS_TEST_DROP"),
	)
	env := buildEnv(config)

	assert.Contains(t, env, "HARNESS_TEST_KEEP=keep-me")
	assert.Contains(t, env, "HARNESS_TEST_REPLACE=new")
	assert.Contains(t, env, "HARNESS_TEST_ADDED=added")
	assert.NotContains(t, env, "HARNESS_TEST_DROP=drop-me")
	assert.NotContains(t, env, "HARNESS_TEST_REPLACE=old")
}

func TestHarnessDefaults(t *testing.T) {
	h := makeTestHarness(t, ServerHarnessConfig{})
	assert.Equal(t, 8000, h.Port())
	assert.Equal(t, "http://localhost:8000/api/v1", h.BaseURL())
	assert.Equal(t, DefaultStartupTimeout, h.startupTimeout)
}
