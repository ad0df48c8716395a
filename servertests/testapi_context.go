package servertests

import (
	"github.com/lemonade-sdk/server-test-harness/data/testmodel"
	"github.com/lemonade-sdk/server-test-harness/framework/harness"
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"

	"github.com/stretchr/testify/require"
)

// ServerTestContext is the application-defined state shared by every test in a run: the
// process harness for the binary under test, the lifecycle policy that decides when
// server instances come and go, and the hardware fixture data.
type ServerTestContext struct {
	harness   *harness.ServerHarness
	lifecycle harness.Lifecycle
	fixtures  []testmodel.HardwareFixture
}

func requireContext(t *lmtest.T) ServerTestContext {
	if c, ok := t.Context().(ServerTestContext); ok {
		return c
	}
	panic("ServerTestContext was not included in the global test configuration!" +
		" This is a basic mistake in the initialization logic.")
}

// requireFeature skips the test unless the capability matrix marks the feature as
// supported for the wrapped server under test. It is a pure lookup, so tests call it
// before any setup that could have side effects - in particular before RequireServer,
// so that a skipped test never starts a server in per-test mode.
func requireFeature(t *lmtest.T, feature string) {
	ctx := requireContext(t)
	t.RequireCapability(ctx.harness.WrappedServer() + "/" + feature)
}

// RequireServer makes sure a server instance is running, per the active lifecycle
// policy, and returns a client for it. Scope cleanup is registered here, so tests never
// stop the server themselves; with the per-suite policy the same instance simply
// carries over to the next test.
func RequireServer(t *lmtest.T) *APIClient {
	ctx := requireContext(t)
	handle, err := ctx.lifecycle.BeginScope()
	require.NoError(t, err, "could not get a running server (%s lifecycle)", ctx.lifecycle.Describe())
	t.Defer(func() { ctx.lifecycle.EndScope(handle) })
	return NewAPIClient(ctx.harness.BaseURL(), t.DebugLogger())
}
