package servertests

import (
	"fmt"
	"net"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework/harness"
	"github.com/lemonade-sdk/server-test-harness/framework/helpers"
	"github.com/lemonade-sdk/server-test-harness/framework/lmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise the process-level contract of the server binary: starting,
// readiness, and the stop path. They manage their own server instances, so the shared
// instance (if any) is released first and the group leaves nothing running.
func doServerLifecycleTests(t *lmtest.T) {
	t.Run("start answers health", doStartAnswersHealthTest)
	t.Run("stop closes the port", doStopClosesPortTest)
	t.Run("stop is idempotent", doStopIdempotenceTest)
	t.Run("stop without a running server", doStopWithoutServerTest)
	t.Run("readiness wait reports the timeout", doReadinessTimeoutTest)
}

func startOwnServer(t *lmtest.T) (*harness.ServerProcessHandle, *APIClient) {
	ctx := requireContext(t)
	ctx.lifecycle.Close()
	handle, err := ctx.harness.StartServer()
	require.NoError(t, err)
	t.Defer(handle.Stop)
	return handle, NewAPIClient(ctx.harness.BaseURL(), t.DebugLogger())
}

func doStartAnswersHealthTest(t *lmtest.T) {
	_, client := startOwnServer(t)

	health := client.Health(t)
	assert.Equal(t, "ok", health.Status)
}

func doStopClosesPortTest(t *lmtest.T) {
	ctx := requireContext(t)
	handle, _ := startOwnServer(t)

	handle.Stop()

	requirePortClosed(t, ctx.harness.Port())
	select {
	case <-handle.Exited():
	default:
		t.Errorf("server process was still running after Stop returned")
	}
}

func doStopIdempotenceTest(t *lmtest.T) {
	ctx := requireContext(t)
	handle, _ := startOwnServer(t)

	// The second Stop must be a no-op: no error surfaces from either call and the
	// process stays down.
	handle.Stop()
	handle.Stop()

	requirePortClosed(t, ctx.harness.Port())
}

func doStopWithoutServerTest(t *lmtest.T) {
	ctx := requireContext(t)
	ctx.lifecycle.Close()
	ctx.harness.StopAnyServer()

	// Nothing is running now, so a second sweep has nothing to do and must still
	// return without complaint.
	ctx.harness.StopAnyServer()
	requirePortClosed(t, ctx.harness.Port())
}

func doReadinessTimeoutTest(t *lmtest.T) {
	// Reserve a port by binding and releasing it, so we know nothing answers there.
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	timeout := time.Second * 2
	err = harness.WaitForPort(port, timeout, t.DebugLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("%d", port))
	assert.Contains(t, err.Error(), timeout.String())
}

func requirePortClosed(t *lmtest.T, port int) {
	address := fmt.Sprintf("localhost:%d", port)
	helpers.RequireEventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", address, time.Millisecond*250)
		if err != nil {
			return true
		}
		_ = conn.Close()
		return false
	}, time.Second*10, time.Millisecond*200, "port %d was still accepting connections", port)
}
