package harness

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework"
	"github.com/lemonade-sdk/server-test-harness/serviceinfo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeServerScript creates an executable that behaves like the server binary as
// far as process control is concerned: it honors a "stop" subcommand by exiting
// immediately, and otherwise just stays alive until it is signaled.
func writeFakeServerScript(t *testing.T) string {
	t.Helper()
	requireUnixTools(t)
	path := filepath.Join(t.TempDir(), "fake-lemonade-server")
	script := "#!/bin/sh\nif [ \"$1\" = \"stop\" ]; then exit 0; fi\nsleep 60\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// startableHarness pairs a fake server binary with a listener the readiness poll can
// find, since the fake binary never opens a port of its own.
func startableHarness(t *testing.T) *ServerHarness {
	t.Helper()
	script := writeFakeServerScript(t)

	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	port := l.Addr().(*net.TCPAddr).Port

	return NewServerHarness(ServerHarnessConfig{
		Binary:         serviceinfo.ServerBinary{Path: script},
		Port:           port,
		StartupTimeout: time.Second * 10,
	}, framework.NullLogger())
}

func assertStopped(t *testing.T, handle *ServerProcessHandle) {
	t.Helper()
	select {
	case <-handle.Exited():
	default:
		t.Fatal("expected the server process to have been stopped")
	}
}

func assertStillRunning(t *testing.T, handle *ServerProcessHandle) {
	t.Helper()
	select {
	case <-handle.Exited():
		t.Fatal("expected the server process to still be running")
	default:
	}
}

func TestPerSuiteLifecycleSharesOneServer(t *testing.T) {
	lc := NewPerSuiteLifecycle(startableHarness(t), false, nil)
	defer lc.Close()

	h1, err := lc.BeginScope()
	require.NoError(t, err)

	lc.EndScope(h1)
	assertStillRunning(t, h1)

	h2, err := lc.BeginScope()
	require.NoError(t, err)
	assert.Same(t, h1, h2)

	lc.Close()
	assertStopped(t, h1)

	lc.Close() // second close is a no-op
}

func TestPerTestLifecycleStartsFreshServerEachScope(t *testing.T) {
	lc := NewPerTestLifecycle(startableHarness(t))
	defer lc.Close()

	h1, err := lc.BeginScope()
	require.NoError(t, err)

	lc.EndScope(h1)
	assertStopped(t, h1)

	h2, err := lc.BeginScope()
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
	assertStillRunning(t, h2)

	lc.Close()
	assertStopped(t, h2)
}

func TestLifecycleSurvivesBeginScopeFailure(t *testing.T) {
	h := NewServerHarness(ServerHarnessConfig{
		Binary: serviceinfo.ServerBinary{Path: "/no/such/binary/anywhere"},
		Port:   8000,
	}, framework.NullLogger())

	perTest := NewPerTestLifecycle(h)
	_, err := perTest.BeginScope()
	require.Error(t, err)
	perTest.Close()

	perSuite := NewPerSuiteLifecycle(h, false, nil)
	_, err = perSuite.BeginScope()
	require.Error(t, err)
	perSuite.Close()
}

func TestPerSuiteLifecycleCanLeaveServerRunning(t *testing.T) {
	lc := NewPerSuiteLifecycle(startableHarness(t), true, framework.NullLogger())

	h1, err := lc.BeginScope()
	require.NoError(t, err)

	lc.Close()
	assertStillRunning(t, h1)

	// clean up for real
	h1.Stop()
	assertStopped(t, h1)
}
