package harness

import (
	"github.com/lemonade-sdk/server-test-harness/framework"
)

// Lifecycle decides when the server under test is started and stopped. The suite
// runner calls BeginScope before each test body and EndScope after it, and Close
// exactly once when the run is over, regardless of how it ended. At most one server
// handle is live per scope.
type Lifecycle interface {
	// BeginScope returns the handle the next test should run against, starting a
	// server first if the policy calls for one.
	BeginScope() (*ServerProcessHandle, error)

	// EndScope is called when the test body has finished with the handle.
	EndScope(handle *ServerProcessHandle)

	// Describe returns a short human-readable name for the policy.
	Describe() string

	// Close releases anything still running. It is safe to call after a failure at
	// any earlier point, including a BeginScope that returned an error.
	Close()
}

// PerSuiteLifecycle starts one server lazily on the first BeginScope and keeps it
// running for every subsequent scope. All tests in the run share that server and
// whatever state previous tests left in it, in execution order. Tests that cannot
// tolerate a shared server must arrange their own process instead of relying on
// this policy.
type PerSuiteLifecycle struct {
	harness      *ServerHarness
	options      []StartOption
	handle       *ServerProcessHandle
	leaveRunning bool
	logger       framework.Logger
}

// NewPerSuiteLifecycle creates the shared-server policy. If leaveRunning is true,
// Close leaves the server process up for postmortem inspection instead of stopping it.
func NewPerSuiteLifecycle(
	h *ServerHarness,
	leaveRunning bool,
	logger framework.Logger,
	options ...StartOption,
) *PerSuiteLifecycle {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &PerSuiteLifecycle{harness: h, options: options, leaveRunning: leaveRunning, logger: logger}
}

func (l *PerSuiteLifecycle) BeginScope() (*ServerProcessHandle, error) {
	if l.handle != nil {
		return l.handle, nil
	}
	l.harness.StopAnyServer()
	handle, err := l.harness.StartServer(l.options...)
	if err != nil {
		return nil, err
	}
	l.handle = handle
	return handle, nil
}

func (l *PerSuiteLifecycle) EndScope(handle *ServerProcessHandle) {}

func (l *PerSuiteLifecycle) Describe() string { return "per-suite" }

func (l *PerSuiteLifecycle) Close() {
	if l.handle == nil {
		return
	}
	if l.leaveRunning {
		l.logger.Printf("Leaving server running as requested")
	} else {
		l.handle.Stop()
	}
	l.handle = nil
}

// PerTestLifecycle starts a fresh server for every scope and stops it afterward. Each
// test sees pristine server state at the cost of a start/stop cycle per test; it also
// means tests are strictly serialized around the one listening port.
type PerTestLifecycle struct {
	harness *ServerHarness
	options []StartOption
	current *ServerProcessHandle
}

// NewPerTestLifecycle creates the fresh-server-per-test policy.
func NewPerTestLifecycle(h *ServerHarness, options ...StartOption) *PerTestLifecycle {
	return &PerTestLifecycle{harness: h, options: options}
}

func (l *PerTestLifecycle) BeginScope() (*ServerProcessHandle, error) {
	if l.current != nil {
		// A previous scope leaked its handle; clean it up rather than leaving two
		// processes fighting over the port.
		l.current.Stop()
		l.current = nil
	}
	l.harness.StopAnyServer()
	handle, err := l.harness.StartServer(l.options...)
	if err != nil {
		return nil, err
	}
	l.current = handle
	return handle, nil
}

func (l *PerTestLifecycle) EndScope(handle *ServerProcessHandle) {
	handle.Stop()
	if l.current == handle {
		l.current = nil
	}
}

func (l *PerTestLifecycle) Describe() string { return "per-test" }

func (l *PerTestLifecycle) Close() {
	if l.current != nil {
		l.current.Stop()
		l.current = nil
	}
}
