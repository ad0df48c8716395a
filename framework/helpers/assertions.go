package helpers

import (
	"time"
)

// PollUntil calls testFn at the given interval until it returns true or the timeout
// elapses, and reports whether it ever returned true. Unlike testify's Eventually it
// runs testFn on the calling goroutine, which matters inside lmtest scopes where
// FailNow is panic-based.
func PollUntil(testFn func() bool, timeout, interval time.Duration) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-deadline.C:
			return false
		case <-ticker.C:
			if testFn() {
				return true
			}
		}
	}
}

// AssertEventually polls testFn until it returns true, failing the test (without
// stopping it) if the timeout elapses first.
func AssertEventually(
	t TestContext,
	testFn func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) bool {
	t.Helper()
	if PollUntil(testFn, timeout, interval) {
		return true
	}
	t.Errorf(failureMsgFormat, failureMsgArgs...)
	return false
}

// RequireEventually is AssertEventually plus an immediate stop on failure.
func RequireEventually(
	t TestContext,
	testFn func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) {
	t.Helper()
	if !AssertEventually(t, testFn, timeout, interval, failureMsgFormat, failureMsgArgs...) {
		t.FailNow()
	}
}
