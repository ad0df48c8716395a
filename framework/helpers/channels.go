package helpers

import (
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework/opt"
)

// TryReceive does a channel receive bounded by a timeout, returning the value it got
// or an empty Maybe if the timeout elapsed first.
func TryReceive[V any](ch <-chan V, timeout time.Duration) opt.Maybe[V] {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case value := <-ch:
		return opt.Some(value)
	case <-deadline.C:
		return opt.None[V]()
	}
}

// RequireValue receives a value within the timeout or stops the test.
func RequireValue[V any](t TestContext, ch <-chan V, timeout time.Duration) V {
	t.Helper()
	var empty V
	return RequireValueWithMessage(t, ch, timeout, "timed out waiting for value of type %T", empty)
}

// RequireValueWithMessage is RequireValue with a caller-supplied failure message.
func RequireValueWithMessage[V any](
	t TestContext,
	ch <-chan V,
	timeout time.Duration,
	msgFormat string,
	msgArgs ...interface{},
) V {
	t.Helper()
	maybeValue := TryReceive(ch, timeout)
	if !maybeValue.IsDefined() {
		t.Errorf(msgFormat, msgArgs...)
		t.FailNow()
	}
	return maybeValue.Value()
}
