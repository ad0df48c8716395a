package helpers

import (
	"fmt"
	"strings"
)

// testRecorder implements TestContext for testing the helpers themselves. FailNow
// panics with the recorder as the value, mirroring how lmtest terminates a test.
type testRecorder struct {
	errors     []string
	terminated bool
}

func (r *testRecorder) Errorf(msgFormat string, msgArgs ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(msgFormat, msgArgs...))
}

func (r *testRecorder) FailNow() {
	r.terminated = true
	panic(r)
}

func (r *testRecorder) Helper() {}

func (r *testRecorder) failureText() string { return strings.Join(r.errors, ", ") }

// capturingTermination runs an action that may call FailNow and absorbs the resulting
// panic, so a test can assert on what the recorder saw.
func (r *testRecorder) capturingTermination(action func()) {
	defer func() {
		if p := recover(); p != nil && p != interface{}(r) {
			panic(p)
		}
	}()
	action()
}
