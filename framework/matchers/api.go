// Package matchers is a small self-describing assertion DSL. A Matcher is built
// independently of any particular value, can be combined with other matchers, and
// produces its own failure message, so a failed assertion reports both what was
// expected and what was actually seen.
package matchers

import (
	"fmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Matcher is a reusable expectation about a value.
type Matcher struct {
	test        func(value interface{}) bool
	expectation func(value interface{}) string
}

// New creates a Matcher from a test function and a function describing the
// expectation. The description is only evaluated on failure; it receives the value
// under test in case the wording should depend on it.
func New(test func(value interface{}) bool, expectation func(value interface{}) string) Matcher {
	return Matcher{test: test, expectation: expectation}
}

// Test applies the matcher to a value. On failure the returned string describes both
// the expectation and the actual value.
func (m Matcher) Test(value interface{}) (pass bool, failDescription string) {
	if m.test(value) {
		return true, ""
	}
	return false, fmt.Sprintf("expected: %s\nactual value was: %s",
		m.expectation(value), describeValue(value))
}

// Assert tests the value, reporting any failure through the testify assert API (which
// lmtest.T also satisfies) without stopping the test.
func (m Matcher) Assert(t assert.TestingT, value interface{}) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	if pass, desc := m.Test(value); !pass {
		assert.Fail(t, desc)
		return false
	}
	return true
}

// Require is like Assert but stops the test on failure, via the testify require API.
func (m Matcher) Require(t require.TestingT, value interface{}) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	if pass, desc := m.Test(value); !pass {
		require.Fail(t, desc)
		return false
	}
	return true
}

// describeValue renders a value for a failure message, preferring its own String
// method when it has one.
func describeValue(value interface{}) string {
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%+v", value)
}
