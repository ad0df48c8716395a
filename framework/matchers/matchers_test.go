package matchers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type namedThing string

func (n namedThing) String() string { return "the thing called " + string(n) }

func assertPasses(t *testing.T, value interface{}, m Matcher) {
	t.Helper()
	pass, desc := m.Test(value)
	assert.True(t, pass)
	assert.Equal(t, "", desc)
}

func assertFails(t *testing.T, value interface{}, m Matcher, expectedDesc string) {
	t.Helper()
	pass, desc := m.Test(value)
	assert.False(t, pass)
	assert.Equal(t, expectedDesc, desc)
}

func TestEqual(t *testing.T) {
	assertPasses(t, 3, Equal(3))
	assertFails(t, 4, Equal(3), "expected: equal to 3\nactual value was: 4")

	assertPasses(t, map[string][]int{"a": {1, 2}}, Equal(map[string][]int{"a": {1, 2}}))
}

func TestFailureMessageUsesStringer(t *testing.T) {
	assertFails(t, namedThing("b"), Equal(namedThing("a")),
		"expected: equal to the thing called a\nactual value was: the thing called b")
}

func TestNot(t *testing.T) {
	assertPasses(t, 4, Not(Equal(3)))
	assertFails(t, 3, Not(Equal(3)), "expected: not (equal to 3)\nactual value was: 3")
}

func TestAllOf(t *testing.T) {
	hasPrefix := func(prefix string) Matcher {
		return New(
			func(value interface{}) bool {
				s, ok := value.(string)
				return ok && len(s) >= len(prefix) && s[:len(prefix)] == prefix
			},
			func(interface{}) string { return fmt.Sprintf("starts with %q", prefix) },
		)
	}
	assertPasses(t, "ab", AllOf(hasPrefix("a"), Not(Equal("a"))))
	assertFails(t, "b", AllOf(hasPrefix("a"), Not(Equal("b"))),
		"expected: (starts with \"a\") and (not (equal to b))\nactual value was: b")
	assertFails(t, "bc", AllOf(hasPrefix("a"), Not(Equal("b"))),
		"expected: starts with \"a\"\nactual value was: bc")
}

func TestItemsInAnyOrder(t *testing.T) {
	slice := []string{"y", "z", "x"}

	assertPasses(t, slice, ItemsInAnyOrder(Equal("y"), Equal("z"), Equal("x")))
	assertPasses(t, slice, ItemsInAnyOrder(Equal("z"), Equal("x"), Equal("y")))

	assertFails(t, slice, ItemsInAnyOrder(Equal("x"), Equal("y")),
		"expected: a slice of 2 item(s) (had 3)\nactual value was: [y z x]")
	assertFails(t, slice, ItemsInAnyOrder(Equal("x"), Equal("a"), Equal("z")),
		"expected: items in any order: (equal to x), (equal to a), (equal to z)"+
			"\nactual value was: [y z x]")

	// Each matcher must claim a distinct item.
	assertFails(t, []string{"x", "y"}, ItemsInAnyOrder(Equal("x"), Equal("x")),
		"expected: items in any order: (equal to x), (equal to x)"+
			"\nactual value was: [x y]")

	assertFails(t, "not a slice", ItemsInAnyOrder(Equal("x")),
		"expected: a slice\nactual value was: not a slice")
}

func TestAssertReportsThroughTestingT(t *testing.T) {
	recorder := &failureRecorder{}
	assert.True(t, Equal(1).Assert(recorder, 1))
	assert.Empty(t, recorder.messages)

	assert.False(t, Equal(1).Assert(recorder, 2))
	assert.Len(t, recorder.messages, 1)
	assert.Contains(t, recorder.messages[0], "expected: equal to 1")
	assert.Contains(t, recorder.messages[0], "actual value was: 2")
}

type failureRecorder struct {
	messages []string
	stopped  bool
}

func (r *failureRecorder) Errorf(format string, args ...interface{}) {
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *failureRecorder) FailNow() { r.stopped = true }
