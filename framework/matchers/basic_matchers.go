package matchers

import (
	"fmt"
	"reflect"
	"strings"
)

// Equal matches any value deeply equal to the expected one.
func Equal(expected interface{}) Matcher {
	return New(
		func(value interface{}) bool {
			return reflect.DeepEqual(value, expected)
		},
		func(interface{}) string {
			return fmt.Sprintf("equal to %s", describeValue(expected))
		},
	)
}

// Not inverts another matcher.
func Not(matcher Matcher) Matcher {
	return New(
		func(value interface{}) bool {
			return !matcher.test(value)
		},
		func(value interface{}) string {
			return fmt.Sprintf("not (%s)", matcher.expectation(value))
		},
	)
}

// AllOf requires the value to satisfy every one of the matchers. The failure message
// only mentions the expectations that were not met.
func AllOf(matchers ...Matcher) Matcher {
	return New(
		func(value interface{}) bool {
			for _, m := range matchers {
				if !m.test(value) {
					return false
				}
			}
			return true
		},
		func(value interface{}) string {
			var unmet []string
			for _, m := range matchers {
				if !m.test(value) {
					unmet = append(unmet, m.expectation(value))
				}
			}
			if len(unmet) == 1 {
				return unmet[0]
			}
			return "(" + strings.Join(unmet, ") and (") + ")"
		},
	)
}

// ItemsInAnyOrder matches a slice that has exactly one item for each of the given
// matchers, in any order.
func ItemsInAnyOrder(matchers ...Matcher) Matcher {
	return New(
		func(value interface{}) bool {
			v := reflect.ValueOf(value)
			if v.Kind() != reflect.Slice || v.Len() != len(matchers) {
				return false
			}
			// Greedy assignment is good enough here: the matchers these tests use
			// are specific enough that no two of them accept the same item.
			used := make([]bool, v.Len())
			for _, m := range matchers {
				found := false
				for i := 0; i < v.Len(); i++ {
					if !used[i] && m.test(v.Index(i).Interface()) {
						used[i] = true
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		},
		func(value interface{}) string {
			v := reflect.ValueOf(value)
			if v.Kind() != reflect.Slice {
				return "a slice"
			}
			if v.Len() != len(matchers) {
				return fmt.Sprintf("a slice of %d item(s) (had %d)", len(matchers), v.Len())
			}
			expectations := make([]string, 0, len(matchers))
			for _, m := range matchers {
				expectations = append(expectations, "("+m.expectation(value)+")")
			}
			return "items in any order: " + strings.Join(expectations, ", ")
		},
	)
}
