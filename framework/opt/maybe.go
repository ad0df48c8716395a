// Package opt provides an optional-value type. The wire types in servicedef use it for
// fields where the server distinguishes "absent" from a zero value, and the rest of the
// harness uses it wherever a value may legitimately not exist.
package opt

import (
	"encoding/json"
	"fmt"
)

// Maybe holds either a value of type V or nothing. The zero Maybe holds nothing.
type Maybe[V any] struct {
	defined bool
	value   V
}

// Some wraps a value.
func Some[V any](value V) Maybe[V] {
	return Maybe[V]{defined: true, value: value}
}

// None is the empty Maybe.
func None[V any]() Maybe[V] { return Maybe[V]{} }

// IsDefined reports whether there is a value.
func (m Maybe[V]) IsDefined() bool { return m.defined }

// Value returns the value, or the zero value of V when there is none. Callers that
// need to tell those apart check IsDefined first.
func (m Maybe[V]) Value() V { return m.value }

// String renders the value with its own String method if it has one, otherwise with
// the %v verb; an empty Maybe renders as "[none]".
func (m Maybe[V]) String() string {
	if !m.defined {
		return "[none]"
	}
	if s, ok := any(m.value).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", m.value)
}

// MarshalJSON writes the value's normal JSON representation, or null when empty.
func (m Maybe[V]) MarshalJSON() ([]byte, error) {
	if !m.defined {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

// UnmarshalJSON reads a JSON null as the empty Maybe and anything else as a value of
// type V.
func (m *Maybe[V]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = None[V]()
		return nil
	}
	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*m = Some(value)
	return nil
}
