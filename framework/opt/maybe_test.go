package opt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

func TestZeroValueHoldsNothing(t *testing.T) {
	var m Maybe[int]
	assert.False(t, m.IsDefined())
	assert.Equal(t, None[int](), m)
}

func TestNoneValueIsTheZeroValue(t *testing.T) {
	assert.Equal(t, 0, None[int]().Value())
	assert.Equal(t, "", None[string]().Value())
	assert.Nil(t, None[*string]().Value())
	assert.Equal(t, pair{}, None[pair]().Value())
}

func TestSome(t *testing.T) {
	assert.True(t, Some("").IsDefined())
	assert.Equal(t, 1, Some(1).Value())
	assert.Equal(t, pair{Left: "a"}, Some(pair{Left: "a"}).Value())
}

func TestString(t *testing.T) {
	assert.Equal(t, "[none]", None[int]().String())
	assert.Equal(t, "3", Some(3).String())
	assert.Equal(t, "[none]", Some(None[int]()).String()) // the inner Stringer is used
}

func TestJSONRoundTrip(t *testing.T) {
	roundTrip(t, None[int](), "null")
	roundTrip(t, Some(3), "3")
	roundTrip(t, Some(pair{Left: "x"}), `{"left": "x", "right": ""}`)
}

func TestUnmarshalErrors(t *testing.T) {
	var m Maybe[pair]
	assert.Error(t, m.UnmarshalJSON([]byte(`malformed`)))
	assert.Error(t, m.UnmarshalJSON([]byte(`{"left": true}`)))
}

func roundTrip[V any](t *testing.T, expected Maybe[V], expectedJSON string) {
	t.Helper()
	data, err := json.Marshal(expected)
	require.NoError(t, err)
	assert.JSONEq(t, expectedJSON, string(data))

	var actual Maybe[V]
	require.NoError(t, json.Unmarshal([]byte(expectedJSON), &actual))
	assert.Equal(t, expected, actual)
}
