package helpers

import (
	"testing"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework/opt"

	"github.com/stretchr/testify/assert"
)

func TestTryReceive(t *testing.T) {
	ch := make(chan string, 1)
	assert.Equal(t, opt.None[string](), TryReceive(ch, time.Millisecond))

	ch <- "a"
	assert.Equal(t, opt.Some("a"), TryReceive(ch, time.Millisecond))

	go func() {
		time.Sleep(time.Millisecond * 50)
		ch <- "b"
	}()
	assert.Equal(t, opt.Some("b"), TryReceive(ch, time.Second))
}

func TestRequireValue(t *testing.T) {
	t.Run("value arrives in time", func(t *testing.T) {
		var tr testRecorder
		ch := make(chan string, 1)
		ch <- "a"
		assert.Equal(t, "a", RequireValue(&tr, ch, time.Millisecond))
		assert.Empty(t, tr.errors)
	})

	t.Run("value arrives late but within the timeout", func(t *testing.T) {
		var tr testRecorder
		ch := make(chan string, 1)
		go func() {
			time.Sleep(time.Millisecond * 50)
			ch <- "b"
		}()
		assert.Equal(t, "b", RequireValue(&tr, ch, time.Second))
		assert.Empty(t, tr.errors)
	})

	t.Run("timeout", func(t *testing.T) {
		var tr testRecorder
		ch := make(chan string, 1)
		tr.capturingTermination(func() { _ = RequireValue(&tr, ch, time.Millisecond) })
		assert.True(t, tr.terminated)
		assert.Contains(t, tr.failureText(), "waiting for value of type string")
	})

	t.Run("timeout with a custom message", func(t *testing.T) {
		var tr testRecorder
		ch := make(chan int, 1)
		tr.capturingTermination(func() {
			_ = RequireValueWithMessage(&tr, ch, time.Millisecond, "no %s arrived", "number")
		})
		assert.True(t, tr.terminated)
		assert.Equal(t, []string{"no number arrived"}, tr.errors)
	})
}
