package harness

import (
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/lemonade-sdk/server-test-harness/framework"
	"github.com/lemonade-sdk/server-test-harness/framework/helpers"

	"github.com/stretchr/testify/assert"
)

func capturedMessages(logger *framework.CapturingLogger) []string {
	var ret []string
	for _, m := range logger.Output() {
		ret = append(ret, m.Message)
	}
	return ret
}

func TestRelayLinesForwardsEachLineWithPrefix(t *testing.T) {
	reader, writer := io.Pipe()
	logger := &framework.CapturingLogger{}

	RelayLines(reader, serverStdoutPrefix, logger)

	go func() {
		_, _ = io.WriteString(writer, "starting up\nlistening on port 8000\n")
		_ = writer.Close()
	}()

	helpers.AssertEventually(t, func() bool {
		return len(logger.Output()) == 2
	}, time.Second*5, time.Millisecond*10, "expected 2 relayed lines")

	assert.Equal(t, []string{
		"[server stdout] starting up",
		"[server stdout] listening on port 8000",
	}, capturedMessages(logger))
}

func TestRelayLinesStopsWhenStreamCloses(t *testing.T) {
	reader, writer := io.Pipe()
	logger := &framework.CapturingLogger{}

	RelayLines(reader, serverStderrPrefix, logger)

	go func() {
		_, _ = io.WriteString(writer, "partial line without newline")
		_ = writer.Close()
	}()

	// the scanner should still emit the final unterminated line
	helpers.AssertEventually(t, func() bool {
		return len(logger.Output()) == 1
	}, time.Second*5, time.Millisecond*10, "expected the final line to be relayed")

	assert.Equal(t, []string{"[server stderr] partial line without newline"}, capturedMessages(logger))
}

func TestFilteredLogger(t *testing.T) {
	logger := &framework.CapturingLogger{}
	filtered := FilteredLogger(logger, []*regexp.Regexp{regexp.MustCompile(`DEBUG`)})

	filtered.Printf("DEBUG noisy internals %d", 1)
	filtered.Printf("useful message %d", 2)
	filtered.Println("DEBUG more noise")
	filtered.Println("another useful message")

	assert.Equal(t, []string{"useful message 2", "another useful message"}, capturedMessages(logger))
}

func TestFilteredLoggerWithNoPatternsIsPassthrough(t *testing.T) {
	logger := &framework.CapturingLogger{}
	filtered := FilteredLogger(logger, nil)

	filtered.Printf("hello")
	assert.Equal(t, []string{"hello"}, capturedMessages(logger))
}
