package harness

import (
	"bufio"
	"fmt"
	"io"
	"regexp"

	"github.com/lemonade-sdk/server-test-harness/framework"
)

const (
	serverStdoutPrefix = "[server stdout]"
	serverStderrPrefix = "[server stderr]"

	// Server log lines can get long when request bodies are echoed at debug level.
	relayMaxLineLength = 1024 * 1024
)

// RelayLines starts a goroutine that reads lines from the stream until it is closed,
// forwarding each one to the logger with the given prefix. The goroutine is detached:
// nothing joins it or waits for it, it just exits when the pipe closes. Draining the
// stream continuously is what keeps the server from blocking on a full pipe buffer.
func RelayLines(stream io.Reader, prefix string, logger framework.Logger) {
	go func() {
		scanner := bufio.NewScanner(stream)
		scanner.Buffer(make([]byte, 0, 64*1024), relayMaxLineLength)
		for scanner.Scan() {
			logger.Printf("%s %s", prefix, scanner.Text())
		}
		// A scanner error here is almost always the pipe being torn down at stop;
		// there is nobody left who would care.
	}()
}

// FilteredLogger returns a logger that drops any line matching one of the exclude
// patterns and passes everything else through. Useful for muting the noisier categories
// of server debug output without losing the rest.
func FilteredLogger(logger framework.Logger, excludePatterns []*regexp.Regexp) framework.Logger {
	if len(excludePatterns) == 0 {
		return logger
	}
	return &filteredLogger{logger: logger, exclude: excludePatterns}
}

type filteredLogger struct {
	logger  framework.Logger
	exclude []*regexp.Regexp
}

func (f *filteredLogger) Println(args ...interface{}) {
	if f.excluded(fmt.Sprintln(args...)) {
		return
	}
	f.logger.Println(args...)
}

func (f *filteredLogger) Printf(message string, args ...interface{}) {
	if f.excluded(fmt.Sprintf(message, args...)) {
		return
	}
	f.logger.Printf(message, args...)
}

func (f *filteredLogger) excluded(line string) bool {
	for _, r := range f.exclude {
		if r.MatchString(line) {
			return true
		}
	}
	return false
}
