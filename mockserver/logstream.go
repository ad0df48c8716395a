package mockserver

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/lemonade-sdk/server-test-harness/framework"

	"github.com/launchdarkly/eventsource"
)

const logChannel = "logs"

type eventSourceDebugLogger struct {
	logger framework.Logger
}

func (l eventSourceDebugLogger) Println(args ...interface{}) {
	l.logger.Printf("%s", fmt.Sprintln(args...))
}

func (l eventSourceDebugLogger) Printf(fmt string, args ...interface{}) {
	l.logger.Printf(fmt, args)
}

// LogStreamService is the mock's GET /logs/stream endpoint: an SSE stream of server
// log lines. Lines appended before a client connects are replayed to it on connection,
// so a test never races the activity it wants to observe.
type LogStreamService struct {
	streams *eventsource.Server
	lines   []string
	closed  bool
	logger  framework.Logger
	lock    sync.RWMutex
}

type logLineEvent struct {
	line string
}

func NewLogStreamService(logger framework.Logger) *LogStreamService {
	streams := eventsource.NewServer()
	streams.ReplayAll = true
	streams.Logger = eventSourceDebugLogger{logger}

	s := &LogStreamService{
		streams: streams,
		logger:  logger,
	}
	streams.Register(logChannel, s)

	return s
}

func (s *LogStreamService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.streams.Handler(logChannel)(w, r)
	s.logger.Printf("End of log stream request")
}

// Append records a log line and pushes it to every connected stream.
func (s *LogStreamService) Append(line string) {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.lines = append(s.lines, line)
	s.lock.Unlock()
	s.streams.Publish([]string{logChannel}, logLineEvent{line})
}

// Lines returns every line appended so far, in order.
func (s *LogStreamService) Lines() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]string(nil), s.lines...)
}

// Replay provides the buffered lines to each newly connected client. The eventsource
// server API expects a channel; we pre-populate one with a snapshot and close it.
func (s *LogStreamService) Replay(channel, id string) chan eventsource.Event {
	s.lock.RLock()
	buffered := append([]string(nil), s.lines...)
	s.lock.RUnlock()

	eventsCh := make(chan eventsource.Event, len(buffered))
	for _, line := range buffered {
		eventsCh <- logLineEvent{line}
	}
	close(eventsCh)
	return eventsCh
}

// Close shuts down every open stream. Appends after Close are discarded.
func (s *LogStreamService) Close() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.closed = true
	s.lock.Unlock()
	s.streams.Close()
}

func (e logLineEvent) Event() string { return "" }
func (e logLineEvent) Id() string    { return "" } //nolint:stylecheck
func (e logLineEvent) Data() string  { return e.line }
