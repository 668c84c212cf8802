package client

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"pilot/internal/config"
	"pilot/internal/types"
)

func streamDebugEnabled() bool {
	return strings.TrimSpace(os.Getenv("PILOT_STREAM_DEBUG")) == "1"
}

var (
	streamLogger     *log.Logger
	streamLoggerOnce sync.Once
)

func streamDebugLogger() *log.Logger {
	if !streamDebugEnabled() {
		return nil
	}
	streamLoggerOnce.Do(func() {
		path, err := config.StreamLogPath()
		if err != nil || path == "" {
			streamLogger = log.New(os.Stderr, "stream ", log.LstdFlags)
			return
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			streamLogger = log.New(os.Stderr, "stream ", log.LstdFlags)
			return
		}
		streamLogger = log.New(file, "stream ", log.LstdFlags)
	})
	return streamLogger
}

func streamLogf(format string, args ...any) {
	logger := streamDebugLogger()
	if logger == nil {
		return
	}
	logger.Printf(format, args...)
}

// decodeEventStream reads blank-line separated event/data blocks from r and
// sends each decoded event to ch in order. Blocks with malformed JSON or an
// unknown event name are dropped and decoding continues. A block still
// buffered when r ends is dispatched as the final event. The caller closes
// ch after this returns; that close is the transport-done signal.
func decodeEventStream(ctx context.Context, r io.Reader, ch chan<- types.AgentEvent) (count, dropped int) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	var dataLines []string

	dispatch := func() bool {
		if eventName == "" && len(dataLines) == 0 {
			return true
		}
		name := eventName
		payload := strings.Join(dataLines, "\n")
		eventName = ""
		dataLines = dataLines[:0]

		if !knownEventName(name) || !json.Valid([]byte(payload)) {
			dropped++
			streamLogf("stream drop event=%q", name)
			return true
		}
		event := types.AgentEvent{
			Name: types.AgentEventName(name),
			Data: json.RawMessage(payload),
		}
		select {
		case ch <- event:
			count++
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !dispatch() {
				return count, dropped
			}
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
		}
	}
	if err := scanner.Err(); err != nil {
		streamLogf("stream scan error err=%v", err)
	}
	dispatch()
	return count, dropped
}

func knownEventName(name string) bool {
	switch types.AgentEventName(name) {
	case types.EventTextDelta, types.EventToolStart, types.EventToolProgress,
		types.EventToolResult, types.EventActionConfirm, types.EventActionResult,
		types.EventError, types.EventDone:
		return true
	}
	return false
}
