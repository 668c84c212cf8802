package store

import (
	"context"
	"sync"
	"time"

	"pilot/internal/logging"
	"pilot/internal/types"
)

const DefaultSaveDebounce = 500 * time.Millisecond

// LogWriter is the slice of ConversationService the saver needs.
type LogWriter interface {
	SaveLog(ctx context.Context, id string, items []types.ChatItem) error
}

// DebouncedSaver coalesces bursts of save requests into one write after a
// quiet period. Schedule captures the payload, so the timer goroutine never
// touches session state; Flush writes any pending payload immediately.
type DebouncedSaver struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	writer  LogWriter
	log     logging.Logger
	id      string
	items   []types.ChatItem
	pending bool
}

func NewDebouncedSaver(writer LogWriter, delay time.Duration, logger logging.Logger) *DebouncedSaver {
	if delay <= 0 {
		delay = DefaultSaveDebounce
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &DebouncedSaver{delay: delay, writer: writer, log: logger}
}

func (s *DebouncedSaver) Schedule(conversationID string, items []types.ChatItem) {
	if s == nil || conversationID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = conversationID
	s.items = items
	s.pending = true
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.fire)
		return
	}
	s.timer.Reset(s.delay)
}

func (s *DebouncedSaver) fire() {
	s.mu.Lock()
	id, items, pending := s.id, s.items, s.pending
	s.pending = false
	s.mu.Unlock()
	if !pending {
		return
	}
	s.write(id, items)
}

// Flush writes a pending payload now, cancelling the armed timer.
func (s *DebouncedSaver) Flush() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	id, items, pending := s.id, s.items, s.pending
	s.pending = false
	s.mu.Unlock()
	if !pending {
		return
	}
	s.write(id, items)
}

// Stop discards any pending payload without writing it.
func (s *DebouncedSaver) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = false
}

// Persistence failures degrade; the session keeps running unpersisted.
func (s *DebouncedSaver) write(id string, items []types.ChatItem) {
	if s.writer == nil {
		return
	}
	if err := s.writer.SaveLog(context.Background(), id, items); err != nil {
		s.log.Warn("conversation save failed", logging.F("id", id), logging.F("err", err))
	}
}
