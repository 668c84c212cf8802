package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"pilot/internal/types"
)

type captureWriter struct {
	mu     sync.Mutex
	writes []captureWrite
}

type captureWrite struct {
	id    string
	items []types.ChatItem
}

func (w *captureWriter) SaveLog(ctx context.Context, id string, items []types.ChatItem) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, captureWrite{id: id, items: items})
	return nil
}

func (w *captureWriter) snapshot() []captureWrite {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]captureWrite, len(w.writes))
	copy(out, w.writes)
	return out
}

func TestDebounceCoalescesBursts(t *testing.T) {
	writer := &captureWriter{}
	saver := NewDebouncedSaver(writer, 30*time.Millisecond, nil)
	defer saver.Stop()

	for i := 0; i < 5; i++ {
		saver.Schedule("conv_a", []types.ChatItem{{ID: "item-1"}, {ID: "item-2"}})
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(writer.snapshot()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	writes := writer.snapshot()
	if len(writes) != 1 {
		t.Fatalf("burst produced %d writes, want 1", len(writes))
	}
	if writes[0].id != "conv_a" || len(writes[0].items) != 2 {
		t.Fatalf("unexpected write %+v", writes[0])
	}
}

func TestFlushWritesImmediately(t *testing.T) {
	writer := &captureWriter{}
	saver := NewDebouncedSaver(writer, time.Hour, nil)
	defer saver.Stop()

	saver.Schedule("conv_a", []types.ChatItem{{ID: "item-1"}})
	saver.Flush()

	writes := writer.snapshot()
	if len(writes) != 1 || writes[0].id != "conv_a" {
		t.Fatalf("flush did not write: %+v", writes)
	}
	// Nothing pending, so another flush is a no-op.
	saver.Flush()
	if len(writer.snapshot()) != 1 {
		t.Fatalf("flush wrote a stale payload twice")
	}
}

func TestStopDiscardsPending(t *testing.T) {
	writer := &captureWriter{}
	saver := NewDebouncedSaver(writer, 20*time.Millisecond, nil)

	saver.Schedule("conv_a", []types.ChatItem{{ID: "item-1"}})
	saver.Stop()

	time.Sleep(80 * time.Millisecond)
	if len(writer.snapshot()) != 0 {
		t.Fatalf("stopped saver still wrote")
	}
}

func TestScheduleKeepsLatestPayload(t *testing.T) {
	writer := &captureWriter{}
	saver := NewDebouncedSaver(writer, time.Hour, nil)
	defer saver.Stop()

	saver.Schedule("conv_a", []types.ChatItem{{ID: "item-1"}})
	saver.Schedule("conv_a", []types.ChatItem{{ID: "item-1"}, {ID: "item-2"}, {ID: "item-3"}})
	saver.Flush()

	writes := writer.snapshot()
	if len(writes) != 1 || len(writes[0].items) != 3 {
		t.Fatalf("stale payload written: %+v", writes)
	}
}

func TestScheduleIgnoresEmptyID(t *testing.T) {
	writer := &captureWriter{}
	saver := NewDebouncedSaver(writer, time.Hour, nil)
	defer saver.Stop()

	saver.Schedule("", []types.ChatItem{{ID: "item-1"}})
	saver.Flush()
	if len(writer.snapshot()) != 0 {
		t.Fatalf("unpersisted conversation must not write")
	}
}
