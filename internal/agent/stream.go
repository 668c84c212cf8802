package agent

import "pilot/internal/types"

// streamState owns the live event stream. Only one stream is active at a
// time; starting a new one cancels its predecessor first, and cancelling
// detaches the channel, so a superseded stream's trailing events are never
// consumed and can never reopen the log.
type streamState struct {
	events <-chan types.AgentEvent
	cancel func()
}

func (s *streamState) Start(events <-chan types.AgentEvent, cancel func()) {
	if s == nil {
		return
	}
	s.Cancel()
	s.events = events
	s.cancel = cancel
}

// Cancel aborts the transport and detaches the stream. Idempotent.
func (s *streamState) Cancel() {
	if s == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.clear()
}

func (s *streamState) clear() {
	if s == nil {
		return
	}
	s.cancel = nil
	s.events = nil
}

func (s *streamState) Active() bool {
	return s != nil && s.events != nil
}
