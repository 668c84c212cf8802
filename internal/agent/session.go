package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"pilot/internal/client"
	"pilot/internal/logging"
	"pilot/internal/types"
)

const defaultMaxEventsPerTick = 64

var (
	ErrEmptyMessage  = errors.New("message is empty")
	ErrStreamActive  = errors.New("a response is still streaming")
	ErrActionPending = errors.New("resolve the pending action first")
)

// AgentAPI is the slice of the REST client the session drives. Each call
// returns an event channel (closed on transport end) and a cancel func that
// aborts the transport.
type AgentAPI interface {
	Chat(ctx context.Context, req client.ChatRequest) (<-chan types.AgentEvent, func(), error)
	ConfirmAction(ctx context.Context, actionID string) (<-chan types.AgentEvent, func(), error)
	RejectAction(ctx context.Context, actionID string) (<-chan types.AgentEvent, func(), error)
}

// ConversationStore is the durable storage the session persists finalized
// logs to and hydrates them from.
type ConversationStore interface {
	Create(ctx context.Context) (*types.ConversationMeta, error)
	List(ctx context.Context) ([]*types.ConversationMeta, error)
	LoadLog(ctx context.Context, id string) ([]types.ChatItem, error)
	SaveLog(ctx context.Context, id string, items []types.ChatItem) error
	Delete(ctx context.Context, id string) error
}

// LogSaver debounces persistence writes. Schedule replaces any pending
// payload; Flush writes a pending payload immediately; Stop discards a
// pending payload without writing it.
type LogSaver interface {
	Schedule(conversationID string, items []types.ChatItem)
	Flush()
	Stop()
}

type SessionOptions struct {
	FlushInterval    time.Duration
	MaxEventsPerTick int
	Logger           logging.Logger
}

// Session is the stateful controller behind the chat view: the item log,
// the loading flag, pending confirmations, and the artifact canvas. All
// methods must be called from a single goroutine; the only concurrency is
// the decoder goroutine feeding the event channel consumed by ConsumeTick.
type Session struct {
	api   AgentAPI
	store ConversationStore
	saver LogSaver
	log   logging.Logger

	items            *itemLog
	coalescer        *textCoalescer
	gate             *actionGate
	stream           *streamState
	loading          bool
	canvas           *types.CanvasData
	conversationID   string
	maxEventsPerTick int
}

func NewSession(api AgentAPI, store ConversationStore, saver LogSaver, opts SessionOptions) *Session {
	interval := opts.FlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	perTick := opts.MaxEventsPerTick
	if perTick <= 0 {
		perTick = defaultMaxEventsPerTick
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Session{
		api:              api,
		store:            store,
		saver:            saver,
		log:              logger,
		items:            newItemLog(),
		coalescer:        newTextCoalescer(interval),
		gate:             newActionGate(),
		stream:           &streamState{},
		maxEventsPerTick: perTick,
	}
}

func (s *Session) Items() []types.ChatItem {
	if s == nil {
		return nil
	}
	return s.items.Items()
}

func (s *Session) Loading() bool {
	return s != nil && s.loading
}

func (s *Session) PendingActions() []string {
	if s == nil {
		return nil
	}
	return s.gate.Pending()
}

func (s *Session) Canvas() *types.CanvasData {
	if s == nil {
		return nil
	}
	return s.canvas
}

func (s *Session) CloseCanvas() {
	if s == nil {
		return
	}
	s.canvas = nil
}

func (s *Session) ConversationID() string {
	if s == nil {
		return ""
	}
	return s.conversationID
}

// SendMessage appends a user turn and opens the response stream. It fails
// fast, before any network traffic, on empty input, an active stream, or an
// unresolved action confirmation.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	if s == nil {
		return ErrEmptyMessage
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if s.loading {
		return ErrStreamActive
	}
	if s.gate.HasPending() {
		return ErrActionPending
	}

	s.ensureConversation(ctx)
	s.items.appendUser(text)
	s.scheduleSave()

	s.loading = true
	events, cancel, err := s.api.Chat(ctx, client.ChatRequest{
		Messages:       historyFromItems(s.items.Items()),
		ConversationID: s.conversationID,
	})
	if err != nil {
		s.loading = false
		s.items.appendError(errorMessage(err))
		s.scheduleSave()
		return err
	}
	s.stream.Start(events, cancel)
	return nil
}

// Confirm approves a pending action. The previous stream is cancelled and
// drained strictly before the confirm request is issued, so the server never
// sees overlapping turns.
func (s *Session) Confirm(ctx context.Context, actionID string) error {
	return s.resolveAction(ctx, actionID, true)
}

// Reject declines a pending action; the agent responds with alternatives on
// the continuation stream.
func (s *Session) Reject(ctx context.Context, actionID string) error {
	return s.resolveAction(ctx, actionID, false)
}

func (s *Session) resolveAction(ctx context.Context, actionID string, approve bool) error {
	if s == nil {
		return ErrUnknownAction
	}
	if err := s.gate.Begin(actionID); err != nil {
		return err
	}
	defer s.gate.End(actionID)

	s.stream.Cancel()
	s.items.finalizeStreaming(s.coalescer.Drain())

	s.loading = true
	var (
		events <-chan types.AgentEvent
		cancel func()
		err    error
	)
	if approve {
		events, cancel, err = s.api.ConfirmAction(ctx, actionID)
	} else {
		events, cancel, err = s.api.RejectAction(ctx, actionID)
	}
	if err != nil {
		s.loading = false
		s.items.appendError(errorMessage(err))
		s.scheduleSave()
		return err
	}
	s.stream.Start(events, cancel)
	return nil
}

// Stop cancels the active stream. Buffered text is folded into the open
// turn, never discarded, and loading clears immediately; calling Stop again
// is a no-op.
func (s *Session) Stop() {
	if s == nil {
		return
	}
	if !s.loading && !s.stream.Active() {
		return
	}
	s.stream.Cancel()
	s.finishStream()
}

// ConsumeTick pumps the active stream: it applies up to maxEventsPerTick
// buffered events and fires the coalescer flush when due. It reports whether
// visible state changed. The UI calls this once per tick.
func (s *Session) ConsumeTick(now time.Time) (changed bool) {
	if s == nil {
		return false
	}
	if s.stream.Active() {
	pump:
		for i := 0; i < s.maxEventsPerTick; i++ {
			select {
			case ev, ok := <-s.stream.events:
				if !ok {
					// Transport closed without a done event. Cancel still
					// runs so the request context is released.
					s.stream.Cancel()
					s.finishStream()
					changed = true
					break pump
				}
				if s.applyEvent(ev) {
					changed = true
				}
			default:
				break pump
			}
		}
	}
	if s.coalescer.FlushDue(now) {
		s.items.appendStreamingText(s.coalescer.Flush(now))
		changed = true
	}
	return changed
}

// applyEvent folds one event into the log, reporting whether the visible
// log changed. text_delta only feeds the coalescer.
func (s *Session) applyEvent(ev types.AgentEvent) bool {
	if ev.Name == types.EventTextDelta {
		var payload types.TextDeltaPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return false
		}
		s.coalescer.Append(payload.Content)
		return false
	}

	drained := ""
	switch ev.Name {
	case types.EventToolStart, types.EventActionConfirm, types.EventError, types.EventDone:
		drained = s.coalescer.Drain()
	}
	eff := s.items.apply(ev, drained)
	if eff.canvas != nil {
		s.canvas = eff.canvas
	}
	if eff.pending != "" {
		s.gate.Register(eff.pending)
	}
	if eff.resolved != "" {
		s.gate.Resolve(eff.resolved)
	}
	if eff.finished {
		s.loading = false
		s.stream.Cancel()
	}
	s.scheduleSave()
	return true
}

// finishStream is the idempotent fallback cleanup shared by cancellation
// and transport closure: fold buffered text, close the open turn, clear
// loading, persist.
func (s *Session) finishStream() {
	s.items.finalizeStreaming(s.coalescer.Drain())
	if s.loading {
		s.loading = false
	}
	s.scheduleSave()
}

// NewConversation clears current state; the conversation record itself is
// created lazily on the first send.
func (s *Session) NewConversation() {
	if s == nil {
		return
	}
	s.Stop()
	s.flushSave()
	s.items = newItemLog()
	s.gate.Clear()
	s.canvas = nil
	s.conversationID = ""
}

// SwitchConversation persists and deactivates in-flight state, then
// hydrates the log for id straight from durable storage.
func (s *Session) SwitchConversation(ctx context.Context, id string) error {
	if s == nil || id == "" {
		return errors.New("conversation id is required")
	}
	if id == s.conversationID {
		return nil
	}
	s.Stop()
	s.flushSave()
	s.gate.Clear()
	s.canvas = nil

	items, err := s.store.LoadLog(ctx, id)
	if err != nil {
		s.log.Warn("conversation load failed", logging.F("id", id), logging.F("err", err))
		items = nil
	}
	s.items = newItemLog()
	s.items.SetItems(items)
	s.conversationID = id
	return nil
}

// DeleteConversation removes the log and metadata; deleting the active
// conversation clears current state to empty.
func (s *Session) DeleteConversation(ctx context.Context, id string) error {
	if s == nil || id == "" {
		return errors.New("conversation id is required")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if id == s.conversationID {
		s.Stop()
		s.items = newItemLog()
		s.gate.Clear()
		s.canvas = nil
		s.conversationID = ""
	}
	return nil
}

// Conversations lists stored metadata, degrading to empty on store errors.
func (s *Session) Conversations(ctx context.Context) []*types.ConversationMeta {
	if s == nil || s.store == nil {
		return nil
	}
	metas, err := s.store.List(ctx)
	if err != nil {
		s.log.Warn("conversation list failed", logging.F("err", err))
		return nil
	}
	return metas
}

// Close is the teardown hook: it cancels the stream and performs one
// best-effort synchronous save that, unlike regular saves, includes
// in-flight content. The debounced saver is stopped first so a stale
// scheduled payload cannot land on top of this capture.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.stream.Cancel()
	s.items.finalizeStreaming(s.coalescer.Drain())
	s.loading = false
	if s.saver != nil {
		s.saver.Stop()
	}
	if s.conversationID != "" && s.store != nil {
		if err := s.store.SaveLog(context.Background(), s.conversationID, s.items.Items()); err != nil {
			s.log.Warn("final save failed", logging.F("err", err))
		}
	}
}

func (s *Session) ensureConversation(ctx context.Context) {
	if s.conversationID != "" || s.store == nil {
		return
	}
	meta, err := s.store.Create(ctx)
	if err != nil {
		// The session still works unpersisted.
		s.log.Warn("conversation create failed", logging.F("err", err))
		return
	}
	s.conversationID = meta.ID
}

// scheduleSave debounces persistence of the finalized log. In-flight
// streaming turns are filtered out so partial text never becomes history.
func (s *Session) scheduleSave() {
	if s.saver == nil || s.conversationID == "" {
		return
	}
	s.saver.Schedule(s.conversationID, snapshotFinalized(s.items.Items()))
}

func (s *Session) flushSave() {
	if s.saver == nil {
		return
	}
	s.saver.Flush()
}

// snapshotFinalized copies the log without in-flight streaming turns.
func snapshotFinalized(items []types.ChatItem) []types.ChatItem {
	out := make([]types.ChatItem, 0, len(items))
	for _, item := range items {
		if item.Kind == types.ItemAssistant && item.Streaming {
			continue
		}
		out = append(out, item)
	}
	return out
}

func errorMessage(err error) string {
	if err == nil {
		return defaultErrorMessage
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return defaultErrorMessage
	}
	return message
}
