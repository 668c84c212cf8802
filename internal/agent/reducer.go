package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"pilot/internal/types"
)

const defaultErrorMessage = "agent stream error"

// itemLog is the ordered conversation log. It is owned by a single Session
// and mutated only through apply and the text helpers below; the view layer
// reads Items and never writes.
type itemLog struct {
	items []types.ChatItem
	seq   int64
	now   func() time.Time
}

func newItemLog() *itemLog {
	return &itemLog{
		// Seeding from the wall clock keeps ids unique across hydrated
		// conversations, which reuse the ids persisted by earlier runs.
		seq: time.Now().UnixMilli(),
		now: time.Now,
	}
}

func (l *itemLog) nextID() string {
	l.seq++
	return fmt.Sprintf("item-%d", l.seq)
}

func (l *itemLog) Items() []types.ChatItem {
	if l == nil {
		return nil
	}
	return l.items
}

func (l *itemLog) SetItems(items []types.ChatItem) {
	if l == nil {
		return
	}
	l.items = items
}

func (l *itemLog) last() *types.ChatItem {
	if l == nil || len(l.items) == 0 {
		return nil
	}
	return &l.items[len(l.items)-1]
}

func (l *itemLog) append(item types.ChatItem) *types.ChatItem {
	item.ID = l.nextID()
	item.Timestamp = l.now()
	l.items = append(l.items, item)
	return &l.items[len(l.items)-1]
}

// effects is the reducer side channel: state changes that belong to the
// session rather than the log itself.
type effects struct {
	canvas   *types.CanvasData // open or replace the side panel
	pending  string            // action id now awaiting confirmation
	resolved string            // action id resolved by an action_result
	finished bool              // the turn completed
}

// apply folds one event into the log. drained carries the coalescer text
// already removed for this event ("" when the event does not drain).
// Malformed payloads and unknown step ids are absorbed, never propagated.
func (l *itemLog) apply(ev types.AgentEvent, drained string) effects {
	var eff effects
	switch ev.Name {
	case types.EventToolStart:
		l.appendAssistantText(drained)
		var payload types.ToolStartPayload
		if json.Unmarshal(ev.Data, &payload) != nil {
			return eff
		}
		l.startStep(payload)

	case types.EventToolProgress:
		var payload types.ToolProgressPayload
		if json.Unmarshal(ev.Data, &payload) != nil {
			return eff
		}
		l.updateStepProgress(payload)

	case types.EventToolResult:
		var payload types.ToolResultPayload
		if json.Unmarshal(ev.Data, &payload) != nil {
			return eff
		}
		l.resolveStep(payload.ID, payload.Name, payload.Success, payload.Summary, payload.Data)
		eff.canvas = l.appendArtifact(payload.Data, payload.Name)

	case types.EventActionConfirm:
		l.appendAssistantText(drained)
		var payload types.ActionConfirmPayload
		if json.Unmarshal(ev.Data, &payload) != nil {
			return eff
		}
		l.append(types.ChatItem{
			Kind:        types.ItemActionConfirm,
			ActionID:    payload.ID,
			Description: payload.Description,
			ToolName:    payload.Tool,
			ToolArgs:    payload.Args,
		})
		eff.pending = payload.ID

	case types.EventActionResult:
		var payload types.ActionResultPayload
		if json.Unmarshal(ev.Data, &payload) != nil {
			return eff
		}
		l.resolveStep("", "", payload.Success, payload.Summary, payload.Data)
		eff.canvas = l.appendArtifact(payload.Data, "")
		eff.resolved = payload.ID

	case types.EventError:
		l.appendAssistantText(drained)
		var payload types.ErrorPayload
		_ = json.Unmarshal(ev.Data, &payload)
		message := payload.Message
		if message == "" {
			message = defaultErrorMessage
		}
		l.append(types.ChatItem{Kind: types.ItemError, Content: message})

	case types.EventDone:
		l.finalizeStreaming(drained)
		eff.finished = true
	}
	return eff
}

// appendAssistantText applies drained text ahead of a structural event:
// appended to an open streaming turn, otherwise recorded as a finalized
// assistant turn.
func (l *itemLog) appendAssistantText(text string) {
	if text == "" {
		return
	}
	if last := l.last(); last != nil && last.Kind == types.ItemAssistant && last.Streaming {
		last.Content += text
		return
	}
	l.append(types.ChatItem{Kind: types.ItemAssistant, Content: text})
}

// appendStreamingText applies a mid-stream flush, keeping the turn open for
// further deltas.
func (l *itemLog) appendStreamingText(text string) {
	if text == "" {
		return
	}
	if last := l.last(); last != nil && last.Kind == types.ItemAssistant && last.Streaming {
		last.Content += text
		return
	}
	l.append(types.ChatItem{Kind: types.ItemAssistant, Content: text, Streaming: true})
}

// finalizeStreaming folds text into the open streaming turn and closes it,
// or records the text as a finalized turn when none is open. Safe to call
// repeatedly; with no open turn and no text it is a no-op.
func (l *itemLog) finalizeStreaming(text string) {
	if last := l.last(); last != nil && last.Kind == types.ItemAssistant && last.Streaming {
		last.Content += text
		last.Streaming = false
		return
	}
	if text != "" {
		l.append(types.ChatItem{Kind: types.ItemAssistant, Content: text})
	}
}

func (l *itemLog) appendUser(text string) {
	l.append(types.ChatItem{Kind: types.ItemUser, Content: text})
}

func (l *itemLog) appendError(message string) {
	if message == "" {
		message = defaultErrorMessage
	}
	l.append(types.ChatItem{Kind: types.ItemError, Content: message})
}

// startStep pushes a running step into the open step group, opening a new
// group when the most recent item is anything else.
func (l *itemLog) startStep(payload types.ToolStartPayload) {
	step := types.StepItem{
		ID:       payload.ID,
		Status:   types.StepRunning,
		ToolName: payload.Name,
		ToolArgs: payload.Args,
	}
	if last := l.last(); last != nil && last.Kind == types.ItemStepGroup {
		last.Steps = append(last.Steps, step)
		return
	}
	l.append(types.ChatItem{Kind: types.ItemStepGroup, Steps: []types.StepItem{step}})
}

// currentGroup returns the most recent step group, searching from the end.
func (l *itemLog) currentGroup() *types.ChatItem {
	if l == nil {
		return nil
	}
	for i := len(l.items) - 1; i >= 0; i-- {
		if l.items[i].Kind == types.ItemStepGroup {
			return &l.items[i]
		}
	}
	return nil
}

// findStep locates a step by id, then by tool name among running steps,
// then falls back to the most recent running step. The id-less fallback is
// best effort; under concurrent tool calls the protocol does not guarantee
// which step an id-less event belongs to.
func findStep(group *types.ChatItem, id, name string) *types.StepItem {
	if group == nil {
		return nil
	}
	if id != "" {
		for i := range group.Steps {
			if group.Steps[i].ID == id {
				return &group.Steps[i]
			}
		}
	}
	if name != "" {
		for i := len(group.Steps) - 1; i >= 0; i-- {
			if group.Steps[i].ToolName == name && group.Steps[i].Status == types.StepRunning {
				return &group.Steps[i]
			}
		}
	}
	for i := len(group.Steps) - 1; i >= 0; i-- {
		if group.Steps[i].Status == types.StepRunning {
			return &group.Steps[i]
		}
	}
	return nil
}

// updateStepProgress updates progress on the matching step. No-op when no
// step matches; progress never regresses within one step's lifetime.
func (l *itemLog) updateStepProgress(payload types.ToolProgressPayload) {
	step := findStep(l.currentGroup(), payload.ID, "")
	if step == nil || step.Status != types.StepRunning {
		return
	}
	if payload.Message != "" {
		step.ProgressMessage = payload.Message
	}
	if payload.Current >= step.ProgressCurrent {
		step.ProgressCurrent = payload.Current
	}
	if payload.Total >= step.ProgressTotal {
		step.ProgressTotal = payload.Total
	}
}

// resolveStep marks the matching step done or errored. When nothing matches
// the result is recorded on a synthetic step so it is never lost.
func (l *itemLog) resolveStep(id, name string, success bool, summary string, data map[string]any) {
	group := l.currentGroup()
	step := findStep(group, id, name)
	if step == nil {
		synthetic := types.StepItem{ID: id, Status: types.StepRunning, ToolName: name}
		if group != nil && l.last() == group {
			group.Steps = append(group.Steps, synthetic)
			step = &group.Steps[len(group.Steps)-1]
		} else {
			appended := l.append(types.ChatItem{Kind: types.ItemStepGroup, Steps: []types.StepItem{synthetic}})
			step = &appended.Steps[0]
		}
	}
	if success {
		step.Status = types.StepDone
	} else {
		step.Status = types.StepError
	}
	step.Success = success
	step.Summary = summary
	step.Data = data
}

// appendArtifact records an artifact item and returns the canvas payload
// when the result data carries a renderable document.
func (l *itemLog) appendArtifact(data map[string]any, fallbackTitle string) *types.CanvasData {
	canvas := artifactFromData(data, fallbackTitle)
	if canvas == nil {
		return nil
	}
	l.append(types.ChatItem{
		Kind:    types.ItemArtifact,
		Title:   canvas.Title,
		Content: canvas.Content,
		IsHTML:  canvas.IsHTML,
	})
	return canvas
}

func artifactFromData(data map[string]any, fallbackTitle string) *types.CanvasData {
	if data == nil {
		return nil
	}
	title, _ := data["title"].(string)
	if title == "" {
		title = fallbackTitle
	}
	if title == "" {
		title = "Document"
	}
	if markdown, ok := data["markdown"].(string); ok && markdown != "" {
		return &types.CanvasData{Title: title, Content: markdown}
	}
	if html, ok := data["html"].(string); ok && html != "" {
		return &types.CanvasData{Title: title, Content: html, IsHTML: true}
	}
	return nil
}
