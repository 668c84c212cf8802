package agent

import (
	"encoding/json"
	"testing"

	"pilot/internal/types"
)

func rawEvent(t *testing.T, name types.AgentEventName, payload any) types.AgentEvent {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return types.AgentEvent{Name: name, Data: data}
}

func TestConsecutiveStepsShareOneGroup(t *testing.T) {
	log := newItemLog()
	log.apply(rawEvent(t, types.EventToolStart, types.ToolStartPayload{ID: "a", Name: "search"}), "")
	log.apply(rawEvent(t, types.EventToolResult, types.ToolResultPayload{ID: "a", Name: "search", Success: true}), "")
	log.apply(rawEvent(t, types.EventToolStart, types.ToolStartPayload{ID: "b", Name: "fetch"}), "")

	items := log.Items()
	if len(items) != 1 || items[0].Kind != types.ItemStepGroup {
		t.Fatalf("expected a single step group, got %+v", items)
	}
	if len(items[0].Steps) != 2 {
		t.Fatalf("expected both steps in one group, got %+v", items[0].Steps)
	}
}

func TestDrainedTextClosesTheGroup(t *testing.T) {
	log := newItemLog()
	log.apply(rawEvent(t, types.EventToolStart, types.ToolStartPayload{ID: "a", Name: "search"}), "")
	log.apply(rawEvent(t, types.EventToolResult, types.ToolResultPayload{ID: "a", Name: "search", Success: true}), "")
	// Text between tool calls lands as an assistant turn, so the next tool
	// opens a fresh group.
	log.apply(rawEvent(t, types.EventToolStart, types.ToolStartPayload{ID: "b", Name: "fetch"}), "Let me fetch that.")

	items := log.Items()
	if len(items) != 3 {
		t.Fatalf("expected group, text, group; got %+v", items)
	}
	if items[1].Kind != types.ItemAssistant || items[1].Content != "Let me fetch that." {
		t.Fatalf("drained text misplaced: %+v", items[1])
	}
	if items[2].Kind != types.ItemStepGroup || items[2].Steps[0].ID != "b" {
		t.Fatalf("second tool did not open a new group: %+v", items[2])
	}
}

func TestProgressForUnknownIDIsDropped(t *testing.T) {
	log := newItemLog()
	log.apply(rawEvent(t, types.EventToolStart, types.ToolStartPayload{ID: "a", Name: "search"}), "")
	log.apply(rawEvent(t, types.EventToolResult, types.ToolResultPayload{ID: "a", Name: "search", Success: true}), "")
	before := log.Items()[0].Steps[0]

	log.apply(rawEvent(t, types.EventToolProgress, types.ToolProgressPayload{ID: "ghost", Current: 9, Total: 9}), "")

	after := log.Items()[0].Steps[0]
	if before.ProgressCurrent != after.ProgressCurrent || before.ProgressTotal != after.ProgressTotal {
		t.Fatalf("progress for an unknown id mutated a finished step: %+v", after)
	}
}

func TestProgressNeverRegresses(t *testing.T) {
	log := newItemLog()
	log.apply(rawEvent(t, types.EventToolStart, types.ToolStartPayload{ID: "a", Name: "ingest"}), "")
	log.apply(rawEvent(t, types.EventToolProgress, types.ToolProgressPayload{ID: "a", Current: 4, Total: 10}), "")
	log.apply(rawEvent(t, types.EventToolProgress, types.ToolProgressPayload{ID: "a", Current: 2, Total: 10, Message: "retrying"}), "")

	step := log.Items()[0].Steps[0]
	if step.ProgressCurrent != 4 {
		t.Fatalf("progress regressed to %d", step.ProgressCurrent)
	}
	if step.ProgressMessage != "retrying" {
		t.Fatalf("message update lost: %+v", step)
	}
}

func TestResultWithoutMatchingStepIsSynthetic(t *testing.T) {
	log := newItemLog()
	log.apply(rawEvent(t, types.EventToolResult, types.ToolResultPayload{ID: "x", Name: "cleanup", Success: false, Summary: "disk full"}), "")

	items := log.Items()
	if len(items) != 1 || items[0].Kind != types.ItemStepGroup {
		t.Fatalf("expected synthetic step group, got %+v", items)
	}
	step := items[0].Steps[0]
	if step.Status != types.StepError || step.Summary != "disk full" {
		t.Fatalf("result lost: %+v", step)
	}
}

func TestIDLessResultResolvesMostRecentRunningStep(t *testing.T) {
	log := newItemLog()
	log.apply(rawEvent(t, types.EventToolStart, types.ToolStartPayload{ID: "a", Name: "search"}), "")
	log.apply(rawEvent(t, types.EventToolStart, types.ToolStartPayload{ID: "b", Name: "fetch"}), "")
	log.apply(rawEvent(t, types.EventActionResult, types.ActionResultPayload{ID: "act", Success: true, Summary: "done"}), "")

	steps := log.Items()[0].Steps
	if steps[0].Status != types.StepRunning {
		t.Fatalf("older step resolved instead: %+v", steps)
	}
	if steps[1].Status != types.StepDone || steps[1].Summary != "done" {
		t.Fatalf("most recent running step not resolved: %+v", steps)
	}
}

func TestNameFallbackPrefersMatchingTool(t *testing.T) {
	log := newItemLog()
	log.apply(rawEvent(t, types.EventToolStart, types.ToolStartPayload{ID: "a", Name: "search"}), "")
	log.apply(rawEvent(t, types.EventToolStart, types.ToolStartPayload{ID: "b", Name: "fetch"}), "")
	log.apply(rawEvent(t, types.EventToolResult, types.ToolResultPayload{Name: "search", Success: true}), "")

	steps := log.Items()[0].Steps
	if steps[0].Status != types.StepDone {
		t.Fatalf("name match skipped: %+v", steps)
	}
	if steps[1].Status != types.StepRunning {
		t.Fatalf("wrong step resolved: %+v", steps)
	}
}

func TestErrorEventDefaultsMessage(t *testing.T) {
	log := newItemLog()
	log.apply(rawEvent(t, types.EventError, types.ErrorPayload{}), "")

	items := log.Items()
	if len(items) != 1 || items[0].Kind != types.ItemError || items[0].Content != defaultErrorMessage {
		t.Fatalf("expected default error message, got %+v", items)
	}
}

func TestMalformedPayloadIsAbsorbed(t *testing.T) {
	log := newItemLog()
	log.apply(types.AgentEvent{Name: types.EventToolStart, Data: json.RawMessage(`{"id": 12`)}, "")
	if len(log.Items()) != 0 {
		t.Fatalf("malformed payload must not produce items: %+v", log.Items())
	}
}

func TestArtifactPrefersMarkdownOverHTML(t *testing.T) {
	log := newItemLog()
	eff := log.apply(rawEvent(t, types.EventToolResult, types.ToolResultPayload{
		ID: "w", Name: "generate_wiki", Success: true,
		Data: map[string]any{"markdown": "# Doc", "html": "<h1>Doc</h1>"},
	}), "")

	if eff.canvas == nil || eff.canvas.IsHTML || eff.canvas.Content != "# Doc" {
		t.Fatalf("unexpected canvas %+v", eff.canvas)
	}
}

func TestArtifactHTMLAndTitleFallback(t *testing.T) {
	log := newItemLog()
	eff := log.apply(rawEvent(t, types.EventToolResult, types.ToolResultPayload{
		ID: "w", Name: "generate_report", Success: true,
		Data: map[string]any{"html": "<p>hi</p>"},
	}), "")

	if eff.canvas == nil || !eff.canvas.IsHTML || eff.canvas.Title != "generate_report" {
		t.Fatalf("unexpected canvas %+v", eff.canvas)
	}
	items := log.Items()
	last := items[len(items)-1]
	if last.Kind != types.ItemArtifact || !last.IsHTML {
		t.Fatalf("artifact item missing: %+v", last)
	}
}

func TestFinalizeStreamingIsIdempotent(t *testing.T) {
	log := newItemLog()
	log.appendStreamingText("partial")
	log.finalizeStreaming(" done")
	log.finalizeStreaming("")

	items := log.Items()
	if len(items) != 1 || items[0].Content != "partial done" || items[0].Streaming {
		t.Fatalf("unexpected log %+v", items)
	}
}

func TestStreamingFlushKeepsTurnOpen(t *testing.T) {
	log := newItemLog()
	log.appendStreamingText("one ")
	log.appendStreamingText("two")

	items := log.Items()
	if len(items) != 1 || items[0].Content != "one two" || !items[0].Streaming {
		t.Fatalf("mid-stream flushes must extend the open turn: %+v", items)
	}
}
