package ui

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"

	"pilot/internal/types"
)

func TestRenderItemsShowsStepLifecycle(t *testing.T) {
	items := []types.ChatItem{
		{Kind: types.ItemUser, Content: "find papers"},
		{Kind: types.ItemStepGroup, Steps: []types.StepItem{
			{ToolName: "search", Status: types.StepDone, Summary: "12 hits"},
			{ToolName: "ingest", Status: types.StepRunning, ProgressCurrent: 2, ProgressTotal: 5},
			{ToolName: "rank", Status: types.StepError, Summary: "timeout"},
		}},
	}
	out := renderItems(items, 80)
	plain := xansi.Strip(out)
	for _, want := range []string{"find papers", "search", "12 hits", "2/5", "timeout"} {
		if !strings.Contains(plain, want) {
			t.Fatalf("transcript missing %q:\n%s", want, out)
		}
	}
}

func TestRenderActionConfirmShowsArgsAndKeys(t *testing.T) {
	item := types.ChatItem{
		Kind:        types.ItemActionConfirm,
		ToolName:    "ingest_arxiv",
		Description: "download 3 PDFs",
		ToolArgs:    map[string]any{"count": 3, "category": "cs.CL"},
	}
	out := renderItem(item, 76)
	for _, want := range []string{"ingest_arxiv", "download 3 PDFs", "category=cs.CL", "count=3", "[y] approve"} {
		if !strings.Contains(out, want) {
			t.Fatalf("confirm bubble missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStreamingTurnShowsCursor(t *testing.T) {
	item := types.ChatItem{Kind: types.ItemAssistant, Content: "thinking", Streaming: true}
	if out := renderItem(item, 76); !strings.Contains(out, "▌") {
		t.Fatalf("streaming cursor missing:\n%s", out)
	}
}

func TestRenderEmptyAssistantTurnIsHidden(t *testing.T) {
	if out := renderItem(types.ChatItem{Kind: types.ItemAssistant}, 76); out != "" {
		t.Fatalf("empty turn rendered: %q", out)
	}
}

func TestLastAssistantText(t *testing.T) {
	items := []types.ChatItem{
		{Kind: types.ItemAssistant, Content: "first"},
		{Kind: types.ItemUser, Content: "question"},
		{Kind: types.ItemAssistant, Content: "second"},
		{Kind: types.ItemError, Content: "oops"},
	}
	if got := lastAssistantText(items); got != "second" {
		t.Fatalf("lastAssistantText = %q", got)
	}
	if got := lastAssistantText(nil); got != "" {
		t.Fatalf("expected empty for nil items, got %q", got)
	}
}
