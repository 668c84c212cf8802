package ui

import (
	"fmt"
	"sort"
	"strings"

	"pilot/internal/types"
)

const minBubbleWidth = 20

// renderItems draws the transcript, one block per item, newest last. width is
// the full viewport width; bubbles wrap inside it.
func renderItems(items []types.ChatItem, width int) string {
	if width < minBubbleWidth {
		width = minBubbleWidth
	}
	inner := width - 4 // bubble border and padding
	if inner < 10 {
		inner = 10
	}
	blocks := make([]string, 0, len(items))
	for _, item := range items {
		if block := renderItem(item, inner); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n")
}

func renderItem(item types.ChatItem, width int) string {
	switch item.Kind {
	case types.ItemUser:
		return userBubbleStyle.Width(width).Render(renderMarkdown(escapeMarkdown(item.Content), width-2))
	case types.ItemAssistant:
		content := item.Content
		if content == "" {
			return ""
		}
		if item.Streaming {
			content += " ▌"
		}
		return agentBubbleStyle.Width(width).Render(renderMarkdown(content, width-2))
	case types.ItemStepGroup:
		return renderStepGroup(item.Steps, width)
	case types.ItemActionConfirm:
		return renderActionConfirm(item, width)
	case types.ItemArtifact:
		return artifactChipStyle.Render("▣ " + item.Title)
	case types.ItemError:
		return errorStyle.Render("✗ " + item.Content)
	}
	return ""
}

func renderStepGroup(steps []types.StepItem, width int) string {
	if len(steps) == 0 {
		return ""
	}
	lines := make([]string, 0, len(steps))
	for _, step := range steps {
		lines = append(lines, renderStep(step))
	}
	return stepGroupStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func renderStep(step types.StepItem) string {
	switch step.Status {
	case types.StepDone:
		line := stepDoneStyle.Render("✓ " + step.ToolName)
		if step.Summary != "" {
			line += statusStyle.Render("  " + step.Summary)
		}
		return line
	case types.StepError:
		line := stepErrorStyle.Render("✗ " + step.ToolName)
		if step.Summary != "" {
			line += statusStyle.Render("  " + step.Summary)
		}
		return line
	default:
		line := stepRunningStyle.Render("… " + step.ToolName)
		if progress := renderProgress(step); progress != "" {
			line += statusStyle.Render("  " + progress)
		}
		return line
	}
}

func renderProgress(step types.StepItem) string {
	parts := make([]string, 0, 2)
	if step.ProgressTotal > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", step.ProgressCurrent, step.ProgressTotal))
	}
	if step.ProgressMessage != "" {
		parts = append(parts, step.ProgressMessage)
	}
	return strings.Join(parts, " ")
}

func renderActionConfirm(item types.ChatItem, width int) string {
	var b strings.Builder
	b.WriteString("confirm " + item.ToolName)
	if item.Description != "" {
		b.WriteString("\n" + item.Description)
	}
	if len(item.ToolArgs) > 0 {
		b.WriteString("\n" + formatToolArgs(item.ToolArgs))
	}
	b.WriteString("\n[y] approve  [n] decline")
	return confirmBubbleStyle.Width(width).Render(b.String())
}

func formatToolArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, args[key]))
	}
	return strings.Join(parts, " ")
}

// lastAssistantText is the copy target for the copy hotkey.
func lastAssistantText(items []types.ChatItem) string {
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Kind == types.ItemAssistant && items[i].Content != "" {
			return items[i].Content
		}
	}
	return ""
}
