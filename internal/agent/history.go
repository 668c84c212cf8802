package agent

import (
	"fmt"
	"strings"

	"pilot/internal/types"
)

const artifactSummaryLimit = 500

// historyFromItems projects the item log into the role/content pairs the
// agent endpoint consumes as conversational memory. The projection is
// deterministic and preserves turn order; tool activity collapses into
// synthetic assistant turns.
func historyFromItems(items []types.ChatItem) []types.ChatMessage {
	messages := make([]types.ChatMessage, 0, len(items))
	for _, item := range items {
		switch item.Kind {
		case types.ItemUser:
			messages = append(messages, types.ChatMessage{Role: "user", Content: item.Content})
		case types.ItemAssistant:
			if item.Content != "" {
				messages = append(messages, types.ChatMessage{Role: "assistant", Content: item.Content})
			}
		case types.ItemStepGroup:
			if summary := summarizeSteps(item.Steps); summary != "" {
				messages = append(messages, types.ChatMessage{Role: "assistant", Content: summary})
			}
		case types.ItemActionConfirm:
			messages = append(messages, types.ChatMessage{
				Role:    "assistant",
				Content: fmt.Sprintf("[proposed %s and awaited confirmation: %s]", item.ToolName, item.Description),
			})
		case types.ItemArtifact:
			messages = append(messages, types.ChatMessage{
				Role:    "assistant",
				Content: fmt.Sprintf("[artifact: %s] %s", item.Title, truncateRunes(item.Content, artifactSummaryLimit)),
			})
		case types.ItemError:
			messages = append(messages, types.ChatMessage{
				Role:    "assistant",
				Content: "[error: " + item.Content + "]",
			})
		}
	}
	return messages
}

func summarizeSteps(steps []types.StepItem) string {
	lines := make([]string, 0, len(steps))
	for _, step := range steps {
		switch step.Status {
		case types.StepDone:
			lines = append(lines, fmt.Sprintf("[tool: %s] success: %s", step.ToolName, step.Summary))
		case types.StepError:
			lines = append(lines, fmt.Sprintf("[tool: %s] failure: %s", step.ToolName, step.Summary))
		}
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
