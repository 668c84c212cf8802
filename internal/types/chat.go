package types

import "time"

// ItemKind discriminates the entries of a conversation's item log.
type ItemKind string

const (
	ItemUser          ItemKind = "user"
	ItemAssistant     ItemKind = "assistant"
	ItemStepGroup     ItemKind = "step_group"
	ItemActionConfirm ItemKind = "action_confirm"
	ItemError         ItemKind = "error"
	ItemArtifact      ItemKind = "artifact"
)

type StepStatus string

const (
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepError   StepStatus = "error"
)

// StepItem is one tool invocation inside a step group.
type StepItem struct {
	ID              string         `json:"id,omitempty"`
	Status          StepStatus     `json:"status"`
	ToolName        string         `json:"tool_name"`
	ToolArgs        map[string]any `json:"tool_args,omitempty"`
	Success         bool           `json:"success,omitempty"`
	Summary         string         `json:"summary,omitempty"`
	Data            map[string]any `json:"data,omitempty"`
	ProgressMessage string         `json:"progress_message,omitempty"`
	ProgressCurrent int            `json:"progress_current,omitempty"`
	ProgressTotal   int            `json:"progress_total,omitempty"`
}

// ChatItem is one entry of the item log. Kind selects which fields are
// meaningful; unused fields stay zero and are omitted from JSON.
type ChatItem struct {
	ID        string    `json:"id"`
	Kind      ItemKind  `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// user, assistant, error, artifact
	Content string `json:"content,omitempty"`
	// assistant turns still receiving deltas
	Streaming bool `json:"streaming,omitempty"`

	// step_group
	Steps []StepItem `json:"steps,omitempty"`

	// action_confirm
	ActionID    string         `json:"action_id,omitempty"`
	Description string         `json:"description,omitempty"`
	ToolName    string         `json:"tool_name,omitempty"`
	ToolArgs    map[string]any `json:"tool_args,omitempty"`

	// artifact
	Title  string `json:"title,omitempty"`
	IsHTML bool   `json:"is_html,omitempty"`
}

// CanvasData is the document shown in the side panel when a tool produces a
// renderable artifact.
type CanvasData struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	IsHTML  bool   `json:"is_html,omitempty"`
}
