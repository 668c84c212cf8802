package types

import "encoding/json"

// AgentEventName identifies a server-sent event on the agent stream.
type AgentEventName string

const (
	EventTextDelta     AgentEventName = "text_delta"
	EventToolStart     AgentEventName = "tool_start"
	EventToolProgress  AgentEventName = "tool_progress"
	EventToolResult    AgentEventName = "tool_result"
	EventActionConfirm AgentEventName = "action_confirm"
	EventActionResult  AgentEventName = "action_result"
	EventError         AgentEventName = "error"
	EventDone          AgentEventName = "done"
)

// AgentEvent is one decoded stream event. Data holds the raw JSON payload;
// consumers unmarshal into the payload struct matching Name.
type AgentEvent struct {
	Name AgentEventName
	Data json.RawMessage
}

type TextDeltaPayload struct {
	Content string `json:"content"`
}

type ToolStartPayload struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolProgressPayload struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
}

type ToolResultPayload struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Success bool           `json:"success"`
	Summary string         `json:"summary,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

type ActionConfirmPayload struct {
	ID          string         `json:"id"`
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args,omitempty"`
	Description string         `json:"description,omitempty"`
}

type ActionResultPayload struct {
	ID      string         `json:"id"`
	Success bool           `json:"success"`
	Summary string         `json:"summary,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
