package client

import "pilot/internal/types"

// ChatRequest is the /agent/chat body. Messages carry the item log rendered
// as role/content pairs. Turns paused on an action confirmation resume
// through the dedicated confirm and reject endpoints.
type ChatRequest struct {
	Messages       []types.ChatMessage `json:"messages"`
	ConversationID string              `json:"conversation_id,omitempty"`
}

// AgentStreamEvent aliases the decoded wire event so stream consumers do
// not need to import this package for the channel element type.
type AgentStreamEvent = types.AgentEvent
