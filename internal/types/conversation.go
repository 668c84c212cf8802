package types

import "time"

// ConversationMeta is the listing entry for a stored conversation.
type ConversationMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is one turn of the role/content history projection sent to the
// agent endpoint.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
