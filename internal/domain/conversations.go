package domain

import (
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single entry in a session transcript. Messages are
// immutable once appended.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the input for the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned for a single chat turn.
type ChatResponse struct {
	Message         ChatMessage      `json:"message"`
	Recommendations []Recommendation `json:"recommendations"`
	// Notice is set when the completion service failed and the message is
	// a fallback.
	Notice string `json:"notice,omitempty"`
}

// AssistantReply is the processed output of one completion call.
type AssistantReply struct {
	// Message is the display text with embedded objects removed.
	Message         string
	Raw             string
	Recommendations []Recommendation
	PromptTokens    int64
	OutputTokens    int64
}
