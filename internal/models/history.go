package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryTitle labels a conversation before it has any content.
const DefaultHistoryTitle = "New Chat"

// ChatHistory is a persisted conversation record.
type ChatHistory struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func NewChatHistory() ChatHistory {
	now := time.Now().UTC()
	return ChatHistory{
		ID:        uuid.NewString(),
		Title:     DefaultHistoryTitle,
		Messages:  []ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that shares no message storage with h.
func (h ChatHistory) Clone() ChatHistory {
	out := h
	out.Messages = make([]ChatMessage, len(h.Messages))
	copy(out.Messages, h.Messages)
	return out
}
