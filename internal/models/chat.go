package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleData      Role = "data"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleData:
		return true
	}
	return false
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role := Role(s)
	if !role.Valid() {
		return fmt.Errorf("unknown message role %q", s)
	}
	*r = role
	return nil
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitempty"`

	// Error is set when the stream producing this message failed.
	Error string `json:"error,omitempty"`

	// Pending marks an assistant message that is still streaming.
	Pending bool `json:"-"`
}

func NewMessage(role Role, content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// CompletionRequest is the payload sent to the completion endpoint.
type CompletionRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// RenderRequest asks the server to decompose message content.
type RenderRequest struct {
	Content string `json:"content"`
}

type RenderSegment struct {
	Kind     string `json:"kind"` // "text" | "code"
	Language string `json:"language,omitempty"`
	Content  string `json:"content"`
}

type RenderResponse struct {
	Segments []RenderSegment `json:"segments"`
	HTML     string          `json:"html"`
}
