package services

import (
	"context"
	"errors"

	"chatbot-kit/internal/models"
	"chatbot-kit/internal/stream"
)

// ErrNoMessages is returned when nothing forwardable remains in a request.
var ErrNoMessages = errors.New("no messages to send")

// Provider streams a completion from a hosted language model. onDelta is
// called once per text increment, in order; returning an error from it
// aborts the stream.
type Provider interface {
	Name() string
	Stream(ctx context.Context, messages []models.ChatMessage, onDelta func(string) error) (stream.Finish, error)
}

// forwardable drops messages providers do not accept.
func forwardable(messages []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == models.RoleData {
			continue
		}
		out = append(out, m)
	}
	return out
}
