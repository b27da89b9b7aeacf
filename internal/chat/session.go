package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"chatbot-kit/internal/models"
	"chatbot-kit/internal/stream"
)

var (
	// ErrBusy is returned while a reply is still streaming.
	ErrBusy = errors.New("a reply is still streaming")
	// ErrEmptyInput is returned for a prompt that is blank after trimming.
	ErrEmptyInput = errors.New("message is empty")
	// ErrStream wraps a failure reported by the completion stream.
	ErrStream = errors.New("completion failed")
)

// Completer sends the conversation so far and returns the reply as a
// sequence of stream parts ending with exactly one terminal part.
type Completer interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (<-chan stream.Part, error)
}

// Session drives one prompt/reply exchange at a time against a Store.
type Session struct {
	store     *Store
	completer Completer

	mu        sync.Mutex
	busy      bool
	pendingID string
}

func NewSession(store *Store, completer Completer) *Session {
	return &Session{store: store, completer: completer}
}

func (s *Session) Store() *Store { return s.store }

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Begin appends the user's prompt and a pending assistant message, then
// starts the completion. The pending message is not part of the request.
// The session is busy from the moment the prompt is recorded, and the lock
// is not held while the completer connects.
func (s *Session) Begin(ctx context.Context, input string) (<-chan stream.Part, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	msgs := s.store.Messages()
	msgs = append(msgs, models.NewMessage(models.RoleUser, input))
	request := requestMessages(msgs)

	pending := models.NewMessage(models.RoleAssistant, "")
	pending.Pending = true
	msgs = append(msgs, pending)

	if err := s.store.SetMessages(ctx, msgs); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.busy = true
	s.pendingID = pending.ID
	s.mu.Unlock()

	parts, err := s.completer.Complete(ctx, request)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		var settleErr error
		if s.busy && s.pendingID == pending.ID {
			settleErr = s.settleLocked(ctx, err.Error())
		}
		return nil, errors.Join(fmt.Errorf("%w: %v", ErrStream, err), settleErr)
	}
	return parts, nil
}

// Apply folds one stream part into the pending reply and reports whether
// the exchange is over. Text is kept in memory; the collection is persisted
// when the terminal part arrives.
func (s *Session) Apply(ctx context.Context, p stream.Part) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy {
		return true, nil
	}

	switch p.Type {
	case stream.PartText:
		err := s.store.UpdateMessage(ctx, s.pendingID, false, func(m *models.ChatMessage) {
			m.Content += p.Text
		})
		return false, err
	case stream.PartError:
		return true, s.settleLocked(ctx, p.Text)
	case stream.PartFinish:
		return true, s.settleLocked(ctx, "")
	}
	return false, nil
}

// Abort ends the pending exchange with reason as its error, keeping any
// partial reply.
func (s *Session) Abort(ctx context.Context, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy {
		return nil
	}
	return s.settleLocked(ctx, reason)
}

// Interrupt aborts a reply that is still streaming when the client stops.
func (s *Session) Interrupt(ctx context.Context) error {
	return s.Abort(ctx, ErrInterrupted.Error())
}

// Run performs a whole exchange, calling onUpdate with the active message
// list after every part. A channel that closes without a terminal part
// counts as a failed stream.
func (s *Session) Run(ctx context.Context, input string, onUpdate func([]models.ChatMessage)) error {
	parts, err := s.Begin(ctx, input)
	if err != nil {
		return err
	}

	var persistErr error
	finished := false
	for p := range parts {
		var err error
		finished, err = s.Apply(ctx, p)
		if err != nil {
			persistErr = err
		}
		if onUpdate != nil {
			onUpdate(s.store.Messages())
		}
		if finished {
			break
		}
	}
	if !finished {
		if err := s.Abort(ctx, stream.ErrUnexpectedEnd.Error()); err != nil {
			persistErr = err
		}
		if onUpdate != nil {
			onUpdate(s.store.Messages())
		}
	}

	return errors.Join(persistErr, lastError(s.store.Messages()))
}

// New starts a fresh conversation.
func (s *Session) New(ctx context.Context) (models.ChatHistory, error) {
	if s.Busy() {
		return models.ChatHistory{}, ErrBusy
	}
	return s.store.New(ctx)
}

func (s *Session) Select(id string) error {
	if s.Busy() {
		return ErrBusy
	}
	return s.store.Select(id)
}

func (s *Session) Delete(ctx context.Context, id string) error {
	if s.Busy() {
		return ErrBusy
	}
	return s.store.Delete(ctx, id)
}

// settleLocked completes the pending reply and persists the collection.
// The session is released even when the save fails.
func (s *Session) settleLocked(ctx context.Context, errMsg string) error {
	id := s.pendingID
	s.busy = false
	s.pendingID = ""
	return s.store.UpdateMessage(ctx, id, true, func(m *models.ChatMessage) {
		m.Pending = false
		m.Error = errMsg
	})
}

// requestMessages drops replies that failed or never produced content so
// they are not sent back to the model.
func requestMessages(msgs []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Pending || m.Error != "" {
			continue
		}
		if m.Role == models.RoleAssistant && strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func lastError(msgs []models.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	if last := msgs[len(msgs)-1]; last.Error != "" {
		return fmt.Errorf("%w: %s", ErrStream, last.Error)
	}
	return nil
}
