// Package chat holds the chat application core: the conversation store and
// the session that turns a submitted prompt into a streamed reply. It knows
// nothing about terminals or browsers.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"chatbot-kit/internal/models"
)

var (
	// ErrNotFound is returned for an unknown conversation id.
	ErrNotFound = errors.New("chat history not found")
	// ErrPersist wraps a failure to save the collection.
	ErrPersist = errors.New("save chat histories")
	// ErrInterrupted is recorded on a reply that stopped before the stream ended.
	ErrInterrupted = errors.New("reply was interrupted")
)

// titleLimit is the rune length a derived title is cut to.
const titleLimit = 30

// Persistence loads and saves the whole conversation collection at once.
type Persistence interface {
	Load(ctx context.Context) ([]models.ChatHistory, error)
	Save(ctx context.Context, histories []models.ChatHistory) error
}

// Store owns the conversation collection and the active conversation.
// After every update the active record's messages equal Messages().
type Store struct {
	mu        sync.RWMutex
	persist   Persistence
	histories []models.ChatHistory
	activeID  string
	messages  []models.ChatMessage
}

func NewStore(p Persistence) *Store {
	return &Store{persist: p}
}

// Open loads the collection. An empty collection gets one fresh
// conversation; otherwise the most recently created one becomes active.
func (s *Store) Open(ctx context.Context) error {
	histories, err := s.persist.Load(ctx)
	if err != nil {
		return fmt.Errorf("load chat histories: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.histories = histories
	repairInterrupted(s.histories)
	if len(s.histories) == 0 {
		s.appendNewLocked()
		return s.saveLocked(ctx)
	}

	latest := 0
	for i, h := range s.histories {
		if !h.CreatedAt.Before(s.histories[latest].CreatedAt) {
			latest = i
		}
	}
	s.activateLocked(latest)
	return nil
}

// Histories returns a snapshot of every conversation, oldest first.
func (s *Store) Histories() []models.ChatHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ChatHistory, len(s.histories))
	for i, h := range s.histories {
		out[i] = h.Clone()
	}
	return out
}

func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Messages returns a copy of the active message list.
func (s *Store) Messages() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMessages(s.messages)
}

// New registers an empty conversation and makes it active.
func (s *Store) New(ctx context.Context) (models.ChatHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.appendNewLocked()
	return h.Clone(), s.saveLocked(ctx)
}

// Select makes the conversation with id active.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.activateLocked(i)
	return nil
}

// Delete removes a conversation. Deleting the active one activates a new
// empty conversation in its place.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.histories = append(s.histories[:i], s.histories[i+1:]...)

	if id == s.activeID {
		s.appendNewLocked()
	}
	return s.saveLocked(ctx)
}

// SetMessages replaces the active message list, reconciles it into the
// active record and persists the collection. A failed save leaves the
// store as it was.
func (s *Store) SetMessages(ctx context.Context, msgs []models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevMessages := s.messages
	var prevRecord *models.ChatHistory
	i := s.indexLocked(s.activeID)
	if i >= 0 {
		h := s.histories[i].Clone()
		prevRecord = &h
	}

	s.messages = copyMessages(msgs)
	s.reconcileLocked()
	if err := s.saveLocked(ctx); err != nil {
		s.messages = prevMessages
		if prevRecord != nil {
			s.histories[i] = *prevRecord
		}
		return err
	}
	return nil
}

// UpdateMessage edits one active message in place. The collection is only
// written when persist is true, so streaming tokens stay in memory until
// the reply completes.
func (s *Store) UpdateMessage(ctx context.Context, id string, persist bool, fn func(*models.ChatMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			fn(&s.messages[i])
			s.reconcileLocked()
			if persist {
				return s.saveLocked(ctx)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: message %s", ErrNotFound, id)
}

func (s *Store) appendNewLocked() models.ChatHistory {
	h := models.NewChatHistory()
	s.histories = append(s.histories, h)
	s.activeID = h.ID
	s.messages = []models.ChatMessage{}
	return h
}

func (s *Store) activateLocked(i int) {
	s.activeID = s.histories[i].ID
	s.messages = copyMessages(s.histories[i].Messages)
}

func (s *Store) indexLocked(id string) int {
	for i, h := range s.histories {
		if h.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) reconcileLocked() {
	i := s.indexLocked(s.activeID)
	if i < 0 {
		return
	}
	h := &s.histories[i]
	h.Messages = copyMessages(s.messages)
	h.UpdatedAt = time.Now().UTC()
	if h.Title == models.DefaultHistoryTitle || h.Title == "" {
		if t := DeriveTitle(s.messages); t != "" {
			h.Title = t
		}
	}
}

func (s *Store) saveLocked(ctx context.Context) error {
	snapshot := make([]models.ChatHistory, len(s.histories))
	for i, h := range s.histories {
		snapshot[i] = h.Clone()
	}
	if err := s.persist.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// repairInterrupted marks assistant replies that were saved before any
// content or error arrived, which happens when the client stops mid-stream.
func repairInterrupted(histories []models.ChatHistory) {
	for i := range histories {
		for j := range histories[i].Messages {
			m := &histories[i].Messages[j]
			if m.Role == models.RoleAssistant && m.Content == "" && m.Error == "" {
				m.Error = ErrInterrupted.Error()
			}
		}
	}
}

// DeriveTitle builds a conversation title from its first user message,
// falling back to the first message with content.
func DeriveTitle(msgs []models.ChatMessage) string {
	var source string
	for _, m := range msgs {
		if m.Role == models.RoleUser && strings.TrimSpace(m.Content) != "" {
			source = m.Content
			break
		}
	}
	if source == "" {
		for _, m := range msgs {
			if strings.TrimSpace(m.Content) != "" {
				source = m.Content
				break
			}
		}
	}

	source = strings.Join(strings.Fields(source), " ")
	if utf8.RuneCountInString(source) <= titleLimit {
		return source
	}
	runes := []rune(source)
	return strings.TrimSpace(string(runes[:titleLimit])) + "..."
}

func copyMessages(in []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(in))
	copy(out, in)
	return out
}
