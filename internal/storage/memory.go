package storage

import (
	"context"
	"sync"

	"chatbot-kit/internal/models"
)

// MemoryStore keeps the collection in process. Saves counts writes.
type MemoryStore struct {
	mu        sync.Mutex
	histories []models.ChatHistory
	Saves     int
}

func NewMemoryStore(initial ...models.ChatHistory) *MemoryStore {
	return &MemoryStore{histories: cloneAll(initial)}
}

func (s *MemoryStore) Load(ctx context.Context) ([]models.ChatHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.histories), nil
}

func (s *MemoryStore) Save(ctx context.Context, histories []models.ChatHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories = cloneAll(histories)
	s.Saves++
	return nil
}

func cloneAll(in []models.ChatHistory) []models.ChatHistory {
	out := make([]models.ChatHistory, len(in))
	for i, h := range in {
		out[i] = h.Clone()
	}
	return out
}
