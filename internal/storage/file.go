// Package storage holds persistence adapters for the chat history
// collection. Each adapter stores the whole collection under one key, the
// way a browser keeps it in a single local-storage entry.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"chatbot-kit/internal/models"
)

// FileStore keeps the collection as a JSON array in one file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure history dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(ctx context.Context) ([]models.ChatHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.ChatHistory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read histories: %w", err)
	}
	if len(data) == 0 {
		return []models.ChatHistory{}, nil
	}

	var histories []models.ChatHistory
	if err := json.Unmarshal(data, &histories); err != nil {
		return nil, fmt.Errorf("decode histories: %w", err)
	}
	return histories, nil
}

// Save replaces the file atomically so a crash never leaves half a document.
func (s *FileStore) Save(ctx context.Context, histories []models.ChatHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(histories)
	if err != nil {
		return fmt.Errorf("encode histories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".histories-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write histories: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace histories: %w", err)
	}
	return nil
}
