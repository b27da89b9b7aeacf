package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot-kit/internal/models"
)

func sampleHistories() []models.ChatHistory {
	a := models.NewChatHistory()
	a.Title = "Hello"
	a.Messages = []models.ChatMessage{
		models.NewMessage(models.RoleUser, "Hello"),
		models.NewMessage(models.RoleAssistant, "Hi there!"),
	}
	b := models.NewChatHistory()
	return []models.ChatHistory{a, b}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "histories.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	empty, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, empty)

	want := sampleHistories()
	require.NoError(t, store.Save(context.Background(), want))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[0].ID, got[0].ID)
	assert.Equal(t, "Hi there!", got[0].Messages[1].Content)
	assert.Equal(t, models.RoleAssistant, got[0].Messages[1].Role)

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, st.Size())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "histories.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0o644))

	store, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	assert.Error(t, err)
}

type stubRedis struct {
	values map[string]string
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := s.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *stubRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	s.values[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	kv := &stubRedis{values: map[string]string{}}
	store := NewRedisStore(kv, "")

	empty, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, empty)

	want := sampleHistories()
	require.NoError(t, store.Save(context.Background(), want))
	assert.Contains(t, kv.values, DefaultKey)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[1].ID, got[1].ID)
}

func TestMemoryStore_IsolatesCallers(t *testing.T) {
	store := NewMemoryStore()
	hs := sampleHistories()
	require.NoError(t, store.Save(context.Background(), hs))

	hs[0].Messages[0].Content = "mutated"

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello", got[0].Messages[0].Content)
	assert.Equal(t, 1, store.Saves)
}
