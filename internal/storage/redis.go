package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chatbot-kit/internal/models"
)

// DefaultKey names the collection in key-value backends.
const DefaultKey = "chatHistories"

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps the collection as one JSON string value.
type RedisStore struct {
	client redisKV
	key    string
}

func NewRedisStore(client redisKV, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) ([]models.ChatHistory, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.ChatHistory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	var histories []models.ChatHistory
	if err := json.Unmarshal(raw, &histories); err != nil {
		return nil, fmt.Errorf("decode histories: %w", err)
	}
	return histories, nil
}

func (s *RedisStore) Save(ctx context.Context, histories []models.ChatHistory) error {
	raw, err := json.Marshal(histories)
	if err != nil {
		return fmt.Errorf("encode histories: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
