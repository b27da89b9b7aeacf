package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"chatbot-kit/internal/models"
)

// HistoryKey is the single key the chat history collection lives under.
const HistoryKey = "chatHistories"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// HistoryRepo keeps the chat history collection in the kv_store table.
type HistoryRepo struct {
	pool querier
	key  string
}

// NewHistoryRepo accepts a *pgxpool.Pool or anything with the same methods.
func NewHistoryRepo(pool querier) *HistoryRepo {
	return &HistoryRepo{pool: pool, key: HistoryKey}
}

func (r *HistoryRepo) Load(ctx context.Context) ([]models.ChatHistory, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, "SELECT value FROM kv_store WHERE key = $1", r.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []models.ChatHistory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chat histories: %w", err)
	}

	var histories []models.ChatHistory
	if err := json.Unmarshal(raw, &histories); err != nil {
		return nil, fmt.Errorf("decode chat histories: %w", err)
	}
	return histories, nil
}

func (r *HistoryRepo) Save(ctx context.Context, histories []models.ChatHistory) error {
	raw, err := json.Marshal(histories)
	if err != nil {
		return fmt.Errorf("encode chat histories: %w", err)
	}

	query := `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := r.pool.Exec(ctx, query, r.key, raw); err != nil {
		return fmt.Errorf("save chat histories: %w", err)
	}
	return nil
}
