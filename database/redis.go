package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chxlky/kanban-sync/internal/board"
	"github.com/chxlky/kanban-sync/internal/models"
	"github.com/redis/go-redis/v9"
)

const maxStoredFailures = 500

// RedisStore keeps snapshots as JSON strings with an optional TTL and the
// failure log as a capped list, newest first.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) snapshotKey(key string) string {
	return s.prefix + "snapshot:" + key
}

func (s *RedisStore) failuresKey() string {
	return s.prefix + "failures"
}

func (s *RedisStore) SaveSnapshot(ctx context.Context, key string, b board.Board) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode board snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.snapshotKey(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis error saving board snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadSnapshot(ctx context.Context, key string) (board.Board, error) {
	payload, err := s.client.Get(ctx, s.snapshotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return board.Board{}, ErrNoSnapshot
	}
	if err != nil {
		return board.Board{}, fmt.Errorf("redis error loading board snapshot: %w", err)
	}
	return decodeSnapshot(payload)
}

func (s *RedisStore) RecordFailure(ctx context.Context, f models.ReconcileFailure) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode reconcile failure: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.failuresKey(), payload)
	pipe.LTrim(ctx, s.failuresKey(), 0, maxStoredFailures-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error recording reconcile failure: %w", err)
	}
	return nil
}

func (s *RedisStore) Failures(ctx context.Context, limit int) ([]models.ReconcileFailure, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := s.client.LRange(ctx, s.failuresKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing reconcile failures: %w", err)
	}
	out := make([]models.ReconcileFailure, 0, len(items))
	for _, item := range items {
		var f models.ReconcileFailure
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
