package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"regdesk/internal/roster/models"
	"regdesk/pkg/platform/sentinel"
)

// RedisTableStore shares the normalized table between server instances as a
// JSON document under a single key.
type RedisTableStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisTableStore creates a store namespaced by prefix.
func NewRedisTableStore(client redis.Cmdable, prefix string) *RedisTableStore {
	return &RedisTableStore{client: client, prefix: prefix}
}

func (s *RedisTableStore) Get(ctx context.Context, key string) (*models.Table, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get roster: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	var table models.Table
	if err := json.Unmarshal(raw, &table); err != nil {
		// A payload from an older layout is treated as a miss and overwritten.
		return nil, false, nil
	}
	return &table, true, nil
}

func (s *RedisTableStore) Set(ctx context.Context, key string, table *models.Table, ttl time.Duration) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set roster: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (s *RedisTableStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete roster: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}
