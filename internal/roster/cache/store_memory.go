package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"regdesk/internal/roster/models"
)

// InMemoryTableStore keeps normalized tables in process memory. Stored tables
// are cloned on the way in and out so callers never share mutable state with
// the cache.
type InMemoryTableStore struct {
	items *gocache.Cache
}

// NewInMemoryTableStore creates a store that sweeps expired entries every
// cleanupInterval.
func NewInMemoryTableStore(cleanupInterval time.Duration) *InMemoryTableStore {
	return &InMemoryTableStore{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *InMemoryTableStore) Get(_ context.Context, key string) (*models.Table, bool, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	table, ok := v.(*models.Table)
	if !ok {
		return nil, false, nil
	}
	return table.Clone(), true, nil
}

func (s *InMemoryTableStore) Set(_ context.Context, key string, table *models.Table, ttl time.Duration) error {
	s.items.Set(key, table.Clone(), ttl)
	return nil
}

func (s *InMemoryTableStore) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}
