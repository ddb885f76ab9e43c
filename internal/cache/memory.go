package cache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store backed by a TTL cache. Suitable for the
// CLI and for tests; the daemon uses the SQLite store.
type MemoryStore struct {
	c *gocache.Cache
}

type memEntry struct {
	payload   []byte
	hitCount  atomic.Int64
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore whose janitor sweeps expired entries
// every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(*memEntry)
	if time.Now().After(e.expiresAt) {
		s.c.Delete(key)
		return nil, false
	}
	hits := e.hitCount.Add(1)
	return &Entry{
		Key:       key,
		Payload:   e.payload,
		HitCount:  hits,
		ExpiresAt: e.expiresAt,
	}, true
}

func (s *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.c.Set(key, &memEntry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}, ttl)
	return nil
}

func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}
