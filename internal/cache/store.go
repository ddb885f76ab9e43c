// Package cache stores inference responses keyed by normalized semantic key.
package cache

import (
	"context"
	"time"
)

// Entry is one cached payload. Reads past ExpiresAt are misses; ExpiresAt is
// set on every write.
type Entry struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	HitCount  int64     `json:"hit_count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is the persistence surface for cached responses. Get increments the
// hit counter on a hit. Concurrent writers for the same key race benignly:
// same-key payloads are semantically equivalent, last write wins.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Close() error
}
