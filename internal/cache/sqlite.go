package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS inference_cache (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	hit_count  INTEGER NOT NULL DEFAULT 0,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_inference_cache_expires ON inference_cache (expires_at);
`

// SQLiteStore persists cache entries in a local SQLite database so hits
// survive restarts. path ":memory:" gives a throwaway store.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// modernc's driver is not safe for concurrent writes on one connection
	// unless serialized through database/sql; a single writer connection
	// avoids SQLITE_BUSY under worker bursts.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createCacheTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	logger.Info("cache.sqlite.open", "path", path)
	return &SQLiteStore{db: db, log: logger}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, bool) {
	var (
		payload   []byte
		hitCount  int64
		expiresAt int64
	)
	// Incrementing in the same statement keeps concurrent hits from reading
	// and writing the same count.
	err := s.db.QueryRowContext(ctx, `
		UPDATE inference_cache SET hit_count = hit_count + 1
		WHERE key = ?
		RETURNING payload, hit_count, expires_at`, key,
	).Scan(&payload, &hitCount, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.log.Warn("cache.sqlite.get_failed", "error", err)
		return nil, false
	}

	exp := time.Unix(expiresAt, 0)
	if time.Now().After(exp) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM inference_cache WHERE key = ?`, key); err != nil {
			s.log.Warn("cache.sqlite.evict_failed", "error", err)
		}
		return nil, false
	}

	return &Entry{Key: key, Payload: payload, HitCount: hitCount, ExpiresAt: exp}, true
}

func (s *SQLiteStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inference_cache (key, payload, hit_count, expires_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload    = excluded.payload,
			expires_at = excluded.expires_at`,
		key, payload, expiresAt)
	if err != nil {
		return fmt.Errorf("cache upsert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
