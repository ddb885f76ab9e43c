package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, ok := s.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k1", []byte(`{"a":1}`), time.Hour))
	entry, ok := s.Get(ctx, "k1")
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(entry.Payload))
	assert.Equal(t, int64(1), entry.HitCount)
}

func TestSQLiteStoreHitCountPersists(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", []byte("x"), time.Hour))
	for want := int64(1); want <= 3; want++ {
		entry, ok := s.Get(ctx, "k1")
		require.True(t, ok)
		assert.Equal(t, want, entry.HitCount)
	}
}

func TestSQLiteStoreConcurrentHitsAllCounted(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k1", []byte("x"), time.Hour))

	const hits = 20
	var wg sync.WaitGroup
	for i := 0; i < hits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := s.Get(ctx, "k1")
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	entry, ok := s.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, int64(hits+1), entry.HitCount)
}

func TestSQLiteStoreExpiredEntryEvicted(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", []byte("x"), -time.Minute))
	_, ok := s.Get(ctx, "k1")
	assert.False(t, ok)
	_, ok = s.Get(ctx, "k1")
	assert.False(t, ok, "the expired row is deleted, not just hidden")
}

func TestSQLiteStoreUpsert(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", []byte("old"), time.Hour))
	require.NoError(t, s.Set(ctx, "k1", []byte("new"), time.Hour))

	entry, ok := s.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), entry.Payload)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k1", []byte("persisted"), time.Hour))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer s.Close()
	entry, ok := s.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, []byte("persisted"), entry.Payload)
}
