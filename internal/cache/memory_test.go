package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	_, ok := s.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k1", []byte(`{"a":1}`), time.Hour))
	entry, ok := s.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, "k1", entry.Key)
	assert.JSONEq(t, `{"a":1}`, string(entry.Payload))
}

func TestMemoryStoreHitCountIncrements(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", []byte("x"), time.Hour))
	for want := int64(1); want <= 3; want++ {
		entry, ok := s.Get(ctx, "k1")
		require.True(t, ok)
		assert.Equal(t, want, entry.HitCount)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", []byte("x"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, ok := s.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryStoreOverwriteResetsEntry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", []byte("old"), time.Hour))
	_, ok := s.Get(ctx, "k1")
	require.True(t, ok)

	require.NoError(t, s.Set(ctx, "k1", []byte("new"), time.Hour))
	entry, ok := s.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), entry.Payload)
	assert.Equal(t, int64(1), entry.HitCount, "a fresh payload starts counting again")
}
