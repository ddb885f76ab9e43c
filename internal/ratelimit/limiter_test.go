package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowUpToCeiling(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("a1")
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, retryAfter := l.Allow("a1")
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)
}

func TestDenialDoesNotConsumeBudget(t *testing.T) {
	base := time.Now()
	l := NewLimiter(1, time.Minute, WithClock(func() time.Time { return base }))

	ok, _ := l.Allow("a1")
	assert.True(t, ok)
	for i := 0; i < 5; i++ {
		ok, _ = l.Allow("a1")
		assert.False(t, ok)
	}
	assert.Equal(t, 0, l.Remaining("a1"))
}

func TestWindowRollover(t *testing.T) {
	now := time.Now()
	l := NewLimiter(1, time.Minute, WithClock(func() time.Time { return now }))

	ok, _ := l.Allow("a1")
	assert.True(t, ok)
	ok, _ = l.Allow("a1")
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = l.Allow("a1")
	assert.True(t, ok, "new window should reset the count")
	assert.Equal(t, 0, l.Remaining("a1"))
}

func TestActorsLimitedIndependently(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	ok, _ := l.Allow("a1")
	assert.True(t, ok)
	ok, _ = l.Allow("a2")
	assert.True(t, ok, "a2 has its own window")
	ok, _ = l.Allow("a1")
	assert.False(t, ok)
}

func TestRetryAfterFloorsAtOneSecond(t *testing.T) {
	now := time.Now()
	l := NewLimiter(1, time.Minute, WithClock(func() time.Time { return now }))

	l.Allow("a1")
	now = now.Add(time.Minute - 10*time.Millisecond)
	ok, retryAfter := l.Allow("a1")
	assert.False(t, ok)
	assert.Equal(t, time.Second, retryAfter)
}

func TestConcurrentBurstNeverExceedsCeiling(t *testing.T) {
	const ceiling = 20
	l := NewLimiter(ceiling, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("a1"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, ceiling, allowed)
}

func TestRemainingForUnknownActor(t *testing.T) {
	l := NewLimiter(5, time.Minute)
	assert.Equal(t, 5, l.Remaining("never-seen"))
}
