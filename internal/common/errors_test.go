package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransientRoundTrip(t *testing.T) {
	base := errors.New("upstream 503")

	assert.False(t, IsTransient(base))
	assert.True(t, IsTransient(Transient(base)))
	assert.Nil(t, Transient(nil))

	// Still recognizable after further wrapping.
	wrapped := fmt.Errorf("call service: %w", Transient(base))
	assert.True(t, IsTransient(wrapped))
	assert.ErrorIs(t, wrapped, base)
}

func TestRateLimitedErrorUnwraps(t *testing.T) {
	err := error(&RateLimitedError{ActorID: "a1", RetryAfter: 30 * time.Second})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "a1")
	assert.Contains(t, err.Error(), "30s")
	assert.False(t, IsTransient(err), "rate limiting is handled by backoff, not blind retry")
}

func TestAppErrorUnwraps(t *testing.T) {
	err := NewAppError("NO_HANDLER", "no handler registered", ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "NO_HANDLER")
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "context"))
	err := WrapError(ErrNotFound, "load task")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "load task")
}
