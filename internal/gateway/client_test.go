package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintake/internal/cache"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/inference"
	"github.com/joseph-ayodele/docintake/internal/ratelimit"
	"github.com/joseph-ayodele/docintake/internal/retry"
)

type fakeInference struct {
	calls int
	fn    func(ctx context.Context, req inference.Request) (inference.Response, error)
}

func (f *fakeInference) Complete(ctx context.Context, req inference.Request) (inference.Response, error) {
	f.calls++
	return f.fn(ctx, req)
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newTestClient(inner inference.Client, ceiling int) (*Client, *cache.MemoryStore) {
	store := cache.NewMemoryStore(time.Minute)
	limiter := ratelimit.NewLimiter(ceiling, time.Minute)
	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: noSleep}
	return New(inner, store, limiter, policy, time.Hour, nil), store
}

func TestCompleteCacheHitSkipsService(t *testing.T) {
	inner := &fakeInference{fn: func(context.Context, inference.Request) (inference.Response, error) {
		t.Fatal("service must not be called on a cache hit")
		return inference.Response{}, nil
	}}
	client, store := newTestClient(inner, 10)

	req := inference.Request{ActorID: "a1", Content: "Jane Doe certificate"}
	require.NoError(t, store.Set(context.Background(), Key(req.Content, req.Context), []byte(`{"ok":true}`), time.Hour))

	resp, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.CacheHit)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Content))
	assert.Zero(t, inner.calls)
}

func TestCompleteMissCallsServiceAndWritesThrough(t *testing.T) {
	inner := &fakeInference{fn: func(context.Context, inference.Request) (inference.Response, error) {
		return inference.Response{Content: []byte(`{"amount":"12.50"}`)}, nil
	}}
	client, store := newTestClient(inner, 10)

	req := inference.Request{ActorID: "a1", Content: "donation letter"}
	resp, err := client.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
	assert.Equal(t, 1, inner.calls)

	key := Key(req.Content, req.Context)
	require.Eventually(t, func() bool {
		_, ok := store.Get(context.Background(), key)
		return ok
	}, time.Second, 5*time.Millisecond, "reply should reach the cache")
}

func TestCompleteRateLimited(t *testing.T) {
	inner := &fakeInference{fn: func(context.Context, inference.Request) (inference.Response, error) {
		return inference.Response{Content: []byte(`{}`)}, nil
	}}
	client, _ := newTestClient(inner, 1)

	_, err := client.Complete(context.Background(), inference.Request{ActorID: "a1", Content: "first"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), inference.Request{ActorID: "a1", Content: "second"})
	var rle *common.RateLimitedError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "a1", rle.ActorID)
	assert.GreaterOrEqual(t, rle.RetryAfter, time.Second)
	assert.True(t, errors.Is(err, common.ErrRateLimited))
	assert.Equal(t, 1, inner.calls)
}

func TestCompleteEmptyActorLimitedAsAnonymous(t *testing.T) {
	inner := &fakeInference{fn: func(context.Context, inference.Request) (inference.Response, error) {
		return inference.Response{Content: []byte(`{}`)}, nil
	}}
	client, _ := newTestClient(inner, 1)

	_, err := client.Complete(context.Background(), inference.Request{Content: "first"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), inference.Request{Content: "second"})
	var rle *common.RateLimitedError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "anonymous", rle.ActorID)
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	inner := &fakeInference{}
	inner.fn = func(context.Context, inference.Request) (inference.Response, error) {
		if inner.calls < 3 {
			return inference.Response{}, common.Transient(errors.New("upstream 503"))
		}
		return inference.Response{Content: []byte(`{}`)}, nil
	}
	client, _ := newTestClient(inner, 10)

	resp, err := client.Complete(context.Background(), inference.Request{ActorID: "a1", Content: "flaky"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Content)
	assert.Equal(t, 3, inner.calls)
}

func TestCompletePermanentFailureNotRetried(t *testing.T) {
	inner := &fakeInference{fn: func(context.Context, inference.Request) (inference.Response, error) {
		return inference.Response{}, errors.New("bad request")
	}}
	client, _ := newTestClient(inner, 10)

	_, err := client.Complete(context.Background(), inference.Request{ActorID: "a1", Content: "broken"})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
