// Package gateway fronts the inference service with caching, per-actor rate
// limiting and bounded retries. Every inference call in the pipeline goes
// through a gateway Client.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docintake/internal/cache"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/inference"
	"github.com/joseph-ayodele/docintake/internal/ratelimit"
	"github.com/joseph-ayodele/docintake/internal/retry"
)

const writeThroughTimeout = 5 * time.Second

// Client wraps an inference.Client and implements the same interface, so the
// extraction engine and the mapper never see the difference.
type Client struct {
	inner   inference.Client
	store   cache.Store
	limiter *ratelimit.Limiter
	policy  retry.Policy
	ttl     time.Duration
	log     *slog.Logger
}

func New(inner inference.Client, store cache.Store, limiter *ratelimit.Limiter, policy retry.Policy, ttl time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{
		inner:   inner,
		store:   store,
		limiter: limiter,
		policy:  policy,
		ttl:     ttl,
		log:     logger,
	}
}

// Complete serves from cache when possible, otherwise rate-limits, calls the
// service under the retry policy, and writes the reply through asynchronously.
// A cache-write failure never fails the caller.
func (c *Client) Complete(ctx context.Context, req inference.Request) (inference.Response, error) {
	key := Key(req.Content, req.Context)

	if entry, ok := c.store.Get(ctx, key); ok {
		c.log.Info("gateway.cache.hit", "key", key[:12], "hit_count", entry.HitCount)
		return inference.Response{Content: entry.Payload, CacheHit: true}, nil
	}

	actor := req.ActorID
	if actor == "" {
		actor = "anonymous"
	}
	if allowed, retryAfter := c.limiter.Allow(actor); !allowed {
		c.log.Warn("gateway.rate_limited", "actor_id", actor, "retry_after_s", retryAfter.Seconds())
		return inference.Response{}, &common.RateLimitedError{ActorID: actor, RetryAfter: retryAfter}
	}

	start := time.Now()
	var resp inference.Response
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		r, err := c.inner.Complete(ctx, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		c.log.Error("gateway.complete.failed",
			"actor_id", actor,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return inference.Response{}, err
	}

	// Write-through on a detached context: the caller may cancel interest in
	// the result, but a completed reply should still populate the cache.
	go func(payload []byte) {
		wctx, cancel := context.WithTimeout(context.Background(), writeThroughTimeout)
		defer cancel()
		if err := c.store.Set(wctx, key, payload, c.ttl); err != nil {
			c.log.Warn("gateway.cache.write_failed", "key", key[:12], "error", err)
		}
	}(resp.Content)

	c.log.Info("gateway.complete.ok",
		"actor_id", actor,
		"reply_bytes", len(resp.Content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
