// Package retry runs operations under an explicit retry policy with
// exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/joseph-ayodele/docintake/internal/common"
)

// Policy bounds retries of transient failures. The delay before re-attempt n
// (counting from 0) is BaseDelay * 2^n. Non-transient errors are returned
// immediately; see common.IsTransient.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // backoff base

	// Sleep is substituted in tests to avoid real waits. nil uses a timer
	// honoring ctx cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the service client defaults: 3 attempts, 1s base.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Do invokes fn until it succeeds, returns a non-transient error, or the
// attempt budget runs out. The ctx deadline bounds the whole sequence so a
// stuck operation surfaces as an error rather than hanging.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = waitTimer
	}

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if serr := sleep(ctx, delay); serr != nil {
				return serr
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !common.IsTransient(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func waitTimer(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
