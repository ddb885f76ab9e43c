// Package ratelimit enforces per-actor request ceilings over fixed windows.
package ratelimit

import (
	"sync"
	"time"
)

// Window is the per-actor counter for the current interval. One active window
// per actor; the count resets on rollover.
type Window struct {
	ActorID     string    `json:"actor_id"`
	WindowStart time.Time `json:"window_start"`
	Count       int       `json:"count"`
}

// Limiter is shared by all workers in a limiting scope. The counter is
// guarded by a mutex so bursts never undercount.
type Limiter struct {
	ceiling int
	window  time.Duration
	now     func() time.Time

	mu      sync.Mutex
	windows map[string]*Window
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock substitutes the time source. Tests use it to roll windows over
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLimiter allows up to ceiling requests per actor per window.
func NewLimiter(ceiling int, window time.Duration, opts ...Option) *Limiter {
	if ceiling <= 0 {
		ceiling = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	l := &Limiter{
		ceiling: ceiling,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*Window),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allow reports whether actorID may make a request now. The count increments
// only on allowed requests; a denial returns the remaining window time as
// retryAfter.
func (l *Limiter) Allow(actorID string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[actorID]
	if !ok || now.Sub(w.WindowStart) >= l.window {
		w = &Window{ActorID: actorID, WindowStart: now}
		l.windows[actorID] = w
	}

	if w.Count >= l.ceiling {
		retryAfter := w.WindowStart.Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return false, retryAfter
	}

	w.Count++
	return true, 0
}

// Remaining returns how many requests actorID has left in the current window.
func (l *Limiter) Remaining(actorID string) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[actorID]
	if !ok || now.Sub(w.WindowStart) >= l.window {
		return l.ceiling
	}
	if w.Count >= l.ceiling {
		return 0
	}
	return l.ceiling - w.Count
}
