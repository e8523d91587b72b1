// Package ratelimit gates user-initiated weather lookups so rapid map taps
// cannot flood upstream providers.
package ratelimit

import (
	"sync"
	"time"
)

// Default gate settings: at most one request every 2 seconds, and at most 30
// requests in any sliding 60 second window.
const (
	DefaultMinInterval   = 2 * time.Second
	DefaultMaxRequests   = 30
	DefaultWindow        = time.Minute
)

// Limiter enforces two independent gates over request admission: a minimum
// spacing between consecutive requests and a sliding-window request count.
// A request is admitted only when both gates pass. Limiter is safe for
// concurrent use.
type Limiter struct {
	mu sync.Mutex

	minInterval time.Duration
	maxRequests int
	window      time.Duration
	now         func() time.Time

	lastRequest time.Time
	requests    []time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock injects a time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithMinInterval sets the minimum spacing between admitted requests.
func WithMinInterval(d time.Duration) Option {
	return func(l *Limiter) { l.minInterval = d }
}

// WithWindow sets the sliding-window size and its request budget.
func WithWindow(maxRequests int, window time.Duration) Option {
	return func(l *Limiter) {
		l.maxRequests = maxRequests
		l.window = window
	}
}

// New creates a Limiter with the default gates.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		minInterval: DefaultMinInterval,
		maxRequests: DefaultMaxRequests,
		window:      DefaultWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CanMakeRequest reports whether a request would be admitted right now. It
// does not consume budget; callers that proceed must call RecordRequest.
func (l *Limiter) CanMakeRequest() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if !l.lastRequest.IsZero() && now.Sub(l.lastRequest) < l.minInterval {
		return false
	}

	l.prune(now)
	return len(l.requests) < l.maxRequests
}

// RecordRequest consumes budget for a request that is about to be made.
func (l *Limiter) RecordRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.lastRequest = now
	l.prune(now)
	l.requests = append(l.requests, now)
}

// Remaining returns how many requests are left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	remaining := l.maxRequests - len(l.requests)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears all recorded history, reopening both gates immediately.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastRequest = time.Time{}
	l.requests = l.requests[:0]
}

// prune drops request records that have aged out of the window. Callers
// must hold mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.requests) && !l.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.requests = append(l.requests[:0], l.requests[i:]...)
	}
}
