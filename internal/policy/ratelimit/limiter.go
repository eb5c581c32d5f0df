// Package ratelimit implements the per-client sliding-window abuse limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Config holds limiter configuration. The ceiling is meant to stop automated
// abuse, not normal reading.
type Config struct {
	// Limit is the maximum number of requests per window per client.
	Limit int
	// Window is the sliding window duration.
	Window time.Duration
}

// Limiter tracks request timestamps per client key (normally the client IP).
type Limiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// New creates a Limiter. Zero values fall back to 500 requests per 15 minutes.
func New(cfg Config) *Limiter {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 500
	}
	window := cfg.Window
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Limiter{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow records one request for key and reports whether it is within the
// ceiling. When it is not, retryAfter is the ceiling of the milliseconds
// remaining in the window, expressed in whole seconds.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter int) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.clients[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.clients[key] = kept
		remaining := kept[0].Add(l.window).Sub(now)
		secs := int((remaining.Milliseconds() + 999) / 1000)
		if secs < 1 {
			secs = 1
		}
		return false, secs
	}

	l.clients[key] = append(kept, now)
	return true, 0
}

// Len reports how many clients currently have recorded requests.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
