package service

import (
	"sync"
	"time"

	"github.com/dropforge/case-service/internal/config"
)

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter is the rate limiting contract. The in-process implementation can
// be swapped for a shared external counter without changing callers.
type Limiter interface {
	Check(key string) Decision
}

type limiterEntry struct {
	hits         []time.Time
	blockedUntil time.Time
}

// SlidingWindowLimiter counts timestamped hits per key within a trailing
// window and blocks a key that exceeds the maximum. State is in-process
// only and does not survive restarts; that is a scope boundary of the
// deployment model, not a bug.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	block   time.Duration
	entries map[string]*limiterEntry
}

// NewSlidingWindowLimiter creates a limiter with the given window, hit
// maximum and block duration
func NewSlidingWindowLimiter(window time.Duration, max int, block time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		window:  window,
		max:     max,
		block:   block,
		entries: make(map[string]*limiterEntry),
	}
}

// Check records a hit for the key and decides whether it is allowed.
// A blocked key is rejected with the remaining block time; otherwise hits
// older than the window are pruned, the hit is appended, and exceeding the
// maximum starts a block.
func (l *SlidingWindowLimiter) Check(key string) Decision {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{}
		l.entries[key] = entry
	}

	if entry.blockedUntil.After(now) {
		return Decision{Allowed: false, RetryAfter: entry.blockedUntil.Sub(now)}
	}

	cutoff := now.Add(-l.window)
	kept := entry.hits[:0]
	for _, ts := range entry.hits {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	entry.hits = append(kept, now)

	if len(entry.hits) > l.max {
		entry.blockedUntil = now.Add(l.block)
		return Decision{Allowed: false, RetryAfter: l.block}
	}

	return Decision{Allowed: true}
}

// Sweep drops keys that have no recent hits and no active block, bounding
// memory for churning key spaces
func (l *SlidingWindowLimiter) Sweep() {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, entry := range l.entries {
		if entry.blockedUntil.After(now) {
			continue
		}
		idle := true
		for _, ts := range entry.hits {
			if ts.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			delete(l.entries, key)
		}
	}
}

// RateLimiters bundles the four independent limiter instances the service
// needs: per-user request throttling, login attempts, refresh attempts and
// write requests
type RateLimiters struct {
	PerUser *SlidingWindowLimiter
	Login   *SlidingWindowLimiter
	Refresh *SlidingWindowLimiter
	Write   *SlidingWindowLimiter
}

// NewRateLimiters creates the limiter instances from configuration.
// Login and refresh abuse is blocked for longer than ordinary traffic.
func NewRateLimiters(cfg config.RateLimitConfig) *RateLimiters {
	window := cfg.Window.Duration
	return &RateLimiters{
		PerUser: NewSlidingWindowLimiter(window, cfg.MaxPerUser, window*5),
		Login:   NewSlidingWindowLimiter(window, cfg.MaxLogin, window*10),
		Refresh: NewSlidingWindowLimiter(window, cfg.MaxRefresh, window*10),
		Write:   NewSlidingWindowLimiter(window, cfg.MaxWrite, window*5),
	}
}

// Sweep prunes idle keys across all limiter instances
func (r *RateLimiters) Sweep() {
	r.PerUser.Sweep()
	r.Login.Sweep()
	r.Refresh.Sweep()
	r.Write.Sweep()
}
