package server

import (
	"sync"
	"time"

	"github.com/smallbiznis/donasi/internal/clock"
)

const defaultLimiterMaxKeys = 10_000

// rateLimiter is a fixed-window counter keyed by client address. Windows that have
// elapsed are pruned at most once per window, and the map never holds more than
// maxKeys entries: when full, the entry with the oldest window is evicted.
type rateLimiter struct {
	limit   int
	window  time.Duration
	maxKeys int
	clock   clock.Clock

	mu        sync.Mutex
	items     map[string]*rateLimitEntry
	lastPrune time.Time
}

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

func newRateLimiter(limit int, window time.Duration, maxKeys int, clk clock.Clock) *rateLimiter {
	if maxKeys <= 0 {
		maxKeys = defaultLimiterMaxKeys
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &rateLimiter{
		limit:   limit,
		window:  window,
		maxKeys: maxKeys,
		clock:   clk,
		items:   make(map[string]*rateLimitEntry),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastPrune) > r.window {
		r.pruneLocked(now)
	}

	entry := r.items[key]
	if entry == nil || r.expired(entry, now) {
		if entry == nil && len(r.items) >= r.maxKeys {
			r.pruneLocked(now)
			if len(r.items) >= r.maxKeys {
				r.evictOldestLocked()
			}
		}
		entry = &rateLimitEntry{windowStart: now}
		r.items[key] = entry
	}

	if entry.count >= r.limit {
		return false
	}

	entry.count++
	return true
}

// Len reports the number of tracked keys.
func (r *rateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *rateLimiter) expired(entry *rateLimitEntry, now time.Time) bool {
	return now.Sub(entry.windowStart) > r.window
}

func (r *rateLimiter) pruneLocked(now time.Time) {
	for key, entry := range r.items {
		if r.expired(entry, now) {
			delete(r.items, key)
		}
	}
	r.lastPrune = now
}

func (r *rateLimiter) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range r.items {
		if oldestKey == "" || entry.windowStart.Before(oldest) {
			oldestKey, oldest = key, entry.windowStart
		}
	}
	delete(r.items, oldestKey)
}
