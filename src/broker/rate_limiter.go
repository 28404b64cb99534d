package broker

import (
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// RateLimiter is a per-client token bucket refilled in whole seconds.
// A capacity of zero or less disables limiting.
// -----------------------------------------------------------------------------

type RateLimiter struct {
	mu         sync.Mutex
	capacity   int
	tokens     int
	lastRefill time.Time
}

// -----------------------------------------------------------------------------

func NewRateLimiter(capacity int, now time.Time) *RateLimiter {
	return &RateLimiter{
		capacity:   capacity,
		tokens:     capacity,
		lastRefill: now,
	}
}

// -----------------------------------------------------------------------------

// Allow consumes one token if available
func (r *RateLimiter) Allow(now time.Time) bool {
	if r == nil || r.capacity <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := int(now.Sub(r.lastRefill) / time.Second)
	if elapsed >= 1 {
		r.tokens = min(r.capacity, r.tokens+elapsed*r.capacity)
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

// Tokens returns the remaining budget without refilling
func (r *RateLimiter) Tokens() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens
}
