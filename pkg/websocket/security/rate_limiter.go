package security

import (
	"sync"
	"time"
)

// streamRateLimiter guards the inbound dispatch path against message floods.
// It is a token bucket whose capacity absorbs a full snapshot burst (an
// l2Book refresh fans out one frame per subscribed coin) and whose tokens
// accrue continuously at capacity-per-interval, so a sustained flood
// degrades to dropped frames instead of stalling the listener loop.
type streamRateLimiter struct {
	mu sync.Mutex

	capacity float64
	// tokens accrued per second.
	rate float64

	tokens float64
	lastAt time.Time
}

// NewRateLimiter creates a limiter that admits up to capacity messages as a
// burst and refills the full capacity over each refillInterval.
func NewRateLimiter(capacity int, refillInterval time.Duration) RateLimiter {
	if refillInterval <= 0 {
		refillInterval = time.Second
	}
	return &streamRateLimiter{
		capacity: float64(capacity),
		rate:     float64(capacity) / refillInterval.Seconds(),
		tokens:   float64(capacity),
		lastAt:   time.Now(),
	}
}

func (rl *streamRateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.tokens += now.Sub(rl.lastAt).Seconds() * rl.rate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastAt = now

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// Reset restores the full burst allowance, used when a fresh connection
// starts a new message stream.
func (rl *streamRateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = rl.capacity
	rl.lastAt = time.Now()
}
