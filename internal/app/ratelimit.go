package app

import (
	"sync"
	"time"
)

const (
	DefaultRateMessages = 20
	DefaultRateWindow   = time.Second
)

// RateLimit is a fixed window budget for inbound messages.
type RateLimit struct {
	Messages int
	Window   time.Duration
}

func DefaultRateLimit() RateLimit {
	return RateLimit{Messages: DefaultRateMessages, Window: DefaultRateWindow}
}

type RateDecision int

const (
	Allowed RateDecision = iota
	// Limited is the first overflow in a window; the client is told once.
	Limited
	// Dropped is any later overflow in the same window.
	Dropped
)

// IPRateLimiter is a sliding log per client address.
type IPRateLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewIPRateLimiter(limit int, interval time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[ip]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[ip] = fresh
		return false
	}

	rl.history[ip] = append(fresh, now)
	return true
}

// Prune forgets addresses with no attempt inside the window.
func (rl *IPRateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	windowStart := rl.now().Add(-rl.interval)
	removed := 0
	for ip, attempts := range rl.history {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(windowStart) {
			delete(rl.history, ip)
			removed++
		}
	}
	return removed
}
