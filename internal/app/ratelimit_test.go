package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnAllow_Window(t *testing.T) {
	start := time.Unix(1000, 0)
	c := newConn(&fakeTransport{}, "ABC123", "u", start)
	limit := RateLimit{Messages: 3, Window: time.Second}

	for i := 0; i < 3; i++ {
		assert.Equal(t, Allowed, c.Allow(start.Add(time.Duration(i)*time.Millisecond), limit))
	}
	assert.Equal(t, Limited, c.Allow(start.Add(10*time.Millisecond), limit))
	assert.Equal(t, Dropped, c.Allow(start.Add(20*time.Millisecond), limit))
	assert.Equal(t, Dropped, c.Allow(start.Add(999*time.Millisecond), limit))

	// a new window resets the budget
	assert.Equal(t, Allowed, c.Allow(start.Add(time.Second), limit))
}

func TestConnAllow_DefaultBudget(t *testing.T) {
	now := time.Unix(0, 0)
	c := newConn(&fakeTransport{}, "ABC123", "u", now)
	limit := DefaultRateLimit()
	allowed := 0
	for i := 0; i < 25; i++ {
		if c.Allow(now, limit) == Allowed {
			allowed++
		}
	}
	assert.Equal(t, 20, allowed)
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewIPRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "addresses are independent")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, rl.Prune())
}
