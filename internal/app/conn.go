package app

import (
	"sync/atomic"
	"time"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
	"github.com/google/uuid"
)

// Conn is the registry record of one live transport.
type Conn struct {
	ID          uuid.UUID
	RoomID      domain.RoomID
	UserID      domain.UserID
	Transport   core.SignalConnection
	ConnectedAt time.Time

	alive atomic.Bool

	// Window state is touched only by the connection's read loop.
	messageCount int
	windowStart  time.Time
}

func newConn(t core.SignalConnection, roomID domain.RoomID, userID domain.UserID, now time.Time) *Conn {
	c := &Conn{
		ID:          uuid.New(),
		RoomID:      roomID,
		UserID:      userID,
		Transport:   t,
		ConnectedAt: now,
	}
	c.alive.Store(true)
	return c
}

// MarkAlive records a pong.
func (c *Conn) MarkAlive() { c.alive.Store(true) }

func (c *Conn) IsAlive() bool { return c.alive.Load() }

// Allow counts one inbound message against the connection's window.
func (c *Conn) Allow(now time.Time, limit RateLimit) RateDecision {
	if c.windowStart.IsZero() || now.Sub(c.windowStart) >= limit.Window || now.Before(c.windowStart) {
		c.windowStart = now
		c.messageCount = 0
	}
	c.messageCount++
	switch {
	case c.messageCount <= limit.Messages:
		return Allowed
	case c.messageCount == limit.Messages+1:
		return Limited
	default:
		return Dropped
	}
}
