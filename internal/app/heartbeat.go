package app

import (
	"context"
	"time"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/metrics"
	"github.com/rs/zerolog/log"
)

const DefaultHeartbeatInterval = 30 * time.Second

// Heartbeat terminates connections that did not answer the previous ping.
type Heartbeat struct {
	reg      *Registry
	interval time.Duration
}

func NewHeartbeat(reg *Registry, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeat{reg: reg, interval: interval}
}

func (h *Heartbeat) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	log.Info().Str("module", "app.heartbeat").Dur("interval", h.interval).Msg("heartbeat started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.heartbeat").Msg("heartbeat stopped")
			return nil
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Sweep runs one liveness pass and returns the number of connections it
// terminated.
func (h *Heartbeat) Sweep() int {
	terminated := 0
	h.reg.Range(func(c *Conn) bool {
		if !c.alive.Swap(false) {
			log.Info().Str("module", "app.heartbeat").Str("conn", c.ID.String()).
				Str("user", string(c.UserID)).Msg("no pong, terminating")
			h.reg.Unregister(c.ID)
			c.Transport.Close(core.CloseGoingAway, "heartbeat timeout")
			metrics.HeartbeatTerminations.Inc()
			terminated++
			return true
		}
		if err := c.Transport.Ping(); err != nil {
			log.Debug().Err(err).Str("module", "app.heartbeat").Str("conn", c.ID.String()).Msg("ping failed")
		}
		return true
	})
	return terminated
}
