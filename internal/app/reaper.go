package app

import (
	"context"
	"time"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSessionTTL   = 24 * time.Hour
	DefaultReapInterval = 10 * time.Minute
)

// Reaper deletes sessions that have been idle longer than ttl and have no
// live connections.
type Reaper struct {
	store    *core.Store
	reg      *Registry
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewReaper(store *core.Store, reg *Registry, ttl, interval time.Duration) *Reaper {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &Reaper{store: store, reg: reg, ttl: ttl, interval: interval, now: time.Now}
}

func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Reaper) Sweep() []domain.RoomID {
	var reaped []domain.RoomID
	for _, id := range r.store.StaleSessions(r.now().Add(-r.ttl)) {
		if r.reg.DeleteIfIdle(id) {
			reaped = append(reaped, id)
			metrics.SessionsReaped.Inc()
		}
	}
	metrics.ActiveSessions.Set(float64(r.store.GetSessionCount()))
	if len(reaped) > 0 {
		log.Info().Str("module", "app.reaper").Int("count", len(reaped)).Msg("reaped idle sessions")
	}
	return reaped
}
