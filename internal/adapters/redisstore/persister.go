package redisstore

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
)

// SnapshotStore is where the Persister writes.
type SnapshotStore interface {
	Save(ctx context.Context, st core.SessionState) error
	Delete(ctx context.Context, id domain.RoomID) error
	LoadAll(ctx context.Context) ([]core.SessionState, error)
}

// Persister mirrors the in-memory store into a SnapshotStore. Only sessions
// whose lastActivity moved since the previous flush are written.
type Persister struct {
	snapshots SnapshotStore
	store     *core.Store
	interval  time.Duration
	saved     map[domain.RoomID]time.Time
}

func NewPersister(snapshots SnapshotStore, store *core.Store, interval time.Duration) *Persister {
	return &Persister{
		snapshots: snapshots,
		store:     store,
		interval:  interval,
		saved:     make(map[domain.RoomID]time.Time),
	}
}

// Restore loads every snapshot into the store and returns how many were
// accepted.
func (p *Persister) Restore(ctx context.Context) (int, error) {
	states, err := p.snapshots.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, st := range states {
		if p.store.Restore(st) {
			p.saved[st.Session.ID] = st.LastActivity
			n++
		}
	}
	log.Info().Str("module", "redisstore").Int("restored", n).Int("found", len(states)).Msg("sessions restored")
	return n, nil
}

// Flush writes changed sessions and forgets deleted ones.
func (p *Persister) Flush(ctx context.Context) (written int) {
	live := make(map[domain.RoomID]struct{})
	for _, id := range p.store.GetAllSessionIDs() {
		live[id] = struct{}{}
		st, err := p.store.Snapshot(id)
		if err != nil {
			continue
		}
		if last, ok := p.saved[id]; ok && !st.LastActivity.After(last) {
			continue
		}
		if err := p.snapshots.Save(ctx, st); err != nil {
			log.Error().Err(err).Str("module", "redisstore").Str("room", string(id)).Msg("snapshot write failed")
			continue
		}
		p.saved[id] = st.LastActivity
		written++
	}
	for id := range p.saved {
		if _, ok := live[id]; ok {
			continue
		}
		if err := p.snapshots.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("module", "redisstore").Str("room", string(id)).Msg("snapshot delete failed")
			continue
		}
		delete(p.saved, id)
	}
	return written
}

func (p *Persister) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// one last flush; ctx is already done
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			p.Flush(flushCtx)
			cancel()
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}
