package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
)

type fakeTransport struct {
	mu        sync.Mutex
	frames    []core.Frame
	full      bool
	pings     int
	closed    bool
	closeCode int
	reason    string
}

func (f *fakeTransport) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrConnClosed
	}
	if f.full {
		return core.ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeTransport) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return nil
}

func (f *fakeTransport) Close(code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeCode = code
	f.reason = reason
}

func (f *fakeTransport) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(fr, &env)
		out = append(out, env.Type)
	}
	return out
}

func (f *fakeTransport) last(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.frames)
	var m map[string]any
	require.NoError(t, json.Unmarshal(f.frames[len(f.frames)-1], &m))
	return m
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// newRoom creates a session whose moderator is "mod" and joins users.
func newRoom(t *testing.T, store *core.Store, users ...domain.UserID) domain.RoomID {
	t.Helper()
	st, err := store.CreateSession("Sprint 1", "mod", "Mod", domain.DefaultDeck)
	require.NoError(t, err)
	for _, u := range users {
		_, err := store.AddParticipant(st.Session.ID, u, string(u))
		require.NoError(t, err)
	}
	return st.Session.ID
}
