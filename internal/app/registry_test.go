package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
)

func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		name string
		room domain.RoomID
		user domain.UserID
		want error
	}{
		{"ok", "ABC123", "u1", nil},
		{"missing room", "", "u1", domain.ErrMissingIdentity},
		{"missing user", "ABC123", "", domain.ErrMissingIdentity},
		{"lowercase room", "abc123", "u1", domain.ErrInvalidRoomID},
		{"short room", "ABC12", "u1", domain.ErrInvalidRoomID},
		{"long user", "ABC123", domain.UserID(strings.Repeat("x", 51)), domain.ErrUserIDTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentity(tt.room, tt.user)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegistry_RegisterAndCount(t *testing.T) {
	store := core.NewStore(core.StoreConfig{})
	reg := NewRegistry(store, nil)
	room := newRoom(t, store, "alice")

	c, err := reg.Register(&fakeTransport{}, room, "alice")
	require.NoError(t, err)
	assert.True(t, c.IsAlive())
	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.IsUserConnected("alice", room))
	assert.False(t, reg.IsUserConnected("bob", room))

	_, err = reg.Register(&fakeTransport{}, "bad", "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidRoomID)
	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_BroadcastExcludes(t *testing.T) {
	store := core.NewStore(core.StoreConfig{})
	reg := NewRegistry(store, nil)
	room := newRoom(t, store, "alice", "bob")
	other := newRoom(t, store, "carol")

	ta, tb, tc := &fakeTransport{}, &fakeTransport{}, &fakeTransport{}
	ca, _ := reg.Register(ta, room, "alice")
	_, _ = reg.Register(tb, room, "bob")
	_, _ = reg.Register(tc, other, "carol")

	n := reg.BroadcastToRoom(room, core.NewTopicChanged("x"), ca)
	assert.Equal(t, 1, n)
	assert.Empty(t, ta.types())
	assert.Equal(t, []string{core.TypeTopicChanged}, tb.types())
	assert.Empty(t, tc.types(), "other rooms are isolated")
}

func TestRegistry_SendToConnectionReachesEveryTab(t *testing.T) {
	store := core.NewStore(core.StoreConfig{})
	reg := NewRegistry(store, nil)
	room := newRoom(t, store, "alice", "bob")

	tab1, tab2, tb := &fakeTransport{}, &fakeTransport{}, &fakeTransport{}
	_, _ = reg.Register(tab1, room, "alice")
	_, _ = reg.Register(tab2, room, "alice")
	_, _ = reg.Register(tb, room, "bob")

	n := reg.SendToConnection("alice", room, core.NewError(core.CodeUnauthorized, "no"))
	assert.Equal(t, 2, n)
	assert.Len(t, tab1.types(), 1)
	assert.Len(t, tab2.types(), 1)
	assert.Empty(t, tb.types())
	assert.Equal(t, []domain.UserID{"alice", "bob"}, reg.GetRoomUserIDs(room))
}

func TestRegistry_UnregisterLastTabMarksDisconnected(t *testing.T) {
	store := core.NewStore(core.StoreConfig{})
	reg := NewRegistry(store, nil)
	room := newRoom(t, store, "alice", "bob")

	tab1, tab2, tb := &fakeTransport{}, &fakeTransport{}, &fakeTransport{}
	c1, _ := reg.Register(tab1, room, "alice")
	c2, _ := reg.Register(tab2, room, "alice")
	_, _ = reg.Register(tb, room, "bob")

	require.True(t, reg.Unregister(c1.ID))
	assert.Empty(t, tb.types(), "alice still has a tab open")
	assert.True(t, reg.IsUserConnected("alice", room))

	require.True(t, reg.Unregister(c2.ID))
	assert.Equal(t, []string{core.TypeParticipantLeft}, tb.types())
	assert.Equal(t, "alice", tb.last(t)["userId"])
	assert.False(t, reg.Unregister(c2.ID), "second unregister is a no-op")

	st, err := store.Snapshot(room)
	require.NoError(t, err)
	for _, p := range st.Participants {
		if p.ID == "alice" {
			assert.False(t, p.IsConnected)
		}
	}
}

func TestRegistry_UnregisterUnknownRoomIsQuiet(t *testing.T) {
	store := core.NewStore(core.StoreConfig{})
	reg := NewRegistry(store, nil)

	watcher := &fakeTransport{}
	_, _ = reg.Register(watcher, "ZZZZZZ", "bob")
	c, err := reg.Register(&fakeTransport{}, "ZZZZZZ", "alice")
	require.NoError(t, err)

	assert.True(t, reg.Unregister(c.ID))
	assert.Empty(t, watcher.types(), "no participant-left for a room the store does not know")
}

func TestRegistry_BackpressureKicks(t *testing.T) {
	store := core.NewStore(core.StoreConfig{})
	reg := NewRegistry(store, SimplePolicy{})
	room := newRoom(t, store, "alice", "bob")

	slow, ok := &fakeTransport{full: true}, &fakeTransport{}
	_, _ = reg.Register(slow, room, "alice")
	_, _ = reg.Register(ok, room, "bob")

	reg.BroadcastToRoom(room, core.NewTopicChanged("t"), nil)
	assert.True(t, slow.isClosed())
	assert.Equal(t, core.CloseTryAgainLater, slow.closeCode)
	assert.False(t, reg.IsUserConnected("alice", room))
	assert.Contains(t, ok.types(), core.TypeParticipantLeft)
}

func TestRegistry_BackpressureDropKeepsConnection(t *testing.T) {
	store := core.NewStore(core.StoreConfig{})
	reg := NewRegistry(store, TolerantPolicy{})
	room := newRoom(t, store, "alice")

	slow := &fakeTransport{full: true}
	_, _ = reg.Register(slow, room, "alice")
	assert.Equal(t, 0, reg.BroadcastToRoom(room, core.NewTopicChanged("t"), nil))
	assert.False(t, slow.isClosed())
	assert.True(t, reg.IsUserConnected("alice", room))
}

func TestRegistry_ForceDisconnect(t *testing.T) {
	store := core.NewStore(core.StoreConfig{})
	reg := NewRegistry(store, nil)
	room := newRoom(t, store, "alice")

	t1, t2 := &fakeTransport{}, &fakeTransport{}
	_, _ = reg.Register(t1, room, "alice")
	_, _ = reg.Register(t2, room, "alice")

	assert.Equal(t, 2, reg.ForceDisconnect("alice", room, core.ClosePolicyViolation, "bye"))
	assert.True(t, t1.isClosed())
	assert.True(t, t2.isClosed())
	assert.Equal(t, 0, reg.Count())
}

func TestRegistry_CloseAll(t *testing.T) {
	store := core.NewStore(core.StoreConfig{})
	reg := NewRegistry(store, nil)
	room := newRoom(t, store, "alice", "bob")

	ta, tb := &fakeTransport{}, &fakeTransport{}
	_, _ = reg.Register(ta, room, "alice")
	_, _ = reg.Register(tb, room, "bob")

	reg.CloseAll(core.CloseGoingAway, "server shutting down")
	assert.Equal(t, 0, reg.Count())
	assert.Equal(t, core.CloseGoingAway, ta.closeCode)
	assert.Equal(t, core.CloseGoingAway, tb.closeCode)
}
