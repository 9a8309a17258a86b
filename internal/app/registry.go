package app

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Registry tracks live connections and their room membership. The store
// never calls back into the registry, so holding r.mu while touching the
// store cannot deadlock.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]*Conn
	rooms  map[domain.RoomID]map[uuid.UUID]*Conn
	store  *core.Store
	policy Policy
	now    func() time.Time
}

func NewRegistry(store *core.Store, policy Policy) *Registry {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Registry{
		conns:  make(map[uuid.UUID]*Conn),
		rooms:  make(map[domain.RoomID]map[uuid.UUID]*Conn),
		store:  store,
		policy: policy,
		now:    time.Now,
	}
}

// ValidateIdentity checks the identifiers a client supplies on connect.
func ValidateIdentity(roomID domain.RoomID, userID domain.UserID) error {
	if roomID == "" || userID == "" {
		return domain.ErrMissingIdentity
	}
	if !domain.ValidRoomID(roomID) {
		return domain.ErrInvalidRoomID
	}
	return domain.ValidUserID(userID)
}

func (r *Registry) Register(t core.SignalConnection, roomID domain.RoomID, userID domain.UserID) (*Conn, error) {
	if err := ValidateIdentity(roomID, userID); err != nil {
		return nil, err
	}
	c := newConn(t, roomID, userID, r.now())

	r.mu.Lock()
	r.conns[c.ID] = c
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[uuid.UUID]*Conn)
		r.rooms[roomID] = members
	}
	members[c.ID] = c
	r.mu.Unlock()

	metrics.ActiveConnections.Inc()
	metrics.TotalConnections.Inc()
	log.Info().Str("module", "app.registry").Str("conn", c.ID.String()).
		Str("room", string(roomID)).Str("user", string(userID)).Msg("registered connection")
	return c, nil
}

// Unregister removes the connection. When it was the user's last
// connection in the room the participant is marked disconnected and the
// room is told. Repeated calls for the same id are no-ops.
func (r *Registry) Unregister(id uuid.UUID) bool {
	r.mu.Lock()
	c, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, id)
	members := r.rooms[c.RoomID]
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, c.RoomID)
	}

	last := true
	for _, other := range members {
		if other.UserID == c.UserID {
			last = false
			break
		}
	}
	notify := false
	if last {
		err := r.store.MarkDisconnected(c.RoomID, c.UserID)
		switch {
		case err == nil:
			notify = true
		case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotAParticipant):
		default:
			log.Warn().Err(err).Str("module", "app.registry").Str("conn", id.String()).Msg("mark disconnected failed")
		}
	}
	r.mu.Unlock()

	metrics.ActiveConnections.Dec()
	log.Info().Str("module", "app.registry").Str("conn", id.String()).
		Str("room", string(c.RoomID)).Str("user", string(c.UserID)).Bool("last", last).Msg("unregistered connection")

	if notify {
		r.BroadcastToRoom(c.RoomID, core.NewParticipantLeft(c.UserID), nil)
	}
	return true
}

func (r *Registry) Get(id uuid.UUID) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *Registry) roomConns(roomID domain.RoomID) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomID]
	out := make([]*Conn, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

func encode(msg any) (core.Frame, bool) {
	if f, ok := msg.(core.Frame); ok {
		return f, true
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.registry").Msg("encode message failed")
		return nil, false
	}
	return core.Frame(data), true
}

// Send queues msg on a single connection.
func (r *Registry) Send(c *Conn, msg any) bool {
	frame, ok := encode(msg)
	if !ok {
		return false
	}
	return r.deliver(c, frame)
}

func (r *Registry) deliver(c *Conn, frame core.Frame) bool {
	err := c.Transport.TrySend(frame)
	if err == nil {
		metrics.MessagesSent.Inc()
		return true
	}
	if !errors.Is(err, core.ErrBackpressure) {
		log.Debug().Err(err).Str("module", "app.registry").Str("conn", c.ID.String()).Msg("send failed")
		return false
	}
	metrics.BackpressureKicks.Inc()
	switch r.policy.OnBackPressure(c) {
	case KickMember:
		log.Warn().Str("module", "app.registry").Str("conn", c.ID.String()).
			Str("user", string(c.UserID)).Msg("kicking slow connection")
		r.Unregister(c.ID)
		c.Transport.Close(core.CloseTryAgainLater, "slow consumer")
	case DropFrame:
		log.Debug().Str("module", "app.registry").Str("conn", c.ID.String()).Msg("dropped frame")
	}
	return false
}

// BroadcastToRoom sends msg to every connection in the room except
// exclude and returns how many accepted it.
func (r *Registry) BroadcastToRoom(roomID domain.RoomID, msg any, exclude *Conn) int {
	frame, ok := encode(msg)
	if !ok {
		return 0
	}
	sent := 0
	for _, c := range r.roomConns(roomID) {
		if exclude != nil && c.ID == exclude.ID {
			continue
		}
		if r.deliver(c, frame) {
			sent++
		}
	}
	return sent
}

// SendToConnection sends msg to every connection the user has in the room.
func (r *Registry) SendToConnection(userID domain.UserID, roomID domain.RoomID, msg any) int {
	frame, ok := encode(msg)
	if !ok {
		return 0
	}
	sent := 0
	for _, c := range r.roomConns(roomID) {
		if c.UserID == userID && r.deliver(c, frame) {
			sent++
		}
	}
	return sent
}

func (r *Registry) GetRoomUserIDs(roomID domain.RoomID) []domain.UserID {
	seen := make(map[domain.UserID]struct{})
	for _, c := range r.roomConns(roomID) {
		seen[c.UserID] = struct{}{}
	}
	out := make([]domain.UserID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) IsUserConnected(userID domain.UserID, roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.rooms[roomID] {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// ForceDisconnect closes every connection of the user in the room.
func (r *Registry) ForceDisconnect(userID domain.UserID, roomID domain.RoomID, code int, reason string) int {
	n := 0
	for _, c := range r.roomConns(roomID) {
		if c.UserID != userID {
			continue
		}
		if r.Unregister(c.ID) {
			n++
		}
		c.Transport.Close(code, reason)
	}
	return n
}

// DeleteIfIdle deletes the session when the room has no connections. The
// check and the delete run under the registry lock, so a Register for the
// room lands either before (and keeps the room) or after the delete.
func (r *Registry) DeleteIfIdle(roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rooms[roomID]) > 0 {
		return false
	}
	return r.store.DeleteSession(roomID)
}

func (r *Registry) RoomConnectionCount(roomID domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Range calls fn for a snapshot of all connections.
func (r *Registry) Range(fn func(c *Conn) bool) {
	r.mu.RLock()
	snap := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		snap = append(snap, c)
	}
	r.mu.RUnlock()
	for _, c := range snap {
		if !fn(c) {
			return
		}
	}
}

// CloseAll is used on shutdown.
func (r *Registry) CloseAll(code int, reason string) {
	r.Range(func(c *Conn) bool {
		r.Unregister(c.ID)
		c.Transport.Close(code, reason)
		return true
	})
}
