package signal

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/app"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/metrics"
)

const (
	DefaultReadLimit  = 16 << 10
	DefaultWriteWait  = 5 * time.Second
	DefaultSendBuffer = 32
)

type Options struct {
	ReadLimit  int64
	WriteWait  time.Duration
	SendBuffer int
	RateLimit  app.RateLimit
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = DefaultReadLimit
	}
	if o.WriteWait <= 0 {
		o.WriteWait = DefaultWriteWait
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = DefaultSendBuffer
	}
	if o.RateLimit.Messages <= 0 || o.RateLimit.Window <= 0 {
		o.RateLimit = app.DefaultRateLimit()
	}
	return o
}

// Controller routes protocol messages between sockets and the store.
type Controller struct {
	Store    *core.Store
	Registry *app.Registry
	opts     Options
	now      func() time.Time

	// roomLocks order store writes and their broadcasts per room.
	roomLocks [64]sync.Mutex
}

func NewController(store *core.Store, reg *app.Registry, opts Options) *Controller {
	return &Controller{
		Store:    store,
		Registry: reg,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

func (ctl *Controller) roomLock(roomID domain.RoomID) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roomID))
	return &ctl.roomLocks[h.Sum32()%uint32(len(ctl.roomLocks))]
}

// WsSignalConn adapts a gorilla connection to core.SignalConnection.
// Close queues the close frame behind frames already sent.
type WsSignalConn struct {
	conn      *websocket.Conn
	send      chan core.Frame
	writeWait time.Duration

	mu          sync.RWMutex
	closed      bool
	closeCode   int
	closeReason string
}

func newWsSignalConn(ws *websocket.Conn, buffer int, writeWait time.Duration) *WsSignalConn {
	return &WsSignalConn{
		conn:      ws,
		send:      make(chan core.Frame, buffer),
		writeWait: writeWait,
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Ping() error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return core.ErrConnClosed
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait))
}

func (c *WsSignalConn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

func (c *WsSignalConn) closeFrame() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeReason)
}

// Serve registers an upgraded socket and starts its pumps.
func (ctl *Controller) Serve(ctx context.Context, ws *websocket.Conn, roomID domain.RoomID, userID domain.UserID) {
	wc := newWsSignalConn(ws, ctl.opts.SendBuffer, ctl.opts.WriteWait)
	c, err := ctl.Registry.Register(wc, roomID, userID)
	if err != nil {
		Reject(ws, err, ctl.opts.WriteWait)
		return
	}
	ws.SetReadLimit(ctl.opts.ReadLimit)
	ws.SetPongHandler(func(string) error {
		c.MarkAlive()
		return nil
	})

	ctl.Registry.Send(c, core.NewConnected(userID, roomID))

	go ctl.writePump(ctx, wc)
	go ctl.readPump(c, wc)
}

// Reject closes a freshly upgraded socket with a policy violation.
func Reject(ws *websocket.Conn, err error, writeWait time.Duration) {
	reason := closeReason(err)
	log.Info().Str("module", "signal").Str("reason", reason).Msg("rejecting connection")
	metrics.RejectedConnections.WithLabelValues(reason).Inc()
	msg := websocket.FormatCloseMessage(core.ClosePolicyViolation, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = ws.Close()
}
