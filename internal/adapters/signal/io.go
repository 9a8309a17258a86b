package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/app"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/metrics"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsSignalConn) {
	defer func() { _ = c.conn.Close() }()
	for {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(core.CloseGoingAway, "server shutting down")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, c.closeFrame(), time.Now().Add(c.writeWait))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(c *app.Conn, wc *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", c.ID.String()).Msg("readPump closing")
		ctl.Registry.Unregister(c.ID)
		wc.Close(core.CloseNormal, "")
	}()

	for {
		_, data, err := wc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", c.ID.String()).Msg("readPump read error")
			}
			return
		}
		c.MarkAlive()
		ctl.HandleMessage(c, data)
	}
}

// HandleMessage runs one inbound frame through rate limiting, validation
// and dispatch. A panic in a handler is contained to the message.
func (ctl *Controller) HandleMessage(c *app.Conn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("module", "signal").Str("conn", c.ID.String()).Msg("handler panic")
		}
	}()

	switch c.Allow(ctl.now(), ctl.opts.RateLimit) {
	case app.Limited:
		ctl.replyError(c, core.CodeRateLimited, "Too many messages, slow down")
		return
	case app.Dropped:
		return
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		if json.Valid(data) {
			ctl.replyError(c, core.CodeInvalidMessage, "Message must be a JSON object")
		} else {
			ctl.replyError(c, core.CodeParseError, "Message is not valid JSON")
		}
		return
	}
	var msgType string
	if raw, ok := env["type"]; !ok || json.Unmarshal(raw, &msgType) != nil || msgType == "" {
		ctl.replyError(c, core.CodeInvalidMessage, "Message type is missing")
		return
	}

	h, ok := handlers[msgType]
	if !ok {
		metrics.MessagesReceived.WithLabelValues("unknown").Inc()
		log.Debug().Str("module", "signal").Str("type", msgType).Msg("unknown message type")
		ctl.replyError(c, core.CodeUnknownMessageType, "Unknown message type: "+msgType)
		return
	}
	metrics.MessagesReceived.WithLabelValues(msgType).Inc()
	mu := ctl.roomLock(c.RoomID)
	mu.Lock()
	defer mu.Unlock()
	h(ctl, c, data)
}

type handlerFunc func(ctl *Controller, c *app.Conn, data []byte)

var handlers = map[string]handlerFunc{
	"join-session":    (*Controller).handleJoin,
	"submit-vote":     (*Controller).handleSubmitVote,
	"set-topic":       (*Controller).handleSetTopic,
	"reveal-votes":    (*Controller).handleReveal,
	"new-round":       (*Controller).handleNewRound,
	"toggle-observer": (*Controller).handleToggleObserver,
}

// decode fills p from data and reports INVALID_MESSAGE on type mismatches.
func (ctl *Controller) decode(c *app.Conn, data []byte, p any) bool {
	if err := json.Unmarshal(data, p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			ctl.replyError(c, core.CodeInvalidMessage, "Field "+typeErr.Field+" has the wrong type")
		} else {
			ctl.replyError(c, core.CodeInvalidMessage, "Malformed payload")
		}
		return false
	}
	return true
}

func (ctl *Controller) reply(c *app.Conn, v any) {
	ctl.Registry.Send(c, v)
}

func (ctl *Controller) replyError(c *app.Conn, code core.ErrorCode, message string) {
	metrics.ProtocolErrors.WithLabelValues(string(code)).Inc()
	log.Debug().Str("module", "signal").Str("conn", c.ID.String()).Str("code", string(code)).Msg(message)
	ctl.Registry.Send(c, core.NewError(code, message))
}

func (ctl *Controller) broadcast(c *app.Conn, v any) {
	ctl.Registry.BroadcastToRoom(c.RoomID, v, nil)
}

// broadcastState sends a fresh session-state to the room, skipping exclude.
func (ctl *Controller) broadcastState(c *app.Conn, exclude *app.Conn) {
	st, err := ctl.Store.Snapshot(c.RoomID)
	if err != nil {
		return
	}
	ctl.Registry.BroadcastToRoom(c.RoomID, core.NewSessionState(st), exclude)
}
