package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/app"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
)

func (ctl *Controller) handleJoin(c *app.Conn, data []byte) {
	type joinPayload struct {
		ParticipantName string `json:"participantName"`
	}
	var p joinPayload
	if !ctl.decode(c, data, &p) {
		return
	}
	name, err := domain.NormalizeName(p.ParticipantName)
	if err != nil {
		code, msg := codeFor(err, core.CodeInvalidName)
		ctl.replyError(c, code, msg)
		return
	}

	res, err := ctl.Store.AddParticipant(c.RoomID, c.UserID, name)
	if err != nil {
		code, msg := codeFor(err, core.CodeInvalidMessage)
		ctl.replyError(c, code, msg)
		if errors.Is(err, domain.ErrSessionFull) {
			log.Info().Str("module", "signal").Str("room", string(c.RoomID)).Str("user", string(c.UserID)).Msg("session full, closing")
			ctl.Registry.Unregister(c.ID)
			c.Transport.Close(core.ClosePolicyViolation, "Session full")
		}
		return
	}

	st, err := ctl.Store.Snapshot(c.RoomID)
	if err != nil {
		code, msg := codeFor(err, core.CodeSessionNotFound)
		ctl.replyError(c, code, msg)
		return
	}
	log.Info().Str("module", "signal").Str("room", string(c.RoomID)).Str("user", string(c.UserID)).
		Bool("reconnected", res.Reconnected).Msg("join")
	ctl.reply(c, core.NewSessionState(st))

	// Reconnects are echoed to the joining connection too so every tab
	// of the room shows the current name.
	exclude := c
	if res.Reconnected {
		exclude = nil
	}
	ctl.Registry.BroadcastToRoom(c.RoomID, core.NewParticipantJoined(res.Participant), exclude)
	if res.VotingOpened {
		ctl.broadcastState(c, c)
	}
}

func (ctl *Controller) handleToggleObserver(c *app.Conn, _ []byte) {
	observer, err := ctl.Store.ToggleObserver(c.RoomID, c.UserID)
	if err != nil {
		code, msg := codeFor(err, core.CodeToggleFailed)
		ctl.replyError(c, code, msg)
		return
	}
	ctl.broadcast(c, core.NewObserverToggled(c.UserID, observer))
}
