package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/app"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/metrics"
)

// requireModerator replies UNAUTHORIZED (or SESSION_NOT_FOUND) and
// returns false unless the caller moderates the room.
func (ctl *Controller) requireModerator(c *app.Conn) bool {
	ok, err := ctl.Store.IsModerator(c.RoomID, c.UserID)
	if err != nil {
		code, msg := codeFor(err, core.CodeSessionNotFound)
		ctl.replyError(c, code, msg)
		return false
	}
	if !ok {
		ctl.replyError(c, core.CodeUnauthorized, "Only the moderator can do that")
		return false
	}
	return true
}

func (ctl *Controller) handleSetTopic(c *app.Conn, data []byte) {
	type topicPayload struct {
		Topic string `json:"topic"`
	}
	var p topicPayload
	if !ctl.decode(c, data, &p) {
		return
	}
	if !ctl.requireModerator(c) {
		return
	}
	topic, err := domain.NormalizeTopic(p.Topic)
	if err != nil {
		ctl.replyError(c, core.CodeInvalidTopic, "Topic must be at most 200 characters")
		return
	}
	opened, err := ctl.Store.SetTopic(c.RoomID, topic)
	if err != nil {
		code, msg := codeFor(err, core.CodeInvalidTopic)
		ctl.replyError(c, code, msg)
		return
	}
	ctl.broadcast(c, core.NewTopicChanged(topic))
	if opened {
		ctl.broadcastState(c, nil)
	}
}

func (ctl *Controller) handleReveal(c *app.Conn, _ []byte) {
	if !ctl.requireModerator(c) {
		return
	}
	res, err := ctl.Store.RevealVotes(c.RoomID)
	if err != nil {
		code, msg := codeFor(err, core.CodeRevealFailed)
		ctl.replyError(c, code, msg)
		return
	}
	if res.AlreadyRevealed {
		log.Debug().Str("module", "signal").Str("room", string(c.RoomID)).Msg("reveal ignored, already revealed")
		return
	}
	metrics.VotesRevealed.Inc()
	ctl.broadcast(c, core.NewVotesRevealed(res))
}

func (ctl *Controller) handleNewRound(c *app.Conn, _ []byte) {
	if !ctl.requireModerator(c) {
		return
	}
	history, err := ctl.Store.StartNewRound(c.RoomID)
	if err != nil {
		code, msg := codeFor(err, core.CodeSessionNotFound)
		ctl.replyError(c, code, msg)
		return
	}
	ctl.broadcast(c, core.NewRoundStarted(history))
}
