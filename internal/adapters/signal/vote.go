package signal

import (
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/app"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
)

func (ctl *Controller) handleSubmitVote(c *app.Conn, data []byte) {
	type votePayload struct {
		Value string `json:"value"`
	}
	var p votePayload
	if !ctl.decode(c, data, &p) {
		return
	}
	if err := ctl.Store.SubmitVote(c.RoomID, c.UserID, p.Value); err != nil {
		code, msg := codeFor(err, core.CodeVoteFailed)
		ctl.replyError(c, code, msg)
		return
	}
	ctl.broadcast(c, core.NewVoteSubmitted(c.UserID))
}
