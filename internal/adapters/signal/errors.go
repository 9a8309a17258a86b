package signal

import (
	"errors"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/core"
	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
)

var errorCodes = []struct {
	err  error
	code core.ErrorCode
	msg  string
}{
	{domain.ErrSessionNotFound, core.CodeSessionNotFound, "Session not found"},
	{domain.ErrSessionFull, core.CodeSessionFull, "Session is full"},
	{domain.ErrUsernameEmpty, core.CodeInvalidName, "Name is required"},
	{domain.ErrUsernameTooLong, core.CodeInvalidName, "Name must be at most 50 characters"},
	{domain.ErrInvalidVote, core.CodeInvalidVote, "Vote is not a card of this deck"},
	{domain.ErrVotingNotOpen, core.CodeVotingNotOpen, "Voting is not open"},
	{domain.ErrVotesRevealed, core.CodeVotesRevealed, "Votes are already revealed"},
	{domain.ErrNotAParticipant, core.CodeNotAParticipant, "Join the session first"},
	{domain.ErrObserverCannotVote, core.CodeObserverCannotVote, "Observers cannot vote"},
	{domain.ErrTopicTooLong, core.CodeInvalidTopic, "Topic must be at most 200 characters"},
}

// codeFor maps a store error to its protocol code, falling back to
// fallback for anything unexpected.
func codeFor(err error, fallback core.ErrorCode) (core.ErrorCode, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, e.msg
		}
	}
	return fallback, err.Error()
}

func closeReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingIdentity):
		return "Missing roomId or userId"
	case errors.Is(err, domain.ErrInvalidRoomID):
		return "Invalid roomId format"
	case errors.Is(err, domain.ErrUserIDTooLong):
		return "userId too long"
	default:
		return "Connection rejected"
	}
}
