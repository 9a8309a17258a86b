package domain

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionFull        = errors.New("session is full")
	ErrStoreFull          = errors.New("session capacity reached")
	ErrNotAParticipant    = errors.New("user is not a participant")
	ErrObserverCannotVote = errors.New("observers cannot vote")
	ErrInvalidVote        = errors.New("vote value is not in the deck")
	ErrVotingNotOpen      = errors.New("voting is not open")
	ErrVotesRevealed      = errors.New("votes are already revealed")
	ErrUnknownDeck        = errors.New("unknown deck type")
	ErrUsernameEmpty      = errors.New("username empty")
	ErrUsernameTooLong    = errors.New("username too long")
	ErrTopicTooLong       = errors.New("topic too long")
	ErrInvalidSessionName = errors.New("invalid session name")
	ErrMissingIdentity    = errors.New("missing roomId or userId")
	ErrUserIDTooLong      = errors.New("userId too long")
	ErrInvalidRoomID      = errors.New("invalid roomId format")
)
