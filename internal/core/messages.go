package core

import "github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"

// Outbound message types.
const (
	TypeConnected       = "connected"
	TypeSessionState    = "session-state"
	TypeParticipantJoin = "participant-joined"
	TypeParticipantLeft = "participant-left"
	TypeVoteSubmitted   = "vote-submitted"
	TypeTopicChanged    = "topic-changed"
	TypeVotesRevealed   = "votes-revealed"
	TypeRoundStarted    = "round-started"
	TypeObserverToggled = "observer-toggled"
	TypeError           = "error"
)

// Close codes shared by the registry, heartbeat and transport adapter.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	ClosePolicyViolation = 1008
	CloseTryAgainLater   = 1013
)

// ErrorCode is the code field of an error message.
type ErrorCode string

const (
	CodeInvalidMessage     ErrorCode = "INVALID_MESSAGE"
	CodeParseError         ErrorCode = "PARSE_ERROR"
	CodeRateLimited        ErrorCode = "RATE_LIMITED"
	CodeInvalidName        ErrorCode = "INVALID_NAME"
	CodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	CodeSessionFull        ErrorCode = "SESSION_FULL"
	CodeInvalidVote        ErrorCode = "INVALID_VOTE"
	CodeVotingNotOpen      ErrorCode = "VOTING_NOT_OPEN"
	CodeVotesRevealed      ErrorCode = "VOTES_REVEALED"
	CodeNotAParticipant    ErrorCode = "NOT_A_PARTICIPANT"
	CodeObserverCannotVote ErrorCode = "OBSERVER_CANNOT_VOTE"
	CodeVoteFailed         ErrorCode = "VOTE_FAILED"
	CodeInvalidTopic       ErrorCode = "INVALID_TOPIC"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeRevealFailed       ErrorCode = "REVEAL_FAILED"
	CodeToggleFailed       ErrorCode = "TOGGLE_FAILED"
	CodeUnknownMessageType ErrorCode = "UNKNOWN_MESSAGE_TYPE"
)

type ConnectedMsg struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
	RoomID domain.RoomID `json:"roomId"`
}

type SessionStateMsg struct {
	Type string `json:"type"`
	SessionView
}

type ParticipantJoinedMsg struct {
	Type        string             `json:"type"`
	Participant domain.Participant `json:"participant"`
}

type ParticipantLeftMsg struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

// VoteSubmittedMsg never carries the value.
type VoteSubmittedMsg struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"userId"`
	HasVoted bool          `json:"hasVoted"`
}

type TopicChangedMsg struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

type VotesRevealedMsg struct {
	Type       string                        `json:"type"`
	Votes      map[domain.UserID]domain.Vote `json:"votes"`
	Statistics domain.Statistics             `json:"statistics"`
}

type RoundStartedMsg struct {
	Type         string               `json:"type"`
	RoundHistory []domain.RoundRecord `json:"roundHistory"`
}

type ObserverToggledMsg struct {
	Type       string        `json:"type"`
	UserID     domain.UserID `json:"userId"`
	IsObserver bool          `json:"isObserver"`
}

type ErrorMsg struct {
	Type    string    `json:"type"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewConnected(userID domain.UserID, roomID domain.RoomID) ConnectedMsg {
	return ConnectedMsg{Type: TypeConnected, UserID: userID, RoomID: roomID}
}

func NewSessionState(st SessionState) SessionStateMsg {
	return SessionStateMsg{Type: TypeSessionState, SessionView: BuildSessionView(st)}
}

func NewParticipantJoined(p domain.Participant) ParticipantJoinedMsg {
	return ParticipantJoinedMsg{Type: TypeParticipantJoin, Participant: p}
}

func NewParticipantLeft(userID domain.UserID) ParticipantLeftMsg {
	return ParticipantLeftMsg{Type: TypeParticipantLeft, UserID: userID}
}

func NewVoteSubmitted(userID domain.UserID) VoteSubmittedMsg {
	return VoteSubmittedMsg{Type: TypeVoteSubmitted, UserID: userID, HasVoted: true}
}

func NewTopicChanged(topic string) TopicChangedMsg {
	return TopicChangedMsg{Type: TypeTopicChanged, Topic: topic}
}

func NewVotesRevealed(res RevealResult) VotesRevealedMsg {
	return VotesRevealedMsg{Type: TypeVotesRevealed, Votes: res.Votes, Statistics: res.Statistics}
}

func NewRoundStarted(history []domain.RoundRecord) RoundStartedMsg {
	if history == nil {
		history = []domain.RoundRecord{}
	}
	return RoundStartedMsg{Type: TypeRoundStarted, RoundHistory: history}
}

func NewObserverToggled(userID domain.UserID, observer bool) ObserverToggledMsg {
	return ObserverToggledMsg{Type: TypeObserverToggled, UserID: userID, IsObserver: observer}
}

func NewError(code ErrorCode, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Code: code, Message: message}
}
