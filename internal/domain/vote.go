package domain

import "time"

// Vote is one user's card for the current round.
type Vote struct {
	Value       string    `json:"value"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Statistics is derived at reveal time. Nil fields serialise as null.
type Statistics struct {
	Average *float64 `json:"average"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Range   *float64 `json:"range"`
	Mode    *string  `json:"mode"`
}

// RoundVote is an archived vote together with the voter's name at archive time.
type RoundVote struct {
	ParticipantName string `json:"participantName"`
	Value           string `json:"value"`
}

// RoundRecord is one completed, revealed round.
type RoundRecord struct {
	Topic       string               `json:"topic"`
	Votes       map[UserID]RoundVote `json:"votes"`
	Statistics  Statistics           `json:"statistics"`
	CompletedAt time.Time            `json:"completedAt"`
}
