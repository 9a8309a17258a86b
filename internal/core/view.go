package core

import (
	"encoding/json"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
)

// Ballot is what a session-state reader may learn about one vote.
// It is either Hidden or Revealed; a hidden ballot carries no value at all.
type Ballot struct {
	revealed bool
	value    string
}

func Hidden() Ballot { return Ballot{} }

func Revealed(value string) Ballot { return Ballot{revealed: true, value: value} }

// Value returns the card and true only for a revealed ballot.
func (b Ballot) Value() (string, bool) { return b.value, b.revealed }

func (b Ballot) MarshalJSON() ([]byte, error) {
	if !b.revealed {
		return json.Marshal(struct {
			HasVoted bool `json:"hasVoted"`
		}{true})
	}
	return json.Marshal(struct {
		HasVoted bool   `json:"hasVoted"`
		Value    string `json:"value"`
	}{true, b.value})
}

// SessionView is the session-state snapshot sent to clients.
type SessionView struct {
	SessionID    domain.RoomID            `json:"sessionId"`
	SessionName  string                   `json:"sessionName"`
	ModeratorID  domain.UserID            `json:"moderatorId"`
	CurrentTopic string                   `json:"currentTopic,omitempty"`
	IsRevealed   bool                     `json:"isRevealed"`
	IsVotingOpen bool                     `json:"isVotingOpen"`
	DeckType     domain.DeckType          `json:"deckType"`
	Participants []domain.Participant     `json:"participants"`
	Votes        map[domain.UserID]Ballot `json:"votes"`
	Statistics   *domain.Statistics       `json:"statistics,omitempty"`
	RoundHistory []domain.RoundRecord     `json:"roundHistory"`
}

// BuildSessionView renders a snapshot. Values and statistics appear only once revealed.
func BuildSessionView(st SessionState) SessionView {
	v := SessionView{
		SessionID:    st.Session.ID,
		SessionName:  st.Session.Name,
		ModeratorID:  st.Session.ModeratorID,
		CurrentTopic: st.Session.CurrentTopic,
		IsRevealed:   st.Session.IsRevealed,
		IsVotingOpen: st.Session.IsVotingOpen,
		DeckType:     st.Session.DeckType,
		Participants: append([]domain.Participant{}, st.Participants...),
		Votes:        make(map[domain.UserID]Ballot, len(st.Votes)),
		RoundHistory: append([]domain.RoundRecord{}, st.RoundHistory...),
	}
	for id, vote := range st.Votes {
		if st.Session.IsRevealed {
			v.Votes[id] = Revealed(vote.Value)
		} else {
			v.Votes[id] = Hidden()
		}
	}
	if st.Session.IsRevealed && st.Statistics != nil {
		stats := *st.Statistics
		v.Statistics = &stats
	}
	return v
}
