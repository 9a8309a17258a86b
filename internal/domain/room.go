package domain

import "time"

// RoomCodeAlphabet is the set of characters room codes are drawn from.
const (
	RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	RoomCodeLength   = 6
)

type RoomID string

// ValidRoomID checks the room code format: fixed length, uppercase alphanumeric.
func ValidRoomID(id RoomID) bool {
	if len(id) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// Session is the per-room header. ID and ModeratorID never change after creation.
type Session struct {
	ID           RoomID    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	ModeratorID  UserID    `json:"moderatorId"`
	CurrentTopic string    `json:"currentTopic,omitempty"`
	IsRevealed   bool      `json:"isRevealed"`
	IsVotingOpen bool      `json:"isVotingOpen"`
	DeckType     DeckType  `json:"deckType"`
}
