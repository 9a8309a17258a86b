package domain

// Participant is a user's membership in a room.
// Disconnecting only flips IsConnected; the entry survives until explicit removal.
type Participant struct {
	ID          UserID `json:"id"`
	Name        string `json:"name"`
	IsModerator bool   `json:"isModerator"`
	IsConnected bool   `json:"isConnected"`
	IsObserver  bool   `json:"isObserver"`
}

// NewParticipant avoids raw literals in the store.
func NewParticipant(id UserID, name string) Participant {
	return Participant{ID: id, Name: name, IsConnected: true}
}
