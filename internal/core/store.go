package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ChrisBrooksbank/planningpoker-sub000/internal/domain"
)

const (
	DefaultMaxSessions     = 1000
	DefaultMaxParticipants = 50
	DefaultHistoryLimit    = 20
)

// SessionState aggregates everything the store keeps for one room.
type SessionState struct {
	Session      domain.Session                `json:"session"`
	Participants []domain.Participant          `json:"participants"`
	Votes        map[domain.UserID]domain.Vote `json:"votes"`
	Statistics   *domain.Statistics            `json:"statistics,omitempty"`
	RoundHistory []domain.RoundRecord          `json:"roundHistory"`
	LastActivity time.Time                     `json:"lastActivity"`
}

func (s *SessionState) participant(id domain.UserID) (int, bool) {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// clone returns a deep copy safe to hand out of the room lock.
func (s *SessionState) clone() SessionState {
	out := *s
	out.Participants = append([]domain.Participant(nil), s.Participants...)
	out.Votes = make(map[domain.UserID]domain.Vote, len(s.Votes))
	for k, v := range s.Votes {
		out.Votes[k] = v
	}
	if s.Statistics != nil {
		st := *s.Statistics
		out.Statistics = &st
	}
	out.RoundHistory = append([]domain.RoundRecord(nil), s.RoundHistory...)
	return out
}

// StoreConfig sets the store ceilings. Zero values select the defaults.
type StoreConfig struct {
	MaxSessions     int
	MaxParticipants int
	HistoryLimit    int
	CodeAttempts    int
}

type roomEntry struct {
	mu      sync.Mutex
	state   SessionState
	deleted bool
}

// Store is the single authority over session state.
// Each room has its own mutex and every operation runs as one critical section on it,
// so a vote can never interleave with a reveal of the same room.
// It performs no I/O and knows nothing about transports.
type Store struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomEntry
	codes RoomCodeGenerator
	cfg   StoreConfig
	now   func() time.Time
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.MaxParticipants <= 0 {
		cfg.MaxParticipants = DefaultMaxParticipants
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.CodeAttempts <= 0 {
		cfg.CodeAttempts = DefaultCodeAttempts
	}
	return &Store{
		rooms: make(map[domain.RoomID]*roomEntry),
		codes: NewRoomCodeGenerator(),
		cfg:   cfg,
		now:   time.Now,
	}
}

// with runs fn under the room lock. Absence is reported as domain.ErrSessionNotFound.
func (s *Store) with(roomID domain.RoomID, fn func(st *SessionState) error) error {
	s.mu.RLock()
	e, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return domain.ErrSessionNotFound
	}
	return fn(&e.state)
}

// mutate is with plus the lastActivity bump every successful write carries.
func (s *Store) mutate(roomID domain.RoomID, fn func(st *SessionState) error) error {
	return s.with(roomID, func(st *SessionState) error {
		if err := fn(st); err != nil {
			return err
		}
		st.LastActivity = s.now()
		return nil
	})
}

// CreateSession allocates a fresh room code and seeds the moderator as the only participant.
func (s *Store) CreateSession(name string, moderatorID domain.UserID, moderatorName string, deck domain.DeckType) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rooms) >= s.cfg.MaxSessions {
		return SessionState{}, domain.ErrStoreFull
	}
	id, err := s.codes.Generate(func(c domain.RoomID) bool {
		_, taken := s.rooms[c]
		return taken
	}, s.cfg.CodeAttempts)
	if err != nil {
		return SessionState{}, err
	}

	now := s.now()
	mod := domain.NewParticipant(moderatorID, moderatorName)
	mod.IsModerator = true

	e := &roomEntry{state: SessionState{
		Session: domain.Session{
			ID:          id,
			Name:        name,
			CreatedAt:   now,
			ModeratorID: moderatorID,
			DeckType:    deck,
		},
		Participants: []domain.Participant{mod},
		Votes:        make(map[domain.UserID]domain.Vote),
		RoundHistory: []domain.RoundRecord{},
		LastActivity: now,
	}}
	s.rooms[id] = e
	log.Debug().Str("module", "core.store").Str("room", string(id)).Int("sessions", len(s.rooms)).Msg("session created")
	return e.state.clone(), nil
}

// JoinResult describes the outcome of AddParticipant.
type JoinResult struct {
	Participant  domain.Participant
	Participants []domain.Participant
	Reconnected  bool
	// VotingOpened is set when the moderator's arrival opened the first round.
	VotingOpened bool
}

// AddParticipant joins or rejoins userID. A known id is a reconnect: the name is updated,
// the participant is marked connected and the capacity ceiling does not apply.
func (s *Store) AddParticipant(roomID domain.RoomID, userID domain.UserID, name string) (JoinResult, error) {
	var res JoinResult
	err := s.mutate(roomID, func(st *SessionState) error {
		if i, ok := st.participant(userID); ok {
			st.Participants[i].Name = name
			st.Participants[i].IsConnected = true
			res.Participant = st.Participants[i]
			res.Reconnected = true
		} else {
			if len(st.Participants) >= s.cfg.MaxParticipants {
				return domain.ErrSessionFull
			}
			p := domain.NewParticipant(userID, name)
			st.Participants = append(st.Participants, p)
			res.Participant = p
		}
		if userID == st.Session.ModeratorID && !st.Session.IsRevealed && !st.Session.IsVotingOpen {
			st.Session.IsVotingOpen = true
			res.VotingOpened = true
		}
		res.Participants = append([]domain.Participant(nil), st.Participants...)
		return nil
	})
	return res, err
}

// MarkDisconnected flips IsConnected off. The participant and their vote stay.
func (s *Store) MarkDisconnected(roomID domain.RoomID, userID domain.UserID) error {
	return s.mutate(roomID, func(st *SessionState) error {
		i, ok := st.participant(userID)
		if !ok {
			return domain.ErrNotAParticipant
		}
		st.Participants[i].IsConnected = false
		return nil
	})
}

// RemoveParticipant drops userID and their vote. The moderator cannot be removed.
func (s *Store) RemoveParticipant(roomID domain.RoomID, userID domain.UserID) error {
	return s.mutate(roomID, func(st *SessionState) error {
		i, ok := st.participant(userID)
		if !ok || st.Participants[i].IsModerator {
			return domain.ErrNotAParticipant
		}
		st.Participants = append(st.Participants[:i], st.Participants[i+1:]...)
		delete(st.Votes, userID)
		return nil
	})
}

// ToggleObserver flips the observer flag and returns the new value.
// Becoming an observer deletes the user's vote.
func (s *Store) ToggleObserver(roomID domain.RoomID, userID domain.UserID) (bool, error) {
	var observer bool
	err := s.mutate(roomID, func(st *SessionState) error {
		i, ok := st.participant(userID)
		if !ok {
			return domain.ErrNotAParticipant
		}
		p := &st.Participants[i]
		p.IsObserver = !p.IsObserver
		if p.IsObserver {
			delete(st.Votes, userID)
		}
		observer = p.IsObserver
		return nil
	})
	return observer, err
}

// SetTopic replaces the current topic. Setting a topic before the first round opens voting.
func (s *Store) SetTopic(roomID domain.RoomID, topic string) (votingOpened bool, err error) {
	err = s.mutate(roomID, func(st *SessionState) error {
		st.Session.CurrentTopic = topic
		if !st.Session.IsRevealed && !st.Session.IsVotingOpen {
			st.Session.IsVotingOpen = true
			votingOpened = true
		}
		return nil
	})
	return votingOpened, err
}

// SubmitVote records or overwrites userID's vote for the current round.
func (s *Store) SubmitVote(roomID domain.RoomID, userID domain.UserID, value string) error {
	return s.mutate(roomID, func(st *SessionState) error {
		if !st.Session.DeckType.Contains(value) {
			return domain.ErrInvalidVote
		}
		if st.Session.IsRevealed {
			return domain.ErrVotesRevealed
		}
		if !st.Session.IsVotingOpen {
			return domain.ErrVotingNotOpen
		}
		i, ok := st.participant(userID)
		if !ok {
			return domain.ErrNotAParticipant
		}
		if st.Participants[i].IsObserver {
			return domain.ErrObserverCannotVote
		}
		st.Votes[userID] = domain.Vote{Value: value, SubmittedAt: s.now()}
		return nil
	})
}

// RevealResult carries the votes and statistics made visible by a reveal.
type RevealResult struct {
	Votes      map[domain.UserID]domain.Vote
	Statistics domain.Statistics
	// AlreadyRevealed means the round was revealed before; nothing was recomputed.
	AlreadyRevealed bool
}

// RevealVotes closes voting and computes statistics over every stored vote,
// including votes of participants who are offline. A repeated call returns the
// statistics stored by the first one.
func (s *Store) RevealVotes(roomID domain.RoomID) (RevealResult, error) {
	var res RevealResult
	err := s.mutate(roomID, func(st *SessionState) error {
		if st.Session.IsRevealed && st.Statistics != nil {
			res.AlreadyRevealed = true
		} else {
			stats := ComputeStatistics(st.Votes)
			st.Statistics = &stats
			st.Session.IsRevealed = true
			st.Session.IsVotingOpen = false
		}
		res.Statistics = *st.Statistics
		res.Votes = make(map[domain.UserID]domain.Vote, len(st.Votes))
		for k, v := range st.Votes {
			res.Votes[k] = v
		}
		return nil
	})
	return res, err
}

// StartNewRound archives a revealed round with votes, then clears votes and reopens voting.
// It returns the round history after archiving.
func (s *Store) StartNewRound(roomID domain.RoomID) ([]domain.RoundRecord, error) {
	var history []domain.RoundRecord
	err := s.mutate(roomID, func(st *SessionState) error {
		if st.Session.IsRevealed && len(st.Votes) > 0 && st.Statistics != nil {
			st.RoundHistory = append(st.RoundHistory, archive(st, s.now()))
			if over := len(st.RoundHistory) - s.cfg.HistoryLimit; over > 0 {
				st.RoundHistory = append([]domain.RoundRecord(nil), st.RoundHistory[over:]...)
			}
		}
		st.Votes = make(map[domain.UserID]domain.Vote)
		st.Statistics = nil
		st.Session.IsRevealed = false
		st.Session.IsVotingOpen = true
		history = append([]domain.RoundRecord(nil), st.RoundHistory...)
		return nil
	})
	return history, err
}

func archive(st *SessionState, at time.Time) domain.RoundRecord {
	names := make(map[domain.UserID]string, len(st.Participants))
	for _, p := range st.Participants {
		names[p.ID] = p.Name
	}
	votes := make(map[domain.UserID]domain.RoundVote, len(st.Votes))
	for id, v := range st.Votes {
		votes[id] = domain.RoundVote{ParticipantName: names[id], Value: v.Value}
	}
	return domain.RoundRecord{
		Topic:       st.Session.CurrentTopic,
		Votes:       votes,
		Statistics:  *st.Statistics,
		CompletedAt: at,
	}
}

// Snapshot returns a deep copy of the room's state.
func (s *Store) Snapshot(roomID domain.RoomID) (SessionState, error) {
	var out SessionState
	err := s.with(roomID, func(st *SessionState) error {
		out = st.clone()
		return nil
	})
	return out, err
}

// IsModerator reports whether userID is the room's moderator.
func (s *Store) IsModerator(roomID domain.RoomID, userID domain.UserID) (bool, error) {
	var ok bool
	err := s.with(roomID, func(st *SessionState) error {
		ok = st.Session.ModeratorID == userID
		return nil
	})
	return ok, err
}

func (s *Store) DeleteSession(roomID domain.RoomID) bool {
	s.mu.Lock()
	e, ok := s.rooms[roomID]
	delete(s.rooms, roomID)
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	log.Debug().Str("module", "core.store").Str("room", string(roomID)).Msg("session deleted")
	return true
}

func (s *Store) SessionExists(roomID domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

func (s *Store) GetAllSessionIDs() []domain.RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	return out
}

func (s *Store) GetSessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// StaleSessions lists rooms whose last activity is before cutoff.
func (s *Store) StaleSessions(cutoff time.Time) []domain.RoomID {
	var out []domain.RoomID
	for _, id := range s.GetAllSessionIDs() {
		_ = s.with(id, func(st *SessionState) error {
			if st.LastActivity.Before(cutoff) {
				out = append(out, id)
			}
			return nil
		})
	}
	return out
}

// Restore inserts a previously exported state, e.g. loaded from a snapshot.
// Every participant comes back disconnected. Existing rooms are left untouched.
func (s *Store) Restore(state SessionState) bool {
	if !domain.ValidRoomID(state.Session.ID) {
		return false
	}
	st := state.clone()
	if st.Votes == nil {
		st.Votes = make(map[domain.UserID]domain.Vote)
	}
	if st.RoundHistory == nil {
		st.RoundHistory = []domain.RoundRecord{}
	}
	for i := range st.Participants {
		st.Participants[i].IsConnected = false
	}
	if st.Session.IsRevealed {
		st.Session.IsVotingOpen = false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[st.Session.ID]; exists {
		return false
	}
	s.rooms[st.Session.ID] = &roomEntry{state: st}
	return true
}
