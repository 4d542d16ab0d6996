package game

import (
	"sync"
	"time"
)

// State is the shared game state. It is only reachable through Store.WithLock.
type State struct {
	Scores Scores
	// Mode is the current game. While Active it is the running game,
	// otherwise the last selected one.
	Mode     Mode
	Selected Mode
	Active   bool
	// Generation increases on every start and stop so background loops can
	// tell that the game they were driving is gone.
	Generation uint64

	// reaction round
	Target   int // -1 when no target is lit
	Resolved bool

	// rhythm round
	Notes      []Note
	RoundStart time.Time
}

// Store owns State behind a single mutex. The lock is never held across a
// sleep, a notifier call or an indicator call.
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore returns a store with both players at zero and no game selected.
func NewStore() *Store {
	return &Store{
		state: State{
			Scores: Scores{Player1: 0, Player2: 0},
			Target: -1,
		},
	}
}

// WithLock runs fn with exclusive access to the state.
func (s *Store) WithLock(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

// Status returns a copy of the fields the web front end polls.
func (s *Store) Status() Status {
	var out Status
	s.WithLock(func(st *State) {
		out.Scores = st.Scores.clone()
		out.GameActive = st.Active
		if st.Mode != ModeNone {
			m := st.Mode
			out.CurrentGame = &m
		}
	})
	return out
}

// RemainingNotes returns the notes still to be hit, or an empty slice when no
// rhythm game is running.
func (s *Store) RemainingNotes() []Note {
	out := []Note{}
	s.WithLock(func(st *State) {
		if st.Active && st.Mode == ModeRhythm {
			out = append(out, st.Notes...)
		}
	})
	return out
}

func (st *State) running(m Mode) bool {
	return st.Active && st.Mode == m
}
