package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Session is the supervisor: it owns the store and both engines and applies
// the select/start/stop commands of the control surface.
type Session struct {
	store      *Store
	clock      clockwork.Clock
	indicator  Indicator
	notifier   Notifier
	columns    int
	reaction   *ReactionEngine
	rhythm     *RhythmEngine
	dispatcher *Dispatcher
}

// NewSession wires the engines around store. notifier receives every
// narrated event; it may be nil.
func NewSession(store *Store, notifier Notifier, opts Options) *Session {
	o := opts.withDefaults()
	s := &Session{
		store:     store,
		clock:     o.Clock,
		indicator: o.Indicator,
		notifier:  notifier,
		columns:   o.Columns,
		reaction:  newReactionEngine(store, notifier, o),
		rhythm:    newRhythmEngine(store, notifier, o),
	}
	s.dispatcher = &Dispatcher{
		store:     store,
		clock:     o.Clock,
		reaction:  s.reaction,
		rhythm:    s.rhythm,
		indicator: o.Indicator,
		notifier:  notifier,
		columns:   o.Columns,
	}
	return s
}

// Dispatcher returns the input dispatcher bound to this session.
func (s *Session) Dispatcher() *Dispatcher { return s.dispatcher }

// Store returns the underlying state store.
func (s *Session) Store() *Store { return s.store }

// Run drives both engines until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.reaction.Run(ctx); err != nil {
			log.Error().Err(err).Msg("reaction engine failed")
		}
	}()
	go func() {
		defer wg.Done()
		if err := s.rhythm.Run(ctx); err != nil {
			log.Error().Err(err).Msg("rhythm engine failed")
		}
	}()
	wg.Wait()
	return nil
}

// SelectMode records the mode the next start will use. A running game is not
// touched; its mode keeps being reported until it stops.
func (s *Session) SelectMode(m Mode) error {
	if err := validMode(m); err != nil {
		return err
	}
	s.store.WithLock(func(st *State) {
		st.Selected = m
		if !st.Active {
			st.Mode = m
		}
	})
	log.Info().Str("mode", string(m)).Msg("game mode selected")
	return nil
}

// Start resets the scores and activates m.
func (s *Session) Start(m Mode) error {
	if err := validMode(m); err != nil {
		return err
	}

	var err error
	o := newOutcome()
	s.store.WithLock(func(st *State) {
		if st.Active {
			err = fmt.Errorf("start %s: %w (%s is running)", m, ErrConflict, st.Mode)
			return
		}
		for id := range st.Scores {
			st.Scores[id] = 0
		}
		st.Mode = m
		st.Selected = m
		st.Active = true
		st.Generation++
		st.Target = -1
		st.Resolved = false
		st.Notes = nil
		st.RoundStart = s.clock.Now()
		if m == ModeRhythm {
			st.Notes = s.rhythm.script()
		}

		ev := NewEvent(EventGameStarted, st.RoundStart, fmt.Sprintf("%s game started.", m.Title()))
		ev.Mode = m
		ev.Scores = st.Scores.clone()
		o.emit(ev)
	})
	if err != nil {
		return err
	}

	apply(o, s.indicator, s.notifier)
	signal(s.reaction.wake)
	signal(s.rhythm.wake)
	return nil
}

// Stop deactivates m if it is the running game.
func (s *Session) Stop(m Mode) error {
	if err := validMode(m); err != nil {
		return err
	}

	var err error
	o := newOutcome()
	s.store.WithLock(func(st *State) {
		if !st.running(m) {
			err = fmt.Errorf("stop %s: %w", m, ErrNotActive)
			return
		}
		st.Active = false
		st.Generation++
		switch m {
		case ModeReaction:
			o.lightOff = st.Target
			st.Target = -1
			st.Resolved = false
		case ModeRhythm:
			st.Notes = nil
		}
		st.Mode = ModeNone

		ev := NewEvent(EventGameStopped, s.clock.Now(), fmt.Sprintf("%s game stopped.", m.Title()))
		ev.Mode = m
		ev.Scores = st.Scores.clone()
		o.emit(ev)
	})
	if err != nil {
		return err
	}

	apply(o, s.indicator, s.notifier)
	signal(s.reaction.wake)
	signal(s.rhythm.wake)
	return nil
}

// Status returns the polled snapshot.
func (s *Session) Status() Status { return s.store.Status() }

// Notes returns the remaining rhythm notes.
func (s *Session) Notes() []Note { return s.store.RemainingNotes() }

// Shutdown switches every indicator off.
func (s *Session) Shutdown() {
	for i := 0; i < s.columns; i++ {
		s.indicator.Set(i, false)
	}
}

func validMode(m Mode) error {
	if m != ModeReaction && m != ModeRhythm {
		return fmt.Errorf("%w: %q", ErrInvalidMode, m)
	}
	return nil
}
