package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ReactionEngine drives reaction rounds: light a random target, wait until
// somebody hits it or the game stops, pause, repeat.
type ReactionEngine struct {
	store     *Store
	clock     clockwork.Clock
	rng       *rand.Rand // only used with the store lock held
	indicator Indicator
	notifier  Notifier

	columns int
	pause   time.Duration
	poll    time.Duration

	wake chan struct{}
}

func newReactionEngine(store *Store, notifier Notifier, o Options) *ReactionEngine {
	return &ReactionEngine{
		store:     store,
		clock:     o.Clock,
		rng:       o.Rand,
		indicator: o.Indicator,
		notifier:  notifier,
		columns:   o.Columns,
		pause:     o.ReactionPause,
		poll:      o.PollInterval,
		wake:      make(chan struct{}, 1),
	}
}

// Run loops until ctx is cancelled. It never holds the store lock while
// waiting.
func (e *ReactionEngine) Run(ctx context.Context) error {
	log.Info().Dur("pause", e.pause).Dur("poll", e.poll).Msg("reaction engine started")
	defer log.Info().Msg("reaction engine stopped")

	for {
		gen, target, ok := e.startRound()
		if !ok {
			if !idle(ctx, e.wake) {
				return nil
			}
			continue
		}

		resolved, alive := e.awaitResolution(ctx, gen)
		// The winner already switched the light off; this covers stops and
		// a win racing the round start.
		e.indicator.Set(target, false)
		if !alive {
			return nil
		}
		if !resolved {
			continue
		}

		log.Debug().Uint64("generation", gen).Dur("pause", e.pause).Msg("reaction round resolved, pausing")
		if !wait(ctx, e.clock, e.pause, e.wake) {
			return nil
		}
	}
}

// startRound picks a new target if a reaction game is running.
func (e *ReactionEngine) startRound() (gen uint64, target int, ok bool) {
	o := newOutcome()
	e.store.WithLock(func(st *State) {
		if !st.running(ModeReaction) {
			return
		}
		st.Target = e.rng.IntN(e.columns)
		st.Resolved = false
		gen, target, ok = st.Generation, st.Target, true

		o.lightOn = st.Target
		ev := NewEvent(EventRoundStarted, e.clock.Now(), fmt.Sprintf("Next target: %d", st.Target+1))
		ev.Mode = ModeReaction
		o.emit(ev.withIndex(st.Target))
	})
	apply(o, e.indicator, e.notifier)
	return gen, target, ok
}

// awaitResolution polls until the round is won or the game it belongs to is
// gone. alive is false once ctx is done.
func (e *ReactionEngine) awaitResolution(ctx context.Context, gen uint64) (resolved, alive bool) {
	for {
		var done bool
		e.store.WithLock(func(st *State) {
			switch {
			case !st.running(ModeReaction) || st.Generation != gen:
				done = true
			case st.Resolved:
				done, resolved = true, true
			}
		})
		if done {
			return resolved, true
		}
		if !wait(ctx, e.clock, e.poll, e.wake) {
			return false, false
		}
	}
}

// evaluate scores a press. Called with the store lock held.
func (e *ReactionEngine) evaluate(st *State, p Press) outcome {
	o := newOutcome()
	switch {
	case !st.running(ModeReaction):
		o.emit(penalize(st, p, ModeReaction, "pressed button at invalid time"))
	case st.Resolved:
		o.emit(penalize(st, p, ModeReaction, "pressed button after reaction ended"))
	case st.Target < 0:
		o.emit(penalize(st, p, ModeReaction, "pressed button at invalid time"))
	case p.Button == st.Target:
		st.Scores[p.Player]++
		st.Resolved = true
		o.lightOff = st.Target
		st.Target = -1

		ev := NewEvent(EventRoundWon, p.At, fmt.Sprintf("%s wins! Current scores: %s", p.Player, st.Scores))
		ev.Mode = ModeReaction
		ev.Player = p.Player
		ev.Scores = st.Scores.clone()
		o.emit(ev.withIndex(p.Button))
	default:
		o.emit(penalize(st, p, ModeReaction, "pressed wrong button"))
	}
	return o
}

// penalize takes a point from the presser and describes why.
func penalize(st *State, p Press, m Mode, reason string) Event {
	st.Scores[p.Player]--
	ev := NewEvent(EventPenalty, p.At, fmt.Sprintf("%s %s. Penalty! Scores: %s", p.Player, reason, st.Scores))
	ev.Mode = m
	ev.Player = p.Player
	ev.Scores = st.Scores.clone()
	return ev.withIndex(p.Button)
}
