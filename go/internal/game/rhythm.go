package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RhythmEngine ends rhythm rounds once the script has played out and scores
// hits against the remaining notes.
type RhythmEngine struct {
	store    *Store
	clock    clockwork.Clock
	rng      *rand.Rand // only used with the store lock held
	notifier Notifier

	columns   int
	noteCount int
	interval  time.Duration
	tolerance time.Duration
	grace     time.Duration

	wake chan struct{}
}

func newRhythmEngine(store *Store, notifier Notifier, o Options) *RhythmEngine {
	return &RhythmEngine{
		store:     store,
		clock:     o.Clock,
		rng:       o.Rand,
		notifier:  notifier,
		columns:   o.Columns,
		noteCount: o.NoteCount,
		interval:  o.NoteInterval,
		tolerance: o.Tolerance,
		grace:     o.GracePeriod,
		wake:      make(chan struct{}, 1),
	}
}

// script generates a fresh note list: one note per interval, random column.
// Called with the store lock held.
func (e *RhythmEngine) script() []Note {
	notes := make([]Note, 0, e.noteCount)
	for i := 1; i <= e.noteCount; i++ {
		notes = append(notes, Note{
			TimeMs: int64(i) * e.interval.Milliseconds(),
			Column: e.rng.IntN(e.columns),
		})
	}
	return notes
}

// Run loops until ctx is cancelled, ending each rhythm round when its
// deadline passes.
func (e *RhythmEngine) Run(ctx context.Context) error {
	log.Info().Int("notes", e.noteCount).Dur("tolerance", e.tolerance).Msg("rhythm engine started")
	defer log.Info().Msg("rhythm engine stopped")

	for {
		deadline, gen, ok := e.roundDeadline()
		if !ok {
			if !idle(ctx, e.wake) {
				return nil
			}
			continue
		}

		// Only a start or stop wakes the loop before the deadline; hits do not.
		if d := deadline.Sub(e.clock.Now()); d > 0 {
			if !wait(ctx, e.clock, d, e.wake) {
				return nil
			}
			continue
		}

		e.finish(gen)
	}
}

// roundDeadline is the round start plus the latest remaining note time and
// the grace period, or the round start itself when no notes remain.
func (e *RhythmEngine) roundDeadline() (deadline time.Time, gen uint64, ok bool) {
	e.store.WithLock(func(st *State) {
		if !st.running(ModeRhythm) {
			return
		}
		gen, ok = st.Generation, true
		deadline = st.RoundStart
		if len(st.Notes) == 0 {
			return
		}
		var last int64
		for _, n := range st.Notes {
			if n.TimeMs > last {
				last = n.TimeMs
			}
		}
		deadline = deadline.Add(time.Duration(last)*time.Millisecond + e.grace)
	})
	return deadline, gen, ok
}

func (e *RhythmEngine) finish(gen uint64) {
	o := newOutcome()
	e.store.WithLock(func(st *State) {
		if !st.running(ModeRhythm) || st.Generation != gen {
			return
		}
		st.Active = false
		st.Mode = ModeNone
		st.Notes = nil
		st.Generation++

		ev := NewEvent(EventGameEnded, e.clock.Now(), fmt.Sprintf("Rhythm game ended. Final scores: %s", st.Scores))
		ev.Mode = ModeRhythm
		ev.Scores = st.Scores.clone()
		o.emit(ev)
	})
	apply(o, nopIndicator{}, e.notifier)
}

// evaluate scores a press against the remaining notes. Called with the store
// lock held.
//
// Among notes in the pressed column within tolerance, the one closest to the
// hit time wins; on equal distance the earlier scheduled note wins.
func (e *RhythmEngine) evaluate(st *State, p Press) outcome {
	o := newOutcome()
	if !st.running(ModeRhythm) {
		o.emit(penalize(st, p, ModeRhythm, "pressed button at invalid time"))
		return o
	}

	hit := p.At.Sub(st.RoundStart).Milliseconds()
	tol := e.tolerance.Milliseconds()
	best, bestDist := -1, int64(0)
	for i, n := range st.Notes {
		if n.Column != p.Button {
			continue
		}
		dist := n.TimeMs - hit
		if dist < 0 {
			dist = -dist
		}
		if dist > tol {
			continue
		}
		if best < 0 || dist < bestDist || (dist == bestDist && n.TimeMs < st.Notes[best].TimeMs) {
			best, bestDist = i, dist
		}
	}

	if best < 0 {
		st.Scores[p.Player]--
		ev := NewEvent(EventNoteMissed, p.At, fmt.Sprintf("%s missed or hit wrong note at column %d. Penalty! Scores: %s", p.Player, p.Button+1, st.Scores))
		ev.Mode = ModeRhythm
		ev.Player = p.Player
		ev.Scores = st.Scores.clone()
		o.emit(ev.withIndex(p.Button))
		return o
	}

	st.Scores[p.Player]++
	st.Notes = append(st.Notes[:best:best], st.Notes[best+1:]...)
	ev := NewEvent(EventNoteHit, p.At, fmt.Sprintf("%s hit note at column %d", p.Player, p.Button+1))
	ev.Mode = ModeRhythm
	ev.Player = p.Player
	ev.Scores = st.Scores.clone()
	o.emit(ev.withIndex(p.Button))
	log.Debug().Int64("hit_ms", hit).Int64("offset_ms", bestDist).Str("player", string(p.Player)).Msg("rhythm note matched")
	return o
}
