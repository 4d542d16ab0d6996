package game

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Dispatcher routes player presses to the engine of the current mode. Every
// press is evaluated under the store lock, so two presses on the same round
// are resolved in lock acquisition order.
type Dispatcher struct {
	store     *Store
	clock     clockwork.Clock
	reaction  *ReactionEngine
	rhythm    *RhythmEngine
	indicator Indicator
	notifier  Notifier
	columns   int
}

// HandlePress scores a press. Presses without a timestamp are stamped with
// the current time; out-of-range buttons are dropped.
func (d *Dispatcher) HandlePress(p Press) {
	if p.Button < 0 || p.Button >= d.columns {
		log.Warn().
			Str("player", string(p.Player)).
			Int("button", p.Button+1).
			Msg("dropping press for unknown button")
		return
	}
	if p.At.IsZero() {
		p.At = d.clock.Now()
	}

	o := newOutcome()
	known := true
	d.store.WithLock(func(st *State) {
		if _, known = st.Scores[p.Player]; !known {
			return
		}
		// No mode falls through to the reaction evaluator, which penalizes
		// the press as out of time like any other inactive state.
		if st.Mode == ModeRhythm {
			o = d.rhythm.evaluate(st, p)
		} else {
			o = d.reaction.evaluate(st, p)
		}
	})
	if !known {
		log.Warn().Str("player", string(p.Player)).Msg("dropping press from unknown player")
		return
	}
	apply(o, d.indicator, d.notifier)
}
