package game

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Options tunes the engines. Start from DefaultOptions; zero durations and
// columns fall back to the defaults, NoteCount is taken as given.
type Options struct {
	Clock     clockwork.Clock
	Rand      *rand.Rand
	Indicator Indicator

	// Columns is the number of buttons/indicators per player.
	Columns int

	ReactionPause time.Duration
	PollInterval  time.Duration

	NoteCount    int
	NoteInterval time.Duration
	Tolerance    time.Duration
	GracePeriod  time.Duration
}

// DefaultOptions mirrors the physical setup: three buttons, a 3s pause
// between reaction rounds and a 20 note rhythm script one second apart.
func DefaultOptions() Options {
	return Options{
		Columns:       3,
		ReactionPause: 3 * time.Second,
		PollInterval:  100 * time.Millisecond,
		NoteCount:     20,
		NoteInterval:  time.Second,
		Tolerance:     200 * time.Millisecond,
		GracePeriod:   time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	if o.Indicator == nil {
		o.Indicator = nopIndicator{}
	}
	if o.Columns <= 0 {
		o.Columns = d.Columns
	}
	if o.ReactionPause <= 0 {
		o.ReactionPause = d.ReactionPause
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.NoteCount < 0 {
		o.NoteCount = 0
	}
	if o.NoteInterval <= 0 {
		o.NoteInterval = d.NoteInterval
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = d.GracePeriod
	}
	return o
}

// outcome collects the side effects of a locked state transition. They are
// applied after the lock is released.
type outcome struct {
	events   []Event
	lightOn  int
	lightOff int
}

func newOutcome() outcome {
	return outcome{lightOn: -1, lightOff: -1}
}

func (o *outcome) emit(e Event) {
	o.events = append(o.events, e)
}

func apply(o outcome, ind Indicator, n Notifier) {
	if o.lightOff >= 0 {
		ind.Set(o.lightOff, false)
	}
	if o.lightOn >= 0 {
		ind.Set(o.lightOn, true)
	}
	for _, e := range o.events {
		log.Info().
			Str("event", string(e.Type)).
			Str("player", string(e.Player)).
			Msg(e.Message)
		if n != nil {
			n.Notify(e)
		}
	}
}

// signal performs a non-blocking send on a coalescing wake channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// wait blocks until d elapses, a wake signal arrives or ctx is done. It
// reports false only when ctx is done.
func wait(ctx context.Context, clock clockwork.Clock, d time.Duration, wake <-chan struct{}) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := clock.NewTimer(d)
	defer stopAndDrainTimer(timer)

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	case <-wake:
		return true
	}
}

// idle blocks until the next wake signal.
func idle(ctx context.Context, wake <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case <-wake:
		return true
	}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
