package game

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan Event, 128)}
}

func (r *recordingNotifier) Notify(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.ch <- e:
	default:
	}
}

func (r *recordingNotifier) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recordingNotifier) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}
	}
	return r.events[len(r.events)-1]
}

// waitFor reads events until one of type typ arrives.
func (r *recordingNotifier) waitFor(t *testing.T, typ EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-r.ch:
			if e.Type == typ {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", typ)
			return Event{}
		}
	}
}

type recordingIndicator struct {
	mu    sync.Mutex
	state map[int]bool
	calls int
}

func newRecordingIndicator() *recordingIndicator {
	return &recordingIndicator{state: make(map[int]bool)}
}

func (r *recordingIndicator) Set(index int, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[index] = on
	r.calls++
}

func (r *recordingIndicator) isOn(index int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state[index]
}

func (r *recordingIndicator) anyOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, on := range r.state {
		if on {
			return true
		}
	}
	return false
}

func testOptions(clock clockwork.Clock, ind Indicator) Options {
	o := DefaultOptions()
	o.Clock = clock
	o.Rand = rand.New(rand.NewPCG(1, 2))
	o.Indicator = ind
	return o
}

type fixture struct {
	clock     *clockwork.FakeClock
	notifier  *recordingNotifier
	indicator *recordingIndicator
	session   *Session
}

func newFixture(t *testing.T, tweak func(o *Options)) *fixture {
	t.Helper()
	f := &fixture{
		clock:     clockwork.NewFakeClock(),
		notifier:  newRecordingNotifier(),
		indicator: newRecordingIndicator(),
	}
	o := testOptions(f.clock, f.indicator)
	if tweak != nil {
		tweak(&o)
	}
	f.session = NewSession(NewStore(), f.notifier, o)
	return f
}

func (f *fixture) state() State {
	var out State
	f.session.store.WithLock(func(st *State) {
		out = *st
		out.Scores = st.Scores.clone()
		out.Notes = append([]Note(nil), st.Notes...)
	})
	return out
}

func (f *fixture) set(fn func(st *State)) {
	f.session.store.WithLock(fn)
}

func (f *fixture) press(player PlayerID, button int) {
	f.session.Dispatcher().HandlePress(Press{Player: player, Button: button, At: f.clock.Now()})
}

func blockUntil(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, n); err != nil {
		t.Fatalf("waiting for %d timers: %v", n, err)
	}
}

// runEngine starts run in the background and returns a function that stops
// it and waits for it to return.
func runEngine(t *testing.T, run func(ctx context.Context) error) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = run(ctx)
	}()
	stop := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("engine did not stop")
		}
	}
	t.Cleanup(stop)
	return stop
}
