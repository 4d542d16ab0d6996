package hardware

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDebounce is the minimum gap between accepted triggers of one input.
const DefaultDebounce = 200 * time.Millisecond

// Debouncer drops repeat triggers of the same input that arrive within the
// window of the last accepted one.
type Debouncer struct {
	clock  clockwork.Clock
	window time.Duration

	mu   sync.Mutex
	last map[int]time.Time
}

func NewDebouncer(clock clockwork.Clock, window time.Duration) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{clock: clock, window: window, last: make(map[int]time.Time)}
}

// Allow reports whether a trigger of input i should be accepted now.
func (d *Debouncer) Allow(i int) bool {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.last[i]; ok && now.Sub(last) < d.window {
		return false
	}
	d.last[i] = now
	return true
}

// Filter passes through the presses d allows.
func (d *Debouncer) Filter(ctx context.Context, in <-chan int) <-chan int {
	out := make(chan int)
	go func() {
		defer close(out)
		for i := range in {
			if !d.Allow(i) {
				continue
			}
			select {
			case out <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
