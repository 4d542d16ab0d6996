package hardware

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Source emits zero-based button indexes until ctx is done or the input
// ends, then closes the channel.
type Source interface {
	Presses(ctx context.Context) <-chan int
}

// LineSource reads one button number (1-based) per line, e.g. from a
// keyboard.
type LineSource struct {
	r       io.Reader
	buttons int
}

func NewLineSource(r io.Reader, buttons int) *LineSource {
	return &LineSource{r: r, buttons: buttons}
}

func (l *LineSource) Presses(ctx context.Context) <-chan int {
	out := make(chan int)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(l.r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > l.buttons {
				log.Warn().Str("input", line).Int("buttons", l.buttons).Msg("ignoring unknown button")
				continue
			}
			select {
			case out <- n - 1:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// SysfsButtons polls pulled-down GPIO inputs. A button reads high while held
// and is reported on every poll; pair it with a Debouncer.
type SysfsButtons struct {
	root     string
	pins     []int
	interval time.Duration
	clock    clockwork.Clock
}

// NewSysfsButtons exports pins as inputs under root.
func NewSysfsButtons(root string, pins []int, interval time.Duration, clock clockwork.Clock) (*SysfsButtons, error) {
	for _, pin := range pins {
		if err := export(root, pin, "in"); err != nil {
			return nil, err
		}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SysfsButtons{root: root, pins: pins, interval: interval, clock: clock}, nil
}

func (b *SysfsButtons) Presses(ctx context.Context) <-chan int {
	out := make(chan int)
	go func() {
		defer close(out)
		ticker := b.clock.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
			}

			for i, pin := range b.pins {
				high, err := readValue(b.root, pin)
				if err != nil {
					log.Error().Err(err).Int("pin", pin).Msg("failed to read button")
					continue
				}
				if !high {
					continue
				}
				select {
				case out <- i:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
