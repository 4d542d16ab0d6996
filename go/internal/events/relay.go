package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/buzzer/go/internal/game"
)

type RelayConfig struct {
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		QueueSize:  256,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Relay mirrors game events onto a Publisher from a background worker so
// the game never waits on the bus.
type Relay struct {
	publisher Publisher
	config    RelayConfig
	clock     clockwork.Clock
	queue     chan game.Event

	mu        sync.Mutex
	running   bool
	published uint64
	failed    uint64
	lastSent  time.Time
}

func NewRelay(publisher Publisher, cfg RelayConfig, clock clockwork.Clock) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		publisher: publisher,
		config:    cfg,
		clock:     clock,
		queue:     make(chan game.Event, cfg.QueueSize),
	}
}

// Notify implements game.Notifier. Events are dropped when the queue is full.
func (r *Relay) Notify(e game.Event) {
	select {
	case r.queue <- e:
	default:
		log.Warn().Str("event_id", e.ID).Str("event", string(e.Type)).Msg("relay queue full, dropping event")
	}
}

// Run publishes queued events until ctx is done, then flushes what is left
// without retrying.
func (r *Relay) Run(ctx context.Context) error {
	r.setRunning(true)
	defer r.setRunning(false)

	log.Info().Msg("event relay started")
	for {
		select {
		case <-ctx.Done():
			r.flush()
			log.Info().Msg("event relay stopped")
			return nil
		case e := <-r.queue:
			err := r.publishWithRetry(ctx, e)
			r.record(err)
			if err != nil {
				log.Error().
					Err(err).
					Str("event_id", e.ID).
					Str("event", string(e.Type)).
					Msg("failed to publish event")
			}
		}
	}
}

func (r *Relay) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case e := <-r.queue:
			err := r.publisher.Publish(ctx, e)
			r.record(err)
			if err != nil {
				log.Warn().Err(err).Str("event_id", e.ID).Msg("dropping event on shutdown")
			}
		default:
			return
		}
	}
}

func (r *Relay) publishWithRetry(ctx context.Context, e game.Event) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, e); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", e.ID).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}

// RelayStats is a snapshot of the relay's progress.
type RelayStats struct {
	Running   bool
	Published uint64
	Failed    uint64
	Pending   int
	LastSent  time.Time
}

func (r *Relay) Stats() RelayStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RelayStats{
		Running:   r.running,
		Published: r.published,
		Failed:    r.failed,
		Pending:   len(r.queue),
		LastSent:  r.lastSent,
	}
}

func (r *Relay) setRunning(v bool) {
	r.mu.Lock()
	r.running = v
	r.mu.Unlock()
}

func (r *Relay) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		return
	}
	r.published++
	r.lastSent = r.clock.Now()
}
