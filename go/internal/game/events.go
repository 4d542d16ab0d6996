package game

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies a game event
type EventType string

const (
	EventGameStarted        EventType = "game_started"
	EventGameStopped        EventType = "game_stopped"
	EventGameEnded          EventType = "game_ended"
	EventRoundStarted       EventType = "round_started"
	EventRoundWon           EventType = "round_won"
	EventPenalty            EventType = "penalty"
	EventNoteHit            EventType = "note_hit"
	EventNoteMissed         EventType = "note_missed"
	EventPlayerConnected    EventType = "player_connected"
	EventPlayerDisconnected EventType = "player_disconnected"
)

// Event is a narrated outcome. Message is the text players receive.
type Event struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	Mode    Mode      `json:"mode,omitempty"`
	Player  PlayerID  `json:"player,omitempty"`
	Index   *int      `json:"index,omitempty"` // target or column, zero-based
	Scores  Scores    `json:"scores,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(t EventType, at time.Time, msg string) Event {
	return Event{
		ID:      uuid.New().String(),
		Type:    t,
		Message: msg,
		At:      at,
	}
}

// WithPlayer returns a copy of e attributed to p.
func (e Event) WithPlayer(p PlayerID) Event {
	e.Player = p
	return e
}

func (e Event) withIndex(i int) Event {
	e.Index = &i
	return e
}

// Notifier receives narrated events. Implementations must not block for long
// and are never called with the state lock held.
type Notifier interface {
	Notify(e Event)
}

// Notifiers fans an event out to several notifiers in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(e Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(e)
		}
	}
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// Indicator is the output sink that lights reaction targets.
type Indicator interface {
	Set(index int, on bool)
}

type nopIndicator struct{}

func (nopIndicator) Set(int, bool) {}
