package game

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PlayerID identifies one of the two fixed player slots
type PlayerID string

const (
	Player1 PlayerID = "Player 1"
	Player2 PlayerID = "Player 2"
)

// Players lists the slots in registration order.
var Players = [2]PlayerID{Player1, Player2}

// Mode is the selected minigame. The zero value means no game.
type Mode string

const (
	ModeNone     Mode = ""
	ModeReaction Mode = "reaction"
	ModeRhythm   Mode = "rhythm"
)

// ParseMode accepts exactly the wire names used by the control surface.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReaction:
		return ModeReaction, nil
	case ModeRhythm:
		return ModeRhythm, nil
	default:
		return ModeNone, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Title returns the mode name for narration ("Reaction", "Rhythm").
func (m Mode) Title() string {
	if m == ModeNone {
		return "No"
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// Note is one scheduled input of a rhythm script.
type Note struct {
	TimeMs int64 `json:"time_ms"`
	Column int   `json:"column"`
}

// Press is a single button event delivered by a player connection.
type Press struct {
	Player PlayerID
	Button int // zero-based
	At     time.Time
}

// Scores maps each player to a signed score.
type Scores map[PlayerID]int

func (s Scores) clone() Scores {
	out := make(Scores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// String renders scores in slot order, e.g. "Player 1=2, Player 2=-1".
func (s Scores) String() string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s=%d", id, s[PlayerID(id)]))
	}
	return strings.Join(parts, ", ")
}

// Status is the snapshot served to the web front end.
type Status struct {
	Scores      Scores `json:"scores"`
	CurrentGame *Mode  `json:"current_game"`
	GameActive  bool   `json:"game_active"`
}
