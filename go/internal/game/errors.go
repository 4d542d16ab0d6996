package game

import "errors"

var (
	// ErrInvalidMode is returned when a mode name is neither reaction nor rhythm
	ErrInvalidMode = errors.New("invalid game mode")
	// ErrConflict is returned when starting a game while another one is active
	ErrConflict = errors.New("another game is already active")
	// ErrNotActive is returned when stopping a mode that is not running
	ErrNotActive = errors.New("game is not active")
	// ErrMalformedInput is returned for button messages that cannot be parsed
	ErrMalformedInput = errors.New("malformed input")
)
