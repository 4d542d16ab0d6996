package gateway

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/mcdev12/buzzer/go/internal/game"
)

// Socket protocol vocabulary. Clients do not rely on newlines, so a message
// is delimited by a newline, by the start of the next "Button" keyword or by
// the end of the currently buffered input.
const (
	buttonKeyword = "Button"
	welcomePrefix = "You are "
	fullMessage   = "Game is full."
)

var keyword = []byte(buttonKeyword)

// frame terminates an outgoing message.
func frame(msg string) []byte {
	return []byte(msg + "\n")
}

// ParseButton turns "Button N" into a zero-based index, N in 1..buttons.
func ParseButton(msg string, buttons int) (int, error) {
	fields := strings.Fields(msg)
	if len(fields) != 2 || fields[0] != buttonKeyword {
		return 0, fmt.Errorf("%w: %q", game.ErrMalformedInput, msg)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: button %q is not a number", game.ErrMalformedInput, fields[1])
	}
	if n < 1 || n > buttons {
		return 0, fmt.Errorf("%w: button %d out of range 1..%d", game.ErrMalformedInput, n, buttons)
	}
	return n - 1, nil
}

// splitMessages is a bufio.SplitFunc for the client stream.
func splitMessages(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isSpace(data[start]) {
		start++
	}
	if start == len(data) {
		return len(data), nil, nil
	}

	rest := data[start:]
	end := len(rest)
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		end = i
	}
	if j := bytes.Index(rest[1:], keyword); j >= 0 && j+1 < end {
		end = j + 1
	}

	if end < len(rest) {
		adv := end
		if rest[end] == '\n' {
			adv++
		}
		return start + adv, bytes.TrimSpace(rest[:end]), nil
	}
	if atEOF || !incomplete(rest) {
		return len(data), bytes.TrimSpace(rest), nil
	}
	// wait for more input
	return start, nil, nil
}

// incomplete reports whether rest could still grow into a button message:
// a proper prefix of the keyword, or the keyword followed only by blanks.
func incomplete(rest []byte) bool {
	if len(rest) < len(keyword) {
		return bytes.HasPrefix(keyword, rest)
	}
	if !bytes.HasPrefix(rest, keyword) {
		return false
	}
	return len(bytes.TrimSpace(rest[len(keyword):])) == 0
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
