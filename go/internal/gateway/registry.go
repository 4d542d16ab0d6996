package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/buzzer/go/internal/game"
)

// ErrConnectionFull is returned when both player slots are taken
var ErrConnectionFull = errors.New("game is full")

// PressHandler receives parsed button presses from player connections.
type PressHandler interface {
	HandlePress(p game.Press)
}

// ConnectionConfig holds configuration for player socket connections
type ConnectionConfig struct {
	WriteTimeout   time.Duration
	MaxMessageSize int
	SendBufferSize int
	Buttons        int
}

// DefaultConnectionConfig returns default player connection configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1024,
		SendBufferSize: 64,
		Buttons:        3,
	}
}

// Connection is one player's socket. Its send queue is drained by writePump.
type Connection struct {
	ID          string
	Player      game.PlayerID
	ConnectedAt time.Time

	conn net.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue queues msg without blocking. It reports false when the connection
// is closed or its queue is full.
func (c *Connection) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Registry tracks the two player slots and fans narration out to them. It
// is also the root game.Notifier: events go to the players as text and then
// to the observers.
type Registry struct {
	mu    sync.Mutex
	slots [len(game.Players)]*Connection

	config    ConnectionConfig
	clock     clockwork.Clock
	observers game.Notifier
}

// NewRegistry creates an empty registry. observers may be nil.
func NewRegistry(config ConnectionConfig, clock clockwork.Clock, observers game.Notifier) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		config:    config,
		clock:     clock,
		observers: observers,
	}
}

// Register assigns conn to the first free slot. When both slots are taken
// the connection is told so, closed, and ErrConnectionFull is returned.
func (r *Registry) Register(conn net.Conn) (*Connection, error) {
	r.mu.Lock()
	slot := -1
	for i, c := range r.slots {
		if c == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		r.mu.Unlock()
		r.reject(conn)
		return nil, ErrConnectionFull
	}

	c := &Connection{
		ID:          uuid.New().String(),
		Player:      game.Players[slot],
		ConnectedAt: r.clock.Now(),
		conn:        conn,
		send:        make(chan []byte, r.config.SendBufferSize),
	}
	r.slots[slot] = c
	c.enqueue(frame(welcomePrefix + string(c.Player)))
	r.mu.Unlock()

	go r.writePump(c)

	log.Info().
		Str("connection_id", c.ID).
		Str("player", string(c.Player)).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("player connected")

	r.Notify(game.NewEvent(game.EventPlayerConnected, c.ConnectedAt, fmt.Sprintf("%s has connected.", c.Player)).
		WithPlayer(c.Player))
	return c, nil
}

func (r *Registry) reject(conn net.Conn) {
	log.Warn().Str("remote_addr", conn.RemoteAddr().String()).Msg("connection rejected: two players already connected")
	conn.SetWriteDeadline(time.Now().Add(r.config.WriteTimeout))
	if _, err := conn.Write(frame(fullMessage)); err != nil {
		log.Debug().Err(err).Msg("failed to send rejection")
	}
	conn.Close()
}

// Deregister clears c's slot and announces the disconnect. Calling it for a
// connection that is no longer registered does nothing.
func (r *Registry) Deregister(c *Connection) {
	r.mu.Lock()
	removed := false
	for i, cur := range r.slots {
		if cur == c {
			r.slots[i] = nil
			removed = true
		}
	}
	r.mu.Unlock()
	if !removed {
		return
	}

	c.close()
	log.Info().
		Str("connection_id", c.ID).
		Str("player", string(c.Player)).
		Msg("player disconnected")

	r.Notify(game.NewEvent(game.EventPlayerDisconnected, r.clock.Now(), fmt.Sprintf("%s has disconnected.", c.Player)).
		WithPlayer(c.Player))
}

// Broadcast sends text to every connected player. A player whose queue is
// closed or full is treated as disconnected.
func (r *Registry) Broadcast(text string) {
	msg := frame(text)
	var failed []*Connection
	for _, c := range r.snapshot() {
		if !c.enqueue(msg) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		log.Warn().Str("player", string(c.Player)).Msg("send failed, dropping player")
		r.Deregister(c)
	}
}

// Notify implements game.Notifier.
func (r *Registry) Notify(e game.Event) {
	r.Broadcast(e.Message)
	if r.observers != nil {
		r.observers.Notify(e)
	}
}

// ConnectedPlayers lists the occupied slots in order.
func (r *Registry) ConnectedPlayers() []game.PlayerID {
	out := []game.PlayerID{}
	for _, c := range r.snapshot() {
		out = append(out, c.Player)
	}
	return out
}

func (r *Registry) snapshot() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Connection, 0, len(r.slots))
	for _, c := range r.slots {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Serve accepts player connections on ln until ctx is cancelled. Each
// accepted player gets its own read loop feeding h.
func (r *Registry) Serve(ctx context.Context, ln net.Listener, h PressHandler) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("waiting for players to connect")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Error().Err(err).Msg("accepting connection failed")
			continue
		}

		c, err := r.Register(conn)
		if err != nil {
			continue
		}
		go r.readPump(c, h)
	}
}

// CloseAll disconnects every player.
func (r *Registry) CloseAll() {
	for _, c := range r.snapshot() {
		r.Deregister(c)
	}
}

// writePump drains the send queue onto the socket.
func (r *Registry) writePump(c *Connection) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(r.config.WriteTimeout))
		if _, err := c.conn.Write(msg); err != nil {
			log.Error().
				Err(err).
				Str("connection_id", c.ID).
				Str("player", string(c.Player)).
				Msg("failed to write to player")
			r.Deregister(c)
			return
		}
	}
}

// readPump parses button messages until the connection ends.
func (r *Registry) readPump(c *Connection, h PressHandler) {
	defer r.Deregister(c)

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 256), r.config.MaxMessageSize)
	scanner.Split(splitMessages)

	for scanner.Scan() {
		msg := scanner.Text()
		button, err := ParseButton(msg, r.config.Buttons)
		if err != nil {
			log.Warn().
				Err(err).
				Str("player", string(c.Player)).
				Msg("ignoring malformed input")
			continue
		}
		h.HandlePress(game.Press{Player: c.Player, Button: button, At: r.clock.Now()})
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
		log.Error().Err(err).Str("player", string(c.Player)).Msg("player connection error")
	}
}
