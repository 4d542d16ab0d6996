package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/buzzer/go/internal/game"
)

// FeedConfig holds configuration for spectator WebSocket connections
type FeedConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	QueueSize       int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultFeedConfig returns default WebSocket configuration
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		QueueSize:       256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Feed streams game events as JSON to WebSocket spectators such as a
// scoreboard page.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]bool

	upgrader websocket.Upgrader
	config   FeedConfig

	broadcastCh chan game.Event
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	feed *Feed
}

// NewFeed creates an empty feed.
func NewFeed(config FeedConfig) *Feed {
	return &Feed{
		subscribers: make(map[*subscriber]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan game.Event, config.QueueSize),
	}
}

// Start processes queued events until ctx is done.
func (f *Feed) Start(ctx context.Context) {
	log.Info().Msg("event feed started")

	for {
		select {
		case <-ctx.Done():
			f.closeAll()
			log.Info().Msg("event feed shutting down")
			return
		case e := <-f.broadcastCh:
			f.handleBroadcast(e)
		}
	}
}

// Notify implements game.Notifier. It never blocks; events are dropped
// when the queue is full.
func (f *Feed) Notify(e game.Event) {
	select {
	case f.broadcastCh <- e:
	default:
		log.Warn().Str("event", string(e.Type)).Msg("feed queue full, dropping event")
	}
}

// Count returns the number of connected spectators.
func (f *Feed) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

// ServeHTTP upgrades the request and subscribes it to the feed.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	s := &subscriber{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, f.config.QueueSize),
		feed: f,
	}

	f.mu.Lock()
	f.subscribers[s] = true
	total := len(f.subscribers)
	f.mu.Unlock()

	go s.writePump()
	go s.readPump()

	log.Info().
		Str("connection_id", s.id).
		Int("total_connections", total).
		Msg("spectator connected")
}

func (f *Feed) unregister(s *subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subscribers[s]; ok {
		delete(f.subscribers, s)
		close(s.send)
		log.Info().Str("connection_id", s.id).Msg("spectator disconnected")
	}
}

func (f *Feed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subscribers {
		delete(f.subscribers, s)
		close(s.send)
	}
}

func (f *Feed) handleBroadcast(e game.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for feed")
		return
	}

	var slow []*subscriber
	f.mu.RLock()
	for s := range f.subscribers {
		// Sends happen under the read lock so unregister cannot close the
		// channel mid-send.
		select {
		case s.send <- data:
		default:
			slow = append(slow, s)
		}
	}
	f.mu.RUnlock()

	for _, s := range slow {
		log.Warn().Str("connection_id", s.id).Msg("spectator send buffer full, closing connection")
		f.unregister(s)
	}
}

func (s *subscriber) writePump() {
	cfg := s.feed.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		s.feed.unregister(s)
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", s.id).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", s.id).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only services control frames; spectators have nothing to say.
func (s *subscriber) readPump() {
	cfg := s.feed.config
	defer func() {
		s.feed.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(cfg.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", s.id).Msg("unexpected WebSocket close error")
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}
