package gateway

import (
	"context"
	"net"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/buzzer/go/internal/game"
)

// Service is the gateway: the player socket registry, the spectator feed
// and the HTTP control surface.
type Service struct {
	registry     *Registry
	feed         *Feed
	stateHandler *StateHandler
	presses      PressHandler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	FeedConfig       FeedConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		FeedConfig:       DefaultFeedConfig(),
	}
}

// NewService creates the gateway. observers receive every game event after
// the players and the spectator feed; they may be nil.
func NewService(config Config, clock clockwork.Clock, observers game.Notifier) *Service {
	feed := NewFeed(config.FeedConfig)
	notifiers := game.Notifiers{feed}
	if observers != nil {
		notifiers = append(notifiers, observers)
	}
	return &Service{
		registry: NewRegistry(config.ConnectionConfig, clock, notifiers),
		feed:     feed,
	}
}

// Notifier is the root notifier the game session reports to.
func (s *Service) Notifier() game.Notifier { return s.registry }

// Registry exposes the player connection registry.
func (s *Service) Registry() *Registry { return s.registry }

// Attach connects the gateway to a running session. It must be called
// before Start and RegisterRoutes.
func (s *Service) Attach(controller Controller, presses PressHandler, music MusicPlayer) {
	s.stateHandler = NewStateHandler(controller, music, s.registry)
	s.presses = presses
}

// Start runs the spectator feed and accepts players on ln until ctx is done.
func (s *Service) Start(ctx context.Context, ln net.Listener) error {
	log.Info().Msg("starting gateway service")

	go s.feed.Start(ctx)

	err := s.registry.Serve(ctx, ln, s.presses)
	s.Stop()
	return err
}

// Stop disconnects every player.
func (s *Service) Stop() {
	s.registry.CloseAll()
	log.Info().Msg("gateway service stopped")
}

// RegisterRoutes registers the HTTP and WebSocket routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/ws/events", s.feed)
	if s.stateHandler != nil {
		s.stateHandler.RegisterStateRoutes(mux)
	}
	log.Info().Msg("gateway routes registered")
}
