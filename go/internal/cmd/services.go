package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/buzzer/go/internal/audio"
	"github.com/mcdev12/buzzer/go/internal/config"
	"github.com/mcdev12/buzzer/go/internal/events"
	"github.com/mcdev12/buzzer/go/internal/game"
	"github.com/mcdev12/buzzer/go/internal/gateway"
	"github.com/mcdev12/buzzer/go/internal/hardware"
)

type Services struct {
	Session   *game.Session
	Gateway   *gateway.Service
	Music     *audio.Player
	Relay     *events.Relay
	Publisher *events.JetStreamPublisher
	Indicator game.Indicator
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	// Wire up dependency chain
	// Indicator → Relay → Gateway (root notifier) → Session
	clock := clockwork.NewRealClock()
	instance := uuid.New().String()

	indicator, err := setupIndicator(cfg.Hardware)
	if err != nil {
		return nil, err
	}

	s := &Services{Indicator: indicator}

	var observers game.Notifier
	if cfg.NATS.URL != "" {
		s.Publisher, err = events.NewJetStreamPublisher(ctx, jetStreamConfig(cfg.NATS), instance)
		if err != nil {
			return nil, fmt.Errorf("create JetStream publisher: %w", err)
		}
		s.Relay = events.NewRelay(s.Publisher, events.DefaultRelayConfig(), clock)
		observers = s.Relay
	}

	gwConfig := gateway.DefaultConfig()
	gwConfig.ConnectionConfig.Buttons = cfg.Game.Columns
	s.Gateway = gateway.NewService(gwConfig, clock, observers)

	opts := gameOptions(cfg.Game)
	opts.Clock = clock
	opts.Indicator = indicator
	s.Session = game.NewSession(game.NewStore(), s.Gateway.Notifier(), opts)

	s.Music = audio.NewPlayer(audioConfig(cfg.Audio))
	s.Gateway.Attach(s.Session, s.Session.Dispatcher(), s.Music)

	log.Info().
		Str("instance", instance).
		Str("indicator", cfg.Hardware.Indicator).
		Bool("relay", s.Relay != nil).
		Msg("services ready")
	return s, nil
}

func setupIndicator(c config.HardwareConfig) (game.Indicator, error) {
	switch c.Indicator {
	case "sysfs":
		ind, err := hardware.NewSysfsIndicator(c.GPIORoot, c.LEDPins, c.ActiveLow)
		if err != nil {
			return nil, fmt.Errorf("setup LEDs: %w", err)
		}
		return ind, nil
	default:
		return hardware.LogIndicator{}, nil
	}
}

// Close releases what the services hold after everything has stopped.
func (s *Services) Close() {
	s.Session.Shutdown()
	if s.Music.Playing() {
		if err := s.Music.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop BGM")
		}
	}
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close publisher")
		}
	}
}
