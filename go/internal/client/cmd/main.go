package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/buzzer/go/internal/client"
	"github.com/mcdev12/buzzer/go/internal/config"
	"github.com/mcdev12/buzzer/go/internal/hardware"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogging(cfg.Log)

	clock := clockwork.NewRealClock()

	var source hardware.Source
	switch cfg.Client.Input {
	case "gpio":
		source, err = hardware.NewSysfsButtons(cfg.Hardware.GPIORoot, cfg.Hardware.ButtonPins, cfg.Hardware.ButtonPoll, clock)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to setup buttons")
		}
	default:
		source = hardware.NewLineSource(os.Stdin, cfg.Game.Columns)
		log.Info().Int("buttons", cfg.Game.Columns).Msg("type a button number and press enter")
	}

	ccfg := client.DefaultConfig()
	ccfg.ServerAddr = cfg.Client.ServerAddr
	ccfg.Debounce = cfg.Hardware.Debounce

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.New(ccfg, source, clock).Run(ctx); err != nil {
		log.Error().Err(err).Msg("client stopped")
		os.Exit(1)
	}
	log.Info().Msg("client shutdown complete")
}
