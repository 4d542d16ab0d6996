package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/buzzer/go/internal/config"
)

func main() {
	cfg, err := config.Load(parseFlags())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogging(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}

	ln, err := net.Listen("tcp", cfg.Server.SocketAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Server.SocketAddr).Msg("failed to listen for players")
	}

	server := setupServer(cfg.Server.HTTPAddr, services)

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				log.Error().Err(err).Str("component", name).Msg("component failed")
			}
		}()
	}

	run("session", func() error { return services.Session.Run(ctx) })
	run("gateway", func() error { return services.Gateway.Start(ctx, ln) })
	if services.Relay != nil {
		run("relay", func() error { return services.Relay.Run(ctx) })
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	wg.Wait()
	services.Close()

	log.Info().Msg("buzzer shutdown complete")
}
