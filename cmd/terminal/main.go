// Command terminal runs the sync agent for one point-of-sale terminal: it
// keeps the local sqlite queue and record cache reconciled with the server
// on a fixed interval.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tillsync/internal/client"
	"tillsync/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	tenantID := os.Getenv("TENANT_ID")
	if tenantID == "" {
		log.Fatal().Msg("TENANT_ID is required")
	}

	store, err := client.OpenStore(cfg.LocalDBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.LocalDBPath).Msg("failed to open local store")
	}

	api := client.NewHTTPAPI(cfg.ServerURL)
	syncer := client.NewSyncer(store, api, tenantID, time.Duration(cfg.SyncIntervalSeconds)*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go syncer.Run(ctx)
	log.Info().
		Str("server", cfg.ServerURL).
		Str("terminal", cfg.TerminalID).
		Int("interval_s", cfg.SyncIntervalSeconds).
		Msg("terminal sync agent started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("terminal sync agent exited")
}
