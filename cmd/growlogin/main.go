package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/growlogin/growlogin/internal/config"
	"github.com/growlogin/growlogin/internal/logger"
	"github.com/growlogin/growlogin/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		boot := logger.Bootstrap()
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(cfg.Observability)

	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
