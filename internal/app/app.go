// Package app holds the bootstrap shared by every pipeline process:
// environment loading, configuration, logging, and the signal-driven
// shutdown loop.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/config"
	"github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/core/service"
)

const shutdownTimeout = 10 * time.Second

// Bootstrap loads the environment and configuration and builds the
// process logger.
func Bootstrap(processName, configPath string) (*config.AppConfig, *slog.Logger, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env file is normal outside local development.
		slog.Debug("no .env file found")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})).With("service", processName)
	slog.SetDefault(log)

	return cfg, log, nil
}

// Run starts the service and blocks until SIGINT or SIGTERM, then shuts
// down gracefully, waiting for in-flight work to drain.
func Run(svc service.Service, log *slog.Logger) error {
	runner := service.NewRunner(svc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := runner.Start(context.Background()); err != nil {
		return err
	}
	log.Info("service started")

	sig := <-sigChan
	log.Info("received signal, shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := runner.Stop(shutdownCtx); err != nil {
		return err
	}
	log.Info("service stopped")
	return nil
}
