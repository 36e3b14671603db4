// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/pkoenig/tonbox/internal/api"
	"github.com/pkoenig/tonbox/internal/app/session"
	"github.com/pkoenig/tonbox/internal/infra/config"
	"github.com/pkoenig/tonbox/internal/infra/jellyfin"
	"github.com/pkoenig/tonbox/internal/infra/logger"
	"github.com/pkoenig/tonbox/internal/infra/player"
)

var (
	app        = kingpin.New("tonbox-server", "tonbox playback server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger (command-line flags override the config file)
	loggerConfig := logger.Config{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	zlog.Info().Msgf("Loaded config from %s", *configPath)

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	// Create catalog client
	catalog, err := jellyfin.New(jellyfin.Config{
		URL:     cfg.Catalog.URL,
		Token:   cfg.Catalog.Token,
		Timeout: time.Duration(cfg.Catalog.TimeoutSec) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	// Create player backend
	ply, err := player.New(cfg.Player)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	// Create session controller
	controller := session.NewController(session.Config{
		Volume: session.VolumePolicy{
			Min: cfg.Volume.Min,
			Max: cfg.Volume.Max,
		},
		InitialVolume: cfg.Volume.Initial,
		AutoRecover:   time.Duration(cfg.Playback.AutoRecoverSec) * time.Second,
	}, catalog, ply)
	controller.Start()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewServer(controller, catalog),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s player=%s", cfg.Server.Addr, cfg.Player.Type)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zlog.Info().Msgf("Received signal %s, shutting down...", sig)
	case err := <-serverErrCh:
		controller.Close()
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	// Close the session last so in-flight requests still see a live player
	if err := controller.Close(); err != nil {
		zlog.Error().Msgf("Failed to close session: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}
