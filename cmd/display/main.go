// Package main provides the kiosk display entry point.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/pkoenig/tonbox/internal/client"
	"github.com/pkoenig/tonbox/internal/infra/config"
	"github.com/pkoenig/tonbox/internal/infra/logger"
	"github.com/pkoenig/tonbox/internal/ui"
)

var (
	app        = kingpin.New("tonbox", "tonbox kiosk display")
	configPath = app.Flag("config", "Path to config file").Default("config/display.yaml").String()
	serverURL  = app.Flag("server", "Server URL (overrides config)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file").Default("tonbox-display.log").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Logs always go to a file here: the terminal belongs to the display.
	loggerConfig := logger.Config{
		Level: "info",
		File:  *logfile,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if err := logger.Init(loggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}

	zlog.Info().Msgf("Starting display: server=%s poll=%s", cfg.ServerURL, cfg.PollInterval())

	backend := client.New(cfg.ServerURL, cfg.RequestTimeout())
	if err := ui.Run(backend, ui.Options{
		PollInterval:   cfg.PollInterval(),
		VolumeDebounce: cfg.VolumeDebounce(),
		RequestTimeout: cfg.RequestTimeout(),
	}); err != nil {
		zlog.Error().Msgf("Display error: %v", err)
		fmt.Fprintf(os.Stderr, "Display error: %v\n", err)
		os.Exit(1)
	}
}
