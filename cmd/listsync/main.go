package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erauner12/listsync/internal/app"
	"github.com/erauner12/listsync/internal/batchsync"
	"github.com/erauner12/listsync/internal/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	version = "0.1.0"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file (JSON)")
	listName    = flag.String("list", "", "Export only this list (shortcut or id); default all lists")
	showVersion = flag.Bool("version", false, "Show version information")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("listsync version %s\n", version)
		os.Exit(0)
	}

	_ = godotenv.Load(".env")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	app.SetupLogging(cfg, "listsync")

	log.Info().
		Str("version", version).
		Int("lists", len(cfg.Lists)).
		Int("maxItems", cfg.Batch.MaxItems).
		Msg("Starting export")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGINT cancels the run; items of a canceled run stay queued
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("export failed")
		os.Exit(1)
	}
}

// loadConfig loads the configuration from file and environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides BEFORE validation
	if *debug {
		cfg.Debug = true
		if *logLevel == "info" {
			cfg.LogLevel = "debug"
		}
	}
	if *logLevel != "info" {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if *listName != "" {
		if _, ok := cfg.List(*listName); !ok {
			return nil, fmt.Errorf("list %q is not configured", *listName)
		}
	}

	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.Close(closeCtx)
	}()

	if *listName != "" {
		l, _ := cfg.List(*listName)
		report, err := a.Service.Run(ctx, l.Name())
		logReport(l.Name(), report)
		return err
	}

	reports, err := a.Service.RunAll(ctx)
	for name, report := range reports {
		logReport(name, report)
	}
	return err
}

func logReport(list string, report *batchsync.Report) {
	if report == nil {
		return
	}
	log.Info().
		Str("list", list).
		Str("batchId", report.BatchID).
		Int("items", report.Items).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Bool("aborted", report.Aborted).
		Dur("duration", report.Duration).
		Msg("export report")
}
