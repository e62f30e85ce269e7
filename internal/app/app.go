// Package app wires configuration, storage and the export service for the binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/erauner12/listsync/internal/batchsync"
	"github.com/erauner12/listsync/internal/config"
	"github.com/erauner12/listsync/internal/customer"
	"github.com/erauner12/listsync/internal/db"
	"github.com/erauner12/listsync/internal/mailchimp"
	"github.com/erauner12/listsync/internal/queue"
	"github.com/erauner12/listsync/internal/service/exportservice"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App holds the long-lived dependencies of a binary
type App struct {
	Pool    *pgxpool.Pool
	Service *exportservice.Service
}

// New connects to Postgres, ensures the schema and builds the export service
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	client := mailchimp.NewClient(cfg.Mailchimp.BaseURL, cfg.Mailchimp.APIKey, cfg.Mailchimp.RequestsPerSecond)

	svc := exportservice.NewService(
		queue.NewStore(pool),
		customer.NewStore(pool),
		client,
		Handlers(cfg),
		exportservice.Settings{MaxItems: cfg.Batch.MaxItems, Poll: cfg.Batch.PollConfig()},
	)

	return &App{Pool: pool, Service: svc}, nil
}

// Handlers builds one list handler per configured list
func Handlers(cfg *config.Config) []batchsync.ListHandler {
	handlers := make([]batchsync.ListHandler, 0, len(cfg.Lists))
	for _, l := range cfg.Lists {
		handlers = append(handlers, mailchimp.NewListHandler(l.ID, l.Name()))
	}
	return handlers
}

// Close waits for background runs (bounded by ctx) and closes the pool
func (a *App) Close(ctx context.Context) {
	if err := a.Service.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("export runs did not stop in time")
	}
	a.Pool.Close()
}

// SetupLogging configures the global logger
func SetupLogging(cfg *config.Config, service string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(ParseLogLevel(cfg.LogLevel))

	if cfg.Debug {
		// Pretty logging for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Caller().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).
			With().
			Timestamp().
			Logger()
	}

	log.Logger = log.With().Str("service", service).Logger()
}

// ParseLogLevel converts a string log level to zerolog.Level
func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
