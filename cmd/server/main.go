package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erauner12/listsync/internal/app"
	"github.com/erauner12/listsync/internal/auth"
	"github.com/erauner12/listsync/internal/config"
	"github.com/erauner12/listsync/internal/httpapi"
	"github.com/erauner12/listsync/internal/scheduler"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load(os.Getenv("LISTSYNC_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuration validation failed")
	}

	app.SetupLogging(cfg, "listsync-server")

	if cfg.JWTSecret == "" && !cfg.DevMode {
		log.Fatal().Msg("JWT_HS256_SECRET is required unless dev mode is enabled")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}

	// Cron-triggered exports
	jobs := make([]scheduler.Job, 0, len(cfg.Lists))
	for _, l := range cfg.Lists {
		jobs = append(jobs, scheduler.Job{List: l.Name(), Cron: l.Schedule})
	}
	sched, err := scheduler.New(a.Service, jobs)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid schedule")
	}
	schedDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedDone)
	}()

	// HTTP server setup
	srv := &httpapi.Server{Exports: a.Service, RateLimitConfig: httpapi.DefaultRateLimit()}

	jwtCfg := auth.JWTCfg{
		HS256Secret: cfg.JWTSecret,
		DevMode:     cfg.DevMode,
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(jwtCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")
	stop()
	<-schedDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	a.Close(shutdownCtx)

	log.Info().Msg("server stopped")
}
