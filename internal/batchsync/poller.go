package batchsync

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// PollConfig controls how long the poller waits for a batch
type PollConfig struct {
	// InitialInterval is waited once after submission
	InitialInterval time.Duration
	// RecordInterval is added to the initial wait per submitted operation
	RecordInterval time.Duration
	// StepInterval is the wait before the second check; it doubles per check
	StepInterval time.Duration
	// MaxChecks is the last check index, so MaxChecks+1 checks at most
	MaxChecks int
}

// DefaultPollConfig returns the provider-tuned defaults
func DefaultPollConfig() PollConfig {
	return PollConfig{
		InitialInterval: 7500 * time.Millisecond,
		RecordInterval:  30 * time.Millisecond,
		StepInterval:    500 * time.Millisecond,
		MaxChecks:       10,
	}
}

// InitialWait is the grace period before the first status check
func (c PollConfig) InitialWait(records int) time.Duration {
	return c.InitialInterval + time.Duration(records)*c.RecordInterval
}

// Poller waits for a submitted batch to finish
type Poller struct {
	transport Transport
	sleeper   Sleeper
	cfg       PollConfig
	logger    zerolog.Logger
	list      string
}

// NewPoller creates a new Poller. list labels the status check metrics.
func NewPoller(transport Transport, sleeper Sleeper, cfg PollConfig, list string, logger zerolog.Logger) *Poller {
	if sleeper == nil {
		sleeper = WallClock
	}
	return &Poller{transport: transport, sleeper: sleeper, cfg: cfg, logger: logger, list: list}
}

// newBackOff yields StepInterval * 2^(n-1) for check n >= 1, without jitter or deadline
func (p *Poller) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.StepInterval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = 24 * time.Hour
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Wait sleeps the size-scaled initial interval and then checks the batch
// status until it is finished, backing off exponentially between checks.
// Failed status requests and empty replies count as "not finished yet". After MaxChecks+1
// checks without a finished status it returns *PollExhaustedError.
// Cancellation of ctx aborts the wait and returns ctx.Err().
func (p *Poller) Wait(ctx context.Context, batchID string, records int) (*BatchStatus, error) {
	logger := p.logger.With().Str("batchId", batchID).Logger()

	initial := p.cfg.InitialWait(records)
	logger.Info().
		Dur("initial", p.cfg.InitialInterval).
		Dur("perRecord", p.cfg.RecordInterval).
		Int("records", records).
		Dur("total", initial).
		Msg("sleeping before checking batch results")

	if err := p.sleeper.Sleep(ctx, initial); err != nil {
		return nil, err
	}

	bo := p.newBackOff()
	for check := 0; check <= p.cfg.MaxChecks; check++ {
		checkLogger := logger.With().Int("check", check).Logger()

		if check > 0 {
			wait := bo.NextBackOff()
			checkLogger.Info().Dur("sleep", wait).Msg("sleeping before checking batch status")
			if err := p.sleeper.Sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		checkLogger.Info().Msg("checking status")
		status, err := p.transport.CheckBatchStatus(ctx, batchID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			statusChecks.WithLabelValues(p.list, "error").Inc()
			checkLogger.Error().Err(err).Msg("batch status request failed")
			continue
		}
		if status == nil {
			statusChecks.WithLabelValues(p.list, "error").Inc()
			checkLogger.Error().Msg("batch status request returned no status")
			continue
		}

		if status.Finished() {
			statusChecks.WithLabelValues(p.list, "finished").Inc()
			checkLogger.Info().
				Int("erroredOperations", status.ErroredOperations).
				Msg("batch is finished")
			return status, nil
		}

		statusChecks.WithLabelValues(p.list, "pending").Inc()
		checkLogger.Info().Str("status", status.Status).Msg("batch is not finished yet")
	}

	logger.Error().Int("maxChecks", p.cfg.MaxChecks).Msg("reached max check iterations, aborting")
	return nil, &PollExhaustedError{BatchID: batchID, Checks: p.cfg.MaxChecks + 1}
}
