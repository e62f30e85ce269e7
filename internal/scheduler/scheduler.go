// Package scheduler triggers export runs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/erauner12/listsync/internal/service/exportservice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Starter launches a background export run for a list
type Starter interface {
	Start(shortcut string) (exportservice.RunStatus, error)
}

// Job is one scheduled list
type Job struct {
	List string
	Cron string
}

// Scheduler starts runs whenever a job's cron expression ticks
type Scheduler struct {
	starter Starter
	jobs    []Job
	logger  zerolog.Logger
}

// New validates the cron expressions; jobs with an empty expression are skipped
func New(starter Starter, jobs []Job) (*Scheduler, error) {
	gron := gronx.New()
	s := &Scheduler{starter: starter, logger: log.With().Str("component", "scheduler").Logger()}
	for _, j := range jobs {
		if j.Cron == "" {
			continue
		}
		if !gron.IsValid(j.Cron) {
			return nil, fmt.Errorf("invalid schedule %q for list %s", j.Cron, j.List)
		}
		s.jobs = append(s.jobs, j)
	}
	return s, nil
}

// Jobs returns the scheduled jobs
func (s *Scheduler) Jobs() []Job {
	return append([]Job(nil), s.jobs...)
}

// Run blocks until ctx is done, triggering every job on its schedule
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		j := j
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, j)
		}()
	}
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
	wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	logger := s.logger.With().Str("list", j.List).Str("cron", j.Cron).Logger()

	for {
		next, err := gronx.NextTickAfter(j.Cron, time.Now(), false)
		if err != nil {
			logger.Error().Err(err).Msg("failed to compute next tick")
			if !sleep(ctx, 30*time.Second) {
				return
			}
			continue
		}

		logger.Debug().Time("next", next).Msg("next export scheduled")
		if !sleep(ctx, time.Until(next)) {
			return
		}
		s.trigger(logger, j)
	}
}

func (s *Scheduler) trigger(logger zerolog.Logger, j Job) {
	status, err := s.starter.Start(j.List)
	switch {
	case err == nil:
		logger.Info().Str("runId", status.ID).Msg("scheduled export started")
	case errors.Is(err, exportservice.ErrRunInProgress):
		logger.Warn().Msg("previous export still running, skipping tick")
	default:
		logger.Error().Err(err).Msg("failed to start scheduled export")
	}
}

// sleep waits for d and reports false when ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
