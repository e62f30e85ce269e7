package batchsync

import (
	"context"

	"github.com/rs/zerolog"
)

// Submitter sends all operations of a run as one batch request.
// It never retries: a repeated submission would create a second remote batch.
type Submitter struct {
	transport Transport
	logger    zerolog.Logger
}

// NewSubmitter creates a new Submitter
func NewSubmitter(transport Transport, logger zerolog.Logger) *Submitter {
	return &Submitter{transport: transport, logger: logger}
}

// Submit creates the remote batch and returns its id
func (s *Submitter) Submit(ctx context.Context, ops []Operation) (string, error) {
	s.logger.Info().Int("operations", len(ops)).Msg("executing batch")

	batchID, err := s.transport.SubmitBatch(ctx, ops)
	if err != nil {
		s.logger.Error().Err(err).Msg("batch request failed")
		return "", &SubmissionError{Err: err}
	}

	s.logger.Info().Str("batchId", batchID).Msg("executed batch")
	return batchID, nil
}
