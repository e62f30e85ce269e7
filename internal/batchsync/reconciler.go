package batchsync

import (
	"context"

	"github.com/rs/zerolog"
)

// Reconciler resolves a finished batch into one outcome per submitted operation
type Reconciler struct {
	transport Transport
	logger    zerolog.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(transport Transport, logger zerolog.Logger) *Reconciler {
	return &Reconciler{transport: transport, logger: logger}
}

// Reconcile returns outcomes in the order of ops.
// Without errored operations every op succeeds and no archive is fetched.
// Otherwise the result archive is downloaded and every op whose id has a
// non-2xx result fails; ops missing from the archive succeed.
func (r *Reconciler) Reconcile(ctx context.Context, status *BatchStatus, ops []Operation) ([]Outcome, error) {
	outcomes := make([]Outcome, len(ops))

	if status.ErroredOperations == 0 {
		r.logger.Info().Msg("batch has no errored operations, no need to fetch detailed results")
		for i, op := range ops {
			outcomes[i] = Outcome{OperationID: op.ID, Succeeded: true}
		}
		return outcomes, nil
	}

	failed, err := r.failedOperations(ctx, status)
	if err != nil {
		return nil, err
	}

	if len(failed) != status.ErroredOperations {
		r.logger.Warn().
			Int("erroredOperations", status.ErroredOperations).
			Int("failedInArchive", len(failed)).
			Msg("errored operation count does not match result archive")
	}

	for i, op := range ops {
		if res, ok := failed[op.ID]; ok {
			outcomes[i] = Outcome{OperationID: op.ID, StatusCode: res.StatusCode, Response: res.Response}
			continue
		}
		outcomes[i] = Outcome{OperationID: op.ID, Succeeded: true}
	}
	return outcomes, nil
}

func (r *Reconciler) failedOperations(ctx context.Context, status *BatchStatus) (map[string]OperationResult, error) {
	if status.ResponseBodyURL == "" {
		return nil, &TransportError{Op: "fetch result archive", Err: ErrMissingArchiveURL}
	}

	r.logger.Info().
		Int("erroredOperations", status.ErroredOperations).
		Msg("fetching detailed batch results")

	data, err := r.transport.FetchArchive(ctx, status.ResponseBodyURL)
	if err != nil {
		return nil, &TransportError{Op: "fetch result archive", Err: err}
	}

	results, err := ReadResultArchive(data)
	if err != nil {
		return nil, err
	}

	failed := make(map[string]OperationResult)
	for _, res := range results {
		if res.Failed() {
			failed[res.OperationID] = res
		}
	}
	return failed, nil
}
