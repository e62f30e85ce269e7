package batchsync

import (
	"context"
	"time"

	"github.com/erauner12/listsync/internal/queue"
	"github.com/rs/zerolog"
)

// Report summarizes one export run
type Report struct {
	BatchID   string
	ListID    string
	Items     int
	Submitted int
	Succeeded int
	Failed    int
	Aborted   bool
	Outcomes  []Outcome
	Duration  time.Duration
}

// Exporter runs build, submit, poll, reconcile and apply for one list
type Exporter struct {
	handler    ListHandler
	builder    *Builder
	submitter  *Submitter
	poller     *Poller
	reconciler *Reconciler
	applier    *Applier
	logger     zerolog.Logger
}

// Option customizes an Exporter
type Option func(*exporterOptions)

type exporterOptions struct {
	sleeper Sleeper
}

// WithSleeper replaces the wall-clock sleeper used while polling
func WithSleeper(s Sleeper) Option {
	return func(o *exporterOptions) { o.sleeper = s }
}

// NewExporter wires the run components for one list
func NewExporter(handler ListHandler, transport Transport, records RecordStore, cfg PollConfig, logger zerolog.Logger, opts ...Option) *Exporter {
	o := exporterOptions{sleeper: WallClock}
	for _, opt := range opts {
		opt(&o)
	}

	logger = logger.With().
		Str("provider", handler.Provider()).
		Str("list", handler.Shortcut()).
		Logger()


	return &Exporter{
		handler:    handler,
		builder:    NewBuilder(handler, records, logger),
		submitter:  NewSubmitter(transport, logger),
		poller:     NewPoller(transport, o.sleeper, cfg, handler.Shortcut(), logger),
		reconciler: NewReconciler(transport, logger),
		applier:    NewApplier(handler, records, logger),
		logger:     logger,
	}
}

// Export synchronizes items with the remote list in a single batch.
//
// Every item ends the run in exactly one state: processed (success),
// unprocessed with a logged failure, or unprocessed because the run aborted.
// Run-level failures (*SubmissionError, *PollExhaustedError,
// *ArchiveFormatError, *TransportError) are returned after every item was
// reported failed. If ctx is canceled the run stops without touching the
// items and ctx.Err() is returned.
func (e *Exporter) Export(ctx context.Context, items []*queue.Item) (*Report, error) {
	start := time.Now()
	report := &Report{ListID: e.handler.ListID(), Items: len(items)}
	defer func() {
		report.Duration = time.Since(start)
		runDuration.WithLabelValues(e.handler.Shortcut()).Observe(report.Duration.Seconds())
	}()

	if len(items) == 0 {
		e.logger.Debug().Msg("nothing queued")
		exportRuns.WithLabelValues(e.handler.Shortcut(), resultEmpty).Inc()
		return report, nil
	}

	planned := e.plan(ctx, items, report)
	if len(planned) == 0 {
		exportRuns.WithLabelValues(e.handler.Shortcut(), resultPartial).Inc()
		return report, nil
	}

	ops := make([]Operation, len(planned))
	for i, p := range planned {
		ops[i] = p.Operation
	}
	report.Submitted = len(ops)

	outcomes, err := e.execute(ctx, report, ops)
	if err != nil {
		if ctx.Err() != nil {
			e.logger.Warn().Err(err).Str("batchId", report.BatchID).Msg("export run canceled, leaving items queued")
			exportRuns.WithLabelValues(e.handler.Shortcut(), resultCanceled).Inc()
			return report, err
		}

		e.logger.Error().Err(err).Str("batchId", report.BatchID).Msg("export run aborted")
		report.Aborted = true
		for _, p := range planned {
			e.resolve(ctx, report, Outcome{OperationID: p.Operation.ID, Response: err.Error()}, p)
		}
		exportRuns.WithLabelValues(e.handler.Shortcut(), resultAborted).Inc()
		return report, err
	}

	byID := make(map[string]Outcome, len(outcomes))
	for _, o := range outcomes {
		byID[o.OperationID] = o
	}
	for _, p := range planned {
		o, ok := byID[p.Operation.ID]
		if !ok {
			o = Outcome{OperationID: p.Operation.ID, Response: "no result for operation"}
		}
		e.resolve(ctx, report, o, p)
	}

	result := resultSucceeded
	if report.Failed > 0 {
		result = resultPartial
	}
	exportRuns.WithLabelValues(e.handler.Shortcut(), result).Inc()

	e.logger.Info().
		Str("batchId", report.BatchID).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("export run finished")

	return report, nil
}

// plan builds one operation per item. Items that cannot be built, or that
// repeat an operation id already planned, are resolved as failures right away.
func (e *Exporter) plan(ctx context.Context, items []*queue.Item, report *Report) []*PlannedOperation {
	planned := make([]*PlannedOperation, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		p, err := e.builder.Build(ctx, item)
		if err == nil && seen[p.Operation.ID] {
			err = ErrDuplicateOperationID
		}
		if err != nil {
			rejected := &PlannedOperation{Item: item, Operation: Operation{ID: item.LocalID()}}
			e.resolve(ctx, report, Outcome{OperationID: item.LocalID(), Response: err.Error()}, rejected)
			continue
		}
		seen[p.Operation.ID] = true
		planned = append(planned, p)
	}
	return planned
}

func (e *Exporter) execute(ctx context.Context, report *Report, ops []Operation) ([]Outcome, error) {
	batchID, err := e.submitter.Submit(ctx, ops)
	if err != nil {
		return nil, err
	}
	report.BatchID = batchID

	status, err := e.poller.Wait(ctx, batchID, len(ops))
	if err != nil {
		return nil, err
	}

	return e.reconciler.Reconcile(ctx, status, ops)
}

func (e *Exporter) resolve(ctx context.Context, report *Report, o Outcome, p *PlannedOperation) {
	e.applier.Apply(ctx, o, p)
	report.Outcomes = append(report.Outcomes, o)
	if p.Item.Processed {
		report.Succeeded++
	} else {
		report.Failed++
	}
}
