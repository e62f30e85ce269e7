// Package exportservice runs export batches for the configured lists: it
// pulls queued changes, hands them to the batch exporter and removes what
// was synchronized from the queue.
package exportservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erauner12/listsync/internal/batchsync"
	"github.com/erauner12/listsync/internal/customer"
	"github.com/erauner12/listsync/internal/queue"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownList indicates a shortcut that is not configured
	ErrUnknownList = errors.New("unknown list")

	// ErrRunInProgress indicates the list already has an active export run
	ErrRunInProgress = errors.New("export run already in progress for list")

	// ErrUnknownRun indicates a run id the tracker does not know
	ErrUnknownRun = errors.New("unknown export run")

	// ErrShuttingDown indicates the service no longer accepts runs
	ErrShuttingDown = errors.New("export service is shutting down")
)

// Queue is the change queue the service drains
type Queue interface {
	Enqueue(ctx context.Context, listID string, customerID int64, email string, op queue.Operation) error
	Fetch(ctx context.Context, listID string, limit int) ([]*queue.Item, error)
	Complete(ctx context.Context, items []*queue.Item) (int, error)
	Pending(ctx context.Context, listID string) (int, error)
}

// Customers persists customers and their export bookkeeping
type Customers interface {
	batchsync.RecordStore
	Get(ctx context.Context, id int64) (*customer.Customer, error)
	Upsert(ctx context.Context, c *customer.Customer) error
}

// Settings sizes runs and tunes polling
type Settings struct {
	MaxItems int
	Poll     batchsync.PollConfig
}

type list struct {
	handler  batchsync.ListHandler
	exporter *batchsync.Exporter
}

// Service coordinates export runs; at most one run per list is active
type Service struct {
	queue     Queue
	customers Customers
	lists     map[string]*list
	order     []string
	maxItems  int
	logger    zerolog.Logger

	mu     sync.Mutex
	active map[string]string // list shortcut -> run id
	runs   *tracker

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService wires one exporter per list handler
func NewService(q Queue, customers Customers, transport batchsync.Transport, handlers []batchsync.ListHandler, settings Settings, opts ...batchsync.Option) *Service {
	logger := log.With().Str("component", "exportservice").Logger()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		queue:     q,
		customers: customers,
		lists:     make(map[string]*list, len(handlers)),
		maxItems:  settings.MaxItems,
		logger:    logger,
		active:    make(map[string]string),
		runs:      newTracker(maxTrackedRuns),
		baseCtx:   ctx,
		cancel:    cancel,
	}
	for _, h := range handlers {
		s.lists[h.Shortcut()] = &list{
			handler:  h,
			exporter: batchsync.NewExporter(h, transport, customers, settings.Poll, logger, opts...),
		}
		s.order = append(s.order, h.Shortcut())
	}
	return s
}

// Lists returns the configured list shortcuts in configuration order
func (s *Service) Lists() []string {
	return append([]string(nil), s.order...)
}

func (s *Service) lookup(shortcut string) (*list, error) {
	l, ok := s.lists[shortcut]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownList, shortcut)
	}
	return l, nil
}

// acquire marks the list busy. Background runs (runID != "") are also
// counted for Shutdown while the lock is held.
func (s *Service) acquire(shortcut, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx.Err() != nil {
		return ErrShuttingDown
	}
	if _, busy := s.active[shortcut]; busy {
		return fmt.Errorf("%w: %s", ErrRunInProgress, shortcut)
	}
	s.active[shortcut] = runID
	if runID != "" {
		s.wg.Add(1)
	}
	return nil
}

func (s *Service) release(shortcut string) {
	s.mu.Lock()
	delete(s.active, shortcut)
	s.mu.Unlock()
}

// Run exports the oldest queued changes of one list and blocks until done.
// Processed items are removed from the queue even when the run itself
// returned an error.
func (s *Service) Run(ctx context.Context, shortcut string) (*batchsync.Report, error) {
	l, err := s.lookup(shortcut)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(shortcut, ""); err != nil {
		return nil, err
	}
	defer s.release(shortcut)

	return s.run(ctx, l)
}

func (s *Service) run(ctx context.Context, l *list) (*batchsync.Report, error) {
	logger := s.logger.With().Str("list", l.handler.Shortcut()).Logger()

	items, err := s.queue.Fetch(ctx, l.handler.ListID(), s.maxItems)
	if err != nil {
		return nil, fmt.Errorf("fetch queue: %w", err)
	}
	logger.Info().Int("items", len(items)).Msg("starting export run")

	report, runErr := l.exporter.Export(ctx, items)

	// Remote changes already happened; drop them from the queue regardless of ctx.
	removed, err := s.queue.Complete(context.WithoutCancel(ctx), items)
	if err != nil {
		logger.Error().Err(err).Msg("failed to remove processed items from queue")
		return report, errors.Join(runErr, fmt.Errorf("complete queue items: %w", err))
	}
	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("removed processed items from queue")
	}

	if runErr != nil {
		logger.Error().Err(runErr).Msg("export run failed")
	}
	return report, runErr
}

// RunAll runs every configured list in parallel and returns the reports by
// shortcut. Lists that are busy are skipped; errors of all lists are joined.
func (s *Service) RunAll(ctx context.Context) (map[string]*batchsync.Report, error) {
	var (
		mu      sync.Mutex
		reports = make(map[string]*batchsync.Report, len(s.order))
		errs    []error
	)

	g := new(errgroup.Group)
	for _, shortcut := range s.order {
		shortcut := shortcut
		g.Go(func() error {
			report, err := s.Run(ctx, shortcut)
			mu.Lock()
			defer mu.Unlock()
			if report != nil {
				reports[shortcut] = report
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("list %s: %w", shortcut, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}

// Enqueue records a change for a customer on one list
func (s *Service) Enqueue(ctx context.Context, shortcut string, customerID int64, email string, op queue.Operation) error {
	l, err := s.lookup(shortcut)
	if err != nil {
		return err
	}
	if _, err := queue.ParseOperation(string(op)); err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, l.handler.ListID(), customerID, email, op)
}

// Pending counts queued changes of one list
func (s *Service) Pending(ctx context.Context, shortcut string) (int, error) {
	l, err := s.lookup(shortcut)
	if err != nil {
		return 0, err
	}
	return s.queue.Pending(ctx, l.handler.ListID())
}

// Customer loads a customer; nil when unknown
func (s *Service) Customer(ctx context.Context, id int64) (*customer.Customer, error) {
	return s.customers.Get(ctx, id)
}

// SaveCustomer stores a customer and queues an update on every list.
// The exporter turns the update into a delete when the customer no longer
// belongs on a list.
func (s *Service) SaveCustomer(ctx context.Context, c *customer.Customer) error {
	if err := s.customers.Upsert(ctx, c); err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	for _, shortcut := range s.order {
		l := s.lists[shortcut]
		if err := s.queue.Enqueue(ctx, l.handler.ListID(), c.ID, c.Email, queue.OperationUpdate); err != nil {
			return fmt.Errorf("enqueue customer on %s: %w", shortcut, err)
		}
	}
	return nil
}

// Shutdown cancels active background runs and waits for them, or for ctx
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
