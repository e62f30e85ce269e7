package exportservice

import (
	"context"
	"errors"
	"sync"

	"github.com/erauner12/listsync/internal/batchsync"
	"github.com/erauner12/listsync/internal/syncx"
	"github.com/google/uuid"
)

// Run states
const (
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
	StateCanceled  = "canceled"
)

const maxTrackedRuns = 100

// RunStatus describes a background export run
type RunStatus struct {
	ID         string `json:"id"`
	List       string `json:"list"`
	State      string `json:"state"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
	BatchID    string `json:"batchId,omitempty"`
	Items      int    `json:"items"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Aborted    bool   `json:"aborted"`
	Error      string `json:"error,omitempty"`
}

// tracker keeps the most recent runs, evicting the oldest finished ones
type tracker struct {
	mu    sync.Mutex
	limit int
	runs  map[string]*RunStatus
	order []string
}

func newTracker(limit int) *tracker {
	return &tracker{limit: limit, runs: make(map[string]*RunStatus)}
}

func (t *tracker) add(rs *RunStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.runs[rs.ID] = rs
	t.order = append(t.order, rs.ID)

	for len(t.order) > t.limit {
		evicted := false
		for i, id := range t.order {
			if t.runs[id].State != StateRunning {
				delete(t.runs, id)
				t.order = append(t.order[:i], t.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

func (t *tracker) update(id string, fn func(*RunStatus)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rs, ok := t.runs[id]; ok {
		fn(rs)
	}
}

func (t *tracker) get(id string) (RunStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rs, ok := t.runs[id]
	if !ok {
		return RunStatus{}, false
	}
	return *rs, true
}

// Start launches a background run for a list and returns its initial status.
// The run outlives the caller's request and is canceled by Shutdown.
func (s *Service) Start(shortcut string) (RunStatus, error) {
	l, err := s.lookup(shortcut)
	if err != nil {
		return RunStatus{}, err
	}

	runID := uuid.NewString()
	if err := s.acquire(shortcut, runID); err != nil {
		return RunStatus{}, err
	}

	rs := &RunStatus{
		ID:        runID,
		List:      shortcut,
		State:     StateRunning,
		StartedAt: syncx.RFC3339(syncx.NowMs()),
	}
	s.runs.add(rs)
	initial := *rs

	go func() {
		defer s.wg.Done()

		report, err := s.run(s.baseCtx, l)
		s.release(shortcut)
		s.runs.update(runID, func(rs *RunStatus) {
			rs.FinishedAt = syncx.RFC3339(syncx.NowMs())
			finishStatus(rs, report, err)
		})
	}()

	s.logger.Info().Str("runId", runID).Str("list", shortcut).Msg("started background export run")
	return initial, nil
}

// Status returns a tracked run
func (s *Service) Status(runID string) (RunStatus, error) {
	rs, ok := s.runs.get(runID)
	if !ok {
		return RunStatus{}, ErrUnknownRun
	}
	return rs, nil
}

func finishStatus(rs *RunStatus, report *batchsync.Report, err error) {
	if report != nil {
		rs.BatchID = report.BatchID
		rs.Items = report.Items
		rs.Succeeded = report.Succeeded
		rs.Failed = report.Failed
		rs.Aborted = report.Aborted
	}

	switch {
	case err == nil:
		rs.State = StateSucceeded
	case errors.Is(err, context.Canceled):
		rs.State = StateCanceled
		rs.Error = err.Error()
	default:
		rs.State = StateFailed
		rs.Error = err.Error()
	}
}
