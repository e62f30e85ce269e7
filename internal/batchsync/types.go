// Package batchsync exports queued customer changes to a remote list through
// the provider's batch API: build one operation per queue item, submit them as
// a single batch, poll until the provider finishes the batch, then map the
// per-operation results back onto the queue items.
package batchsync

import (
	"context"
	"strings"

	"github.com/erauner12/listsync/internal/customer"
	"github.com/erauner12/listsync/internal/queue"
)

// HTTP methods used by batch operations
const (
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
)

// StatusFinished is the only batch status that ends polling
const StatusFinished = "finished"

// Operation is one member-level request inside a batch.
// ID is always the queue item's LocalID: the provider echoes it back in the
// result archive and it is the only key used to match results to items.
type Operation struct {
	ID     string
	Method string
	Path   string
	Body   map[string]any // nil for deletes
}

// BatchStatus is the provider's view of a submitted batch
type BatchStatus struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	TotalOperations    int    `json:"total_operations"`
	FinishedOperations int    `json:"finished_operations"`
	ErroredOperations  int    `json:"errored_operations"`
	ResponseBodyURL    string `json:"response_body_url"`
}

// Finished reports whether the provider completed the batch
func (s *BatchStatus) Finished() bool {
	return s != nil && strings.EqualFold(s.Status, StatusFinished)
}

// Outcome is the resolved result for one submitted operation
type Outcome struct {
	OperationID string
	Succeeded   bool
	StatusCode  int    // 0 when unknown (fast path or aborted run)
	Response    string // provider response body or abort reason
}

// Err returns an *OperationFailure for failed outcomes and nil otherwise
func (o Outcome) Err() error {
	if o.Succeeded {
		return nil
	}
	return &OperationFailure{OperationID: o.OperationID, StatusCode: o.StatusCode, Response: o.Response}
}

// PlannedOperation couples a queue item with the operation built for it
type PlannedOperation struct {
	Item      *queue.Item
	Operation Operation
	RemoteID  string
	Entry     map[string]any // payload sent for updates, nil for deletes
}

// Transport performs the provider's batch API calls
type Transport interface {
	SubmitBatch(ctx context.Context, ops []Operation) (string, error)
	CheckBatchStatus(ctx context.Context, batchID string) (*BatchStatus, error)
	FetchArchive(ctx context.Context, url string) ([]byte, error)
}

// ListHandler knows how customers map onto one remote list
type ListHandler interface {
	Provider() string
	ListID() string
	Shortcut() string
	// RemoteID derives the member identity from an email address
	RemoteID(email string) string
	MemberPath(remoteID string) string
	// BuildEntry returns the member payload; it must be deterministic
	BuildEntry(c *customer.Customer) map[string]any
	// NeedsExport reports whether the customer should exist remotely
	NeedsExport(c *customer.Customer) bool
}

// RecordStore persists export results on the local customer
type RecordStore interface {
	WasExported(ctx context.Context, customerID int64, listID string) (bool, error)
	SaveExportNote(ctx context.Context, note customer.ExportNote) error
	UpdateRemoteStatus(ctx context.Context, customerID int64, listID, status string) error
}
