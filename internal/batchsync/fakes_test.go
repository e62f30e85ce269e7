package batchsync

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erauner12/listsync/internal/customer"
	"github.com/erauner12/listsync/internal/queue"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

var errBoom = errors.New("boom")

// testHandler maps customers onto a list without any provider specifics
type testHandler struct{}

func (testHandler) Provider() string { return "Test" }
func (testHandler) ListID() string   { return "L1" }
func (testHandler) Shortcut() string { return "news" }

func (testHandler) RemoteID(email string) string {
	return "h-" + strings.ToLower(strings.TrimSpace(email))
}

func (testHandler) MemberPath(remoteID string) string {
	return "lists/L1/members/" + remoteID
}

func (testHandler) BuildEntry(c *customer.Customer) map[string]any {
	entry := map[string]any{
		"email_address": c.Email,
		"status_if_new": c.NewsletterStatus,
	}
	if c.NewsletterStatus != "pending" {
		entry["status"] = c.NewsletterStatus
	}
	return entry
}

func (testHandler) NeedsExport(c *customer.Customer) bool {
	return c != nil && c.Active && c.Email != ""
}

type statusReply struct {
	status *BatchStatus
	err    error
}

// fakeTransport replays canned replies and records every call
type fakeTransport struct {
	mu sync.Mutex

	batchID   string
	submitErr error
	submitted [][]Operation

	// replies are returned in order; the last one repeats
	replies []statusReply
	checks  int

	archive    []byte
	archiveErr error
	fetched    []string
}

func (f *fakeTransport) SubmitBatch(ctx context.Context, ops []Operation) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, ops)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.batchID == "" {
		return "batch-1", nil
	}
	return f.batchID, nil
}

func (f *fakeTransport) CheckBatchStatus(ctx context.Context, batchID string) (*BatchStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.checks
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	f.checks++
	if i < 0 {
		return &BatchStatus{ID: batchID, Status: "pending"}, nil
	}
	return f.replies[i].status, f.replies[i].err
}

func (f *fakeTransport) FetchArchive(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	return f.archive, f.archiveErr
}

func finished(errored int, url string) statusReply {
	return statusReply{status: &BatchStatus{ID: "batch-1", Status: StatusFinished, ErroredOperations: errored, ResponseBodyURL: url}}
}

func pending() statusReply {
	return statusReply{status: &BatchStatus{ID: "batch-1", Status: "started"}}
}

// fakeRecords is an in-memory RecordStore
type fakeRecords struct {
	mu       sync.Mutex
	exported map[int64]bool
	notes    []customer.ExportNote
	statuses map[int64]string
	noteErr  error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{exported: map[int64]bool{}, statuses: map[int64]string{}}
}

func (s *fakeRecords) WasExported(ctx context.Context, customerID int64, listID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exported[customerID], nil
}

func (s *fakeRecords) SaveExportNote(ctx context.Context, note customer.ExportNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.noteErr != nil {
		return s.noteErr
	}
	s.notes = append(s.notes, note)
	return nil
}

func (s *fakeRecords) UpdateRemoteStatus(ctx context.Context, customerID int64, listID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[customerID] = status
	return nil
}

// recordingSleeper returns immediately and remembers every requested duration.
// When cancelAt > 0 it calls cancel on that call and reports ctx.Err().
type recordingSleeper struct {
	waits    []time.Duration
	cancelAt int
	cancel   context.CancelFunc
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	if s.cancelAt > 0 && len(s.waits) == s.cancelAt {
		s.cancel()
	}
	return ctx.Err()
}

func updateItem(id int64, email string) *queue.Item {
	return &queue.Item{
		CustomerID: id,
		ListID:     "L1",
		Email:      email,
		Operation:  queue.OperationUpdate,
		Customer: &customer.Customer{
			ID:               id,
			Email:            email,
			FirstName:        "First",
			LastName:         "Last",
			Active:           true,
			NewsletterStatus: "subscribed",
		},
	}
}

func deleteItem(id int64, email string) *queue.Item {
	return &queue.Item{CustomerID: id, ListID: "L1", Email: email, Operation: queue.OperationDelete}
}

type archiveFile struct {
	name string
	body string
}

// buildArchive writes files into a gzipped tar the way the provider packs results
func buildArchive(t *testing.T, files ...archiveFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for _, f := range files {
		hdr := &tar.Header{Name: f.name, Mode: 0o644, Size: int64(len(f.body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(f.body)); err != nil {
			t.Fatalf("write tar body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

var nopLogger = zerolog.Nop()
