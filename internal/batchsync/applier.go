package batchsync

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/erauner12/listsync/internal/customer"
	"github.com/erauner12/listsync/internal/queue"
	"github.com/erauner12/listsync/internal/syncx"
	"github.com/rs/zerolog"
)

// Fingerprint is the hex MD5 of the JSON encoding of an entry.
// encoding/json sorts map keys, so equal entries give equal fingerprints.
func Fingerprint(entry map[string]any) (string, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// Applier writes an outcome back onto the local customer and queue item
type Applier struct {
	handler ListHandler
	records RecordStore
	logger  zerolog.Logger
}

// NewApplier creates a new Applier
func NewApplier(handler ListHandler, records RecordStore, logger zerolog.Logger) *Applier {
	return &Applier{handler: handler, records: records, logger: logger}
}

// Apply records one outcome. Only a successful outcome whose notes and status
// were persisted marks the item processed.
func (a *Applier) Apply(ctx context.Context, outcome Outcome, p *PlannedOperation) {
	op := p.Item.EffectiveOperation()
	logger := a.logger.With().
		Int64("customerId", p.Item.CustomerID).
		Str("operation", string(op)).
		Str("remoteId", p.RemoteID).
		Logger()

	if !outcome.Succeeded {
		a.applyFailure(outcome, p, op, logger)
		return
	}

	if err := a.applySuccess(ctx, p, op, logger); err != nil {
		logger.Error().Err(err).Msg("remote operation succeeded but local bookkeeping failed, leaving item queued")
		exportOperations.WithLabelValues(a.handler.Shortcut(), string(op), "failure").Inc()
		return
	}

	p.Item.Processed = true
	exportOperations.WithLabelValues(a.handler.Shortcut(), string(op), "success").Inc()
}

func (a *Applier) applySuccess(ctx context.Context, p *PlannedOperation, op queue.Operation, logger zerolog.Logger) error {
	listID := a.handler.ListID()

	if op == queue.OperationUpdate {
		fingerprint, err := Fingerprint(p.Entry)
		if err != nil {
			return fmt.Errorf("fingerprint entry: %w", err)
		}

		if err := a.records.SaveExportNote(ctx, customer.ExportNote{
			CustomerID:  p.Item.CustomerID,
			ListID:      listID,
			RemoteID:    p.RemoteID,
			Fingerprint: fingerprint,
			Message:     fmt.Sprintf("%s Export [%s]", a.handler.Provider(), a.handler.Shortcut()),
		}); err != nil {
			return fmt.Errorf("save export note: %w", err)
		}

		status := syncx.FirstString(p.Entry, "status", "status_if_new")
		if err := a.records.UpdateRemoteStatus(ctx, p.Item.CustomerID, listID, status); err != nil {
			return fmt.Errorf("update remote status: %w", err)
		}

		logger.Info().Str("status", status).Msg("export was successful")
		return nil
	}

	// The customer row may be gone; there is nothing left to annotate then.
	if p.Item.Customer != nil {
		if err := a.records.SaveExportNote(ctx, customer.ExportNote{
			CustomerID: p.Item.CustomerID,
			ListID:     listID,
			RemoteID:   p.RemoteID,
			Message:    fmt.Sprintf("%s Deletion [%s]", a.handler.Provider(), a.handler.Shortcut()),
		}); err != nil {
			return fmt.Errorf("save deletion note: %w", err)
		}
		if err := a.records.UpdateRemoteStatus(ctx, p.Item.CustomerID, listID, ""); err != nil {
			return fmt.Errorf("clear remote status: %w", err)
		}
	}

	logger.Info().Msg("deletion was successful")
	return nil
}

func (a *Applier) applyFailure(outcome Outcome, p *PlannedOperation, op queue.Operation, logger zerolog.Logger) {
	msg := "export failed"
	if op == queue.OperationDelete {
		msg = "deletion failed"
	}
	logger.Error().
		Err(outcome.Err()).
		Int("statusCode", outcome.StatusCode).
		Str("response", outcome.Response).
		Msg(msg)
	exportOperations.WithLabelValues(a.handler.Shortcut(), string(op), "failure").Inc()
}
