package batchsync

import (
	"context"
	"fmt"

	"github.com/erauner12/listsync/internal/queue"
	"github.com/erauner12/listsync/internal/syncx"
	"github.com/rs/zerolog"
)

// Builder turns queue items into batch operations
type Builder struct {
	handler ListHandler
	records RecordStore
	logger  zerolog.Logger
}

// NewBuilder creates a new Builder
func NewBuilder(handler ListHandler, records RecordStore, logger zerolog.Logger) *Builder {
	return &Builder{handler: handler, records: records, logger: logger}
}

// Build decides the effective operation for an item and returns the planned operation.
// An update for a customer that no longer needs exporting (or no longer exists)
// is overruled to a delete; the item's OverruledOperation records that.
func (b *Builder) Build(ctx context.Context, item *queue.Item) (*PlannedOperation, error) {
	switch item.Operation {
	case queue.OperationUpdate:
		if item.Customer != nil && b.handler.NeedsExport(item.Customer) {
			return b.buildUpdate(ctx, item)
		}
		item.OverruledOperation = queue.OperationDelete
		return b.buildDelete(item)
	case queue.OperationDelete:
		return b.buildDelete(item)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, item.Operation)
	}
}

func (b *Builder) buildUpdate(ctx context.Context, item *queue.Item) (*PlannedOperation, error) {
	entry := b.handler.BuildEntry(item.Customer)

	email, _ := syncx.GetString(entry, "email_address")
	if email == "" {
		return nil, ErrMissingRemoteIdentity
	}
	remoteID := b.handler.RemoteID(email)

	logger := b.logger.With().
		Int64("customerId", item.CustomerID).
		Str("remoteId", remoteID).
		Logger()

	logger.Info().Msg("adding customer to batch")

	exported, err := b.records.WasExported(ctx, item.CustomerID, b.handler.ListID())
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("could not check previous exports")
	case exported:
		logger.Info().Msg("customer already exists remotely")
	default:
		logger.Info().Msg("customer was not exported yet")
	}

	return &PlannedOperation{
		Item: item,
		Operation: Operation{
			ID:     item.LocalID(),
			Method: MethodPut,
			Path:   b.handler.MemberPath(remoteID),
			Body:   entry,
		},
		RemoteID: remoteID,
		Entry:    entry,
	}, nil
}

func (b *Builder) buildDelete(item *queue.Item) (*PlannedOperation, error) {
	email := item.Email
	if email == "" && item.Customer != nil {
		email = item.Customer.Email
	}
	if email == "" {
		return nil, ErrMissingRemoteIdentity
	}
	remoteID := b.handler.RemoteID(email)

	b.logger.Info().
		Int64("customerId", item.CustomerID).
		Str("remoteId", remoteID).
		Bool("overruled", item.OverruledOperation == queue.OperationDelete).
		Msg("adding deletion of customer to batch")

	return &PlannedOperation{
		Item: item,
		Operation: Operation{
			ID:     item.LocalID(),
			Method: MethodDelete,
			Path:   b.handler.MemberPath(remoteID),
		},
		RemoteID: remoteID,
	}, nil
}
