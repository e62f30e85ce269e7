package queue

import (
	"context"
	"fmt"

	"github.com/erauner12/listsync/internal/customer"
	"github.com/erauner12/listsync/internal/syncx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Store is the Postgres-backed change queue
type Store struct {
	DB *pgxpool.Pool
}

// NewStore creates a new Store
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Enqueue records a change for a customer on a list.
// One row per (list, customer): a newer change replaces the pending one and
// takes a fresh seq.
func (s *Store) Enqueue(ctx context.Context, listID string, customerID int64, email string, op Operation) error {
	if _, err := ParseOperation(string(op)); err != nil {
		return err
	}

	_, err := s.DB.Exec(ctx, `
		INSERT INTO newsletter_queue (list_id, customer_id, email, operation, queued_at_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (list_id, customer_id) DO UPDATE SET
			email        = EXCLUDED.email,
			operation    = EXCLUDED.operation,
			queued_at_ms = EXCLUDED.queued_at_ms,
			seq          = nextval('newsletter_queue_seq')
	`, listID, customerID, email, string(op), syncx.NowMs())
	if err != nil {
		log.Error().Err(err).Str("list", listID).Int64("customerId", customerID).Msg("failed to enqueue change")
	}
	return err
}

// Fetch returns up to limit pending items for a list, oldest first
func (s *Store) Fetch(ctx context.Context, listID string, limit int) ([]*Item, error) {
	logger := log.With().Str("list", listID).Logger()

	rows, err := s.DB.Query(ctx, `
		SELECT q.customer_id, q.email, q.operation, q.queued_at_ms, q.seq,
		       c.id, c.email, c.first_name, c.last_name, c.active, c.newsletter_status
		FROM newsletter_queue q
		LEFT JOIN customer c ON c.id = q.customer_id
		WHERE q.list_id = $1
		ORDER BY q.queued_at_ms, q.seq
		LIMIT $2
	`, listID, limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to query queue")
		return nil, err
	}
	defer rows.Close()

	items := make([]*Item, 0, limit)
	for rows.Next() {
		var (
			item      = Item{ListID: listID}
			op        string
			cID       *int64
			cEmail    *string
			cFirst    *string
			cLast     *string
			cActive   *bool
			cNLStatus *string
		)

		if err := rows.Scan(&item.CustomerID, &item.Email, &op, &item.QueuedAtMs, &item.Seq,
			&cID, &cEmail, &cFirst, &cLast, &cActive, &cNLStatus); err != nil {
			logger.Error().Err(err).Msg("failed to scan queue row")
			return nil, err
		}

		item.Operation, err = ParseOperation(op)
		if err != nil {
			return nil, fmt.Errorf("queue row for customer %d: %w", item.CustomerID, err)
		}

		if cID != nil {
			item.Customer = &customer.Customer{
				ID:               *cID,
				Email:            *cEmail,
				FirstName:        *cFirst,
				LastName:         *cLast,
				Active:           *cActive,
				NewsletterStatus: *cNLStatus,
			}
		}

		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("row iteration error")
		return nil, err
	}

	return items, nil
}

// Complete removes processed items from the queue.
// A row whose seq changed since Fetch was re-enqueued mid-run and is kept.
// Returns the number of removed rows.
func (s *Store) Complete(ctx context.Context, items []*Item) (int, error) {
	batch := &pgx.Batch{}
	for _, item := range items {
		if !item.Processed {
			continue
		}
		batch.Queue(`
			DELETE FROM newsletter_queue
			WHERE list_id = $1 AND customer_id = $2 AND seq = $3
		`, item.ListID, item.CustomerID, item.Seq)
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	results := s.DB.SendBatch(ctx, batch)
	defer results.Close()

	removed := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			log.Error().Err(err).Msg("failed to complete queue item")
			return removed, err
		}
		removed += int(tag.RowsAffected())
	}
	return removed, nil
}

// Pending counts queued items for a list
func (s *Store) Pending(ctx context.Context, listID string) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM newsletter_queue WHERE list_id = $1`, listID).Scan(&n)
	return n, err
}
