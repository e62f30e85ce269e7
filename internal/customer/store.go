package customer

import (
	"context"

	"github.com/erauner12/listsync/internal/syncx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Store persists customers, their per-list remote status and export notes
type Store struct {
	DB *pgxpool.Pool
}

// NewStore creates a new Store
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Get loads a customer by id
// Returns nil, nil when the customer does not exist
func (s *Store) Get(ctx context.Context, id int64) (*Customer, error) {
	var c Customer
	err := s.DB.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, active, newsletter_status
		FROM customer
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Active, &c.NewsletterStatus)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Int64("customerId", id).Msg("failed to get customer")
		return nil, err
	}
	return &c, nil
}

// Upsert inserts or replaces a customer row
func (s *Store) Upsert(ctx context.Context, c *Customer) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO customer (id, email, first_name, last_name, active, newsletter_status, updated_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			email             = EXCLUDED.email,
			first_name        = EXCLUDED.first_name,
			last_name         = EXCLUDED.last_name,
			active            = EXCLUDED.active,
			newsletter_status = EXCLUDED.newsletter_status,
			updated_at_ms     = EXCLUDED.updated_at_ms
	`, c.ID, c.Email, c.FirstName, c.LastName, c.Active, c.NewsletterStatus, syncx.NowMs())
	if err != nil {
		log.Error().Err(err).Int64("customerId", c.ID).Msg("failed to upsert customer")
	}
	return err
}

// WasExported reports whether any export note exists for the customer and list
func (s *Store) WasExported(ctx context.Context, customerID int64, listID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM customer_export_note
			WHERE customer_id = $1 AND list_id = $2
		)
	`, customerID, listID).Scan(&exists)
	return exists, err
}

// SaveExportNote appends an audit note
func (s *Store) SaveExportNote(ctx context.Context, note ExportNote) error {
	if note.CreatedAtMs == 0 {
		note.CreatedAtMs = syncx.NowMs()
	}

	var fingerprint *string
	if note.Fingerprint != "" {
		fingerprint = &note.Fingerprint
	}

	_, err := s.DB.Exec(ctx, `
		INSERT INTO customer_export_note (customer_id, list_id, remote_id, fingerprint, message, created_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, note.CustomerID, note.ListID, note.RemoteID, fingerprint, note.Message, note.CreatedAtMs)
	if err != nil {
		log.Error().Err(err).Int64("customerId", note.CustomerID).Str("list", note.ListID).Msg("failed to save export note")
	}
	return err
}

// UpdateRemoteStatus stores the member status last sent to the remote list
func (s *Store) UpdateRemoteStatus(ctx context.Context, customerID int64, listID, status string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO customer_list_status (customer_id, list_id, remote_status, updated_at_ms)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id, list_id) DO UPDATE SET
			remote_status = EXCLUDED.remote_status,
			updated_at_ms = EXCLUDED.updated_at_ms
	`, customerID, listID, status, syncx.NowMs())
	if err != nil {
		log.Error().Err(err).Int64("customerId", customerID).Str("list", listID).Msg("failed to update remote status")
	}
	return err
}

// RemoteStatus returns the stored remote status ("" when unknown)
func (s *Store) RemoteStatus(ctx context.Context, customerID int64, listID string) (string, error) {
	var status string
	err := s.DB.QueryRow(ctx, `
		SELECT remote_status FROM customer_list_status
		WHERE customer_id = $1 AND list_id = $2
	`, customerID, listID).Scan(&status)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	return status, err
}
