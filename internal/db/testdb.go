package db

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenTest connects to TEST_DATABASE_URL, ensures the schema and empties
// every table. Tests are skipped when the variable is unset or in -short mode.
func OpenTest(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}

	ctx := context.Background()
	pool, err := Open(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE newsletter_queue, customer_export_note, customer_list_status, customer`); err != nil {
		pool.Close()
		t.Fatalf("Failed to clean test database: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}
