// Package pgtest opens a migrated, empty database for repository tests.
// Tests are skipped unless TEST_DB_DSN is set.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vulcano-studio/vulcano-backend/internal/storage/postgres"
)

func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()

	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	defer m.Close()
	if _, err := m.Run(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.OpenPool(ctx, postgres.PoolOptions{DSN: dsn})
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	Truncate(t, pool)
	return pool
}

func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	const q = `TRUNCATE messages, project_images, project_clients, projects, profiles, users CASCADE;`
	if _, err := pool.Exec(context.Background(), q); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
