package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/migrations"
)

// NewSQLiteStore returns a migrated SQLite store in a per-test directory.
func NewSQLiteStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "appointments.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	m := db.NewSQLiteMigrator(conn, migrations.FS, migrations.SQLiteDir, nil)
	if err := m.Up(ctx); err != nil {
		_ = conn.Close()
		t.Fatalf("migrate sqlite: %v", err)
	}

	store := storage.NewSQLiteStore(conn)
	t.Cleanup(store.Close)
	return store
}

// NewPostgresPool connects to TEST_DATABASE_URL, applies migrations and empties the tables.
// The test is skipped when the variable is unset or the database is unreachable.
func NewPostgresPool(t *testing.T) *db.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, dsn, db.PoolOptions{MaxConns: 4})
	if err != nil {
		t.Skipf("skipping Postgres integration tests: %v", err)
	}
	t.Cleanup(pool.Close)

	m := db.NewPostgresMigrator(pool, migrations.FS, migrations.PostgresDir, nil)
	defer func() { _ = m.Close() }()
	if err := m.Up(ctx); err != nil {
		t.Fatalf("migrate postgres: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE appointments, outbox_events RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}
