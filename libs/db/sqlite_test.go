package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = fstest.MapFS{
	"m/00001_items.sql": {Data: []byte(`-- +goose Up
CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE);

-- +goose Down
DROP TABLE items;
`)},
}

func TestSQLiteMigratorAndUniqueViolation(t *testing.T) {
	ctx := context.Background()
	conn, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	m := NewSQLiteMigrator(conn, testMigrations, "m", nil)
	require.NoError(t, m.Up(ctx))
	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = conn.ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`)
	require.Error(t, err)
	assert.True(t, IsSQLiteUniqueViolation(err))
	assert.False(t, IsSQLiteUniqueViolation(context.Canceled))

	require.NoError(t, m.Down(ctx))
	v, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
	require.NoError(t, m.Close())
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "sqlite://")
	assert.Error(t, err)
}

func TestIsPostgresURL(t *testing.T) {
	assert.True(t, IsPostgresURL("postgres://u:p@localhost/db"))
	assert.True(t, IsPostgresURL(" PostgreSQL://localhost/db"))
	assert.False(t, IsPostgresURL("data/appointments.db"))
	assert.False(t, IsPostgresURL("sqlite://data/appointments.db"))
}
