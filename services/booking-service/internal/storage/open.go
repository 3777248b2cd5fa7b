package storage

import (
	"context"
	"log/slog"

	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/migrations"
)

// Backend is an opened store together with its migrator. Pool is set only for PostgreSQL.
type Backend struct {
	Store    Store
	Pool     *db.Pool
	Migrator *db.Migrator
	Dialect  string
}

// BackendOptions tunes OpenBackend.
type BackendOptions struct {
	// PublishEvents records an outbox event with every PostgreSQL write. Leave it off
	// when no publisher drains the table.
	PublishEvents bool
}

// OpenBackend picks PostgreSQL for postgres:// URLs and treats anything else as a SQLite path.
func OpenBackend(ctx context.Context, databaseURL string, logger *slog.Logger, opts BackendOptions) (*Backend, error) {
	if db.IsPostgresURL(databaseURL) {
		pool, err := db.Open(ctx, databaseURL, db.PoolOptions{})
		if err != nil {
			return nil, err
		}
		var events *outbox.Repository
		if opts.PublishEvents {
			events = outbox.NewRepository()
		}
		return &Backend{
			Store:    NewPostgresStore(pool, events),
			Pool:     pool,
			Migrator: db.NewPostgresMigrator(pool, migrations.FS, migrations.PostgresDir, logger),
			Dialect:  db.DialectPostgres,
		}, nil
	}

	conn, err := db.OpenSQLite(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Store:    NewSQLiteStore(conn),
		Migrator: db.NewSQLiteMigrator(conn, migrations.FS, migrations.SQLiteDir, logger),
		Dialect:  db.DialectSQLite,
	}, nil
}

func (b *Backend) Close() {
	_ = b.Migrator.Close()
	b.Store.Close()
	b.Pool.Close()
}
