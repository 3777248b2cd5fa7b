package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// goose keeps its dialect and base FS in package state.
var gooseMu sync.Mutex

// Migrator applies embedded goose migrations to one database.
type Migrator struct {
	db      *sql.DB
	owned   bool
	dialect string
	fsys    fs.FS
	dir     string
	logger  *slog.Logger
}

// NewPostgresMigrator wraps the pool in a database/sql handle for goose. Close releases
// that handle but leaves the pool open.
func NewPostgresMigrator(pool *Pool, fsys fs.FS, dir string, logger *slog.Logger) *Migrator {
	return &Migrator{
		db:      stdlib.OpenDBFromPool(pool.Pool),
		owned:   true,
		dialect: DialectPostgres,
		fsys:    fsys,
		dir:     dir,
		logger:  logger,
	}
}

func NewSQLiteMigrator(conn *sql.DB, fsys fs.FS, dir string, logger *slog.Logger) *Migrator {
	return &Migrator{db: conn, dialect: DialectSQLite, fsys: fsys, dir: dir, logger: logger}
}

func (m *Migrator) Up(ctx context.Context) error {
	return m.run(func() error {
		if err := goose.UpContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

func (m *Migrator) Down(ctx context.Context) error {
	return m.run(func() error {
		if err := goose.DownContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("roll back migration: %w", err)
		}
		return nil
	})
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.run(func() error {
		v, err := goose.GetDBVersionContext(ctx, m.db)
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

func (m *Migrator) Close() error {
	if m.owned && m.db != nil {
		return m.db.Close()
	}
	return nil
}

func (m *Migrator) run(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(m.fsys)
	goose.SetLogger(gooseLogger{logger: m.logger})
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn()
}

type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
	}
	os.Exit(1)
}
