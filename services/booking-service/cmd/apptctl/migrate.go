package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect schema migrations",
		Long: `Manage the appointments schema.

The database is a postgres:// URL or a SQLite file path, taken from --database-url
or DATABASE_URL.`,
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL or SQLite path (default $DATABASE_URL or data/appointments.db)")

	withBackend := func(cmd *cobra.Command, fn func(context.Context, *storage.Backend) error) error {
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}
		url := databaseURL
		if url == "" {
			url = config.String("DATABASE_URL", "data/appointments.db")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		backend, err := storage.OpenBackend(ctx, url, logger, storage.BackendOptions{})
		if err != nil {
			return err
		}
		defer backend.Close()
		return fn(ctx, backend)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, b *storage.Backend) error {
				if err := b.Migrator.Up(ctx); err != nil {
					return err
				}
				return printVersion(ctx, cmd, b)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, b *storage.Backend) error {
				if err := b.Migrator.Down(ctx); err != nil {
					return err
				}
				return printVersion(ctx, cmd, b)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(ctx context.Context, b *storage.Backend) error {
				return printVersion(ctx, cmd, b)
			})
		},
	})
	return cmd
}

func printVersion(ctx context.Context, cmd *cobra.Command, b *storage.Backend) error {
	v, err := b.Migrator.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d\n", b.Dialect, v)
	return nil
}
