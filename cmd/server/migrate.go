package main

import (
	"context"
	"errors"
	"time"

	"github.com/bbr/taskbot/internal/datasources"
	"github.com/bbr/taskbot/migrations"
	"github.com/spf13/cobra"
)

const migrateTimeout = time.Minute

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL or DB_HOST/DB_NAME/DB_USER environment variables are not set")
		}

		ctx, cancel := context.WithTimeout(c.Context(), migrateTimeout)
		defer cancel()

		db, err := datasources.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		return datasources.RunMigrations(ctx, db, migrations.FS, logger)
	},
}
