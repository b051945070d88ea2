package datasources

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// RunMigrations applies every *.sql file of fsys in lexical order.
// Statements failing because the object already exists are skipped.
func RunMigrations(ctx context.Context, db *sql.DB, fsys fs.FS, logger *zap.Logger) error {
	logger.Info("running database migrations")

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	sort.Strings(files)

	if len(files) == 0 {
		logger.Info("no migration files found")
		return nil
	}

	for _, file := range files {
		name := path.Base(file)

		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			if !isAlreadyExistsError(err) {
				return fmt.Errorf("failed to apply migration %s: %w", name, err)
			}
			logger.Info("migration already applied, skipping", zap.String("migration", name))
			continue
		}
		logger.Info("migration applied", zap.String("migration", name))
	}

	logger.Info("all migrations completed")
	return nil
}

// isAlreadyExistsError checks if the error is due to table/column already existing
func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "42P07") // PostgreSQL duplicate table error code
}
