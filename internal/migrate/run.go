// Package migrate applies the run-archive schema from embedded, versioned SQL
// files. Applied versions are recorded in schema_migrations, so calling Run on
// every startup is safe.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	apperrors "github.com/cloudmatrix/cloudmatrix/internal/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run applies every pending migration in filename order. Each migration runs
// in its own transaction together with its schema_migrations record.
func Run(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "migrations")

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return apperrors.MapDBError(fmt.Errorf("create schema_migrations table: %w", err))
	}

	files, err := pendingFiles()
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := apply(ctx, db, logger, file); err != nil {
			return err
		}
	}
	return nil
}

func pendingFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func applied(ctx context.Context, db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("check migration %s: %w", version, err))
	}
	return exists, nil
}

func apply(ctx context.Context, db *sql.DB, logger *slog.Logger, file string) error {
	version := strings.TrimSuffix(file, ".sql")

	done, err := applied(ctx, db, version)
	if err != nil || done {
		return err
	}

	stmts, err := migrationsFS.ReadFile("migrations/" + file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}

	logger.InfoContext(ctx, "applying migration", "version", version)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("begin migration %s: %w", version, err))
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "rollback migration failed", "version", version, "error", rbErr)
		}
	}()

	if _, err := tx.ExecContext(ctx, string(stmts)); err != nil {
		return apperrors.MapDBError(fmt.Errorf("exec migration %s: %w", version, err))
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return apperrors.MapDBError(fmt.Errorf("record migration %s: %w", version, err))
	}

	if err := tx.Commit(); err != nil {
		return apperrors.MapDBError(fmt.Errorf("commit migration %s: %w", version, err))
	}
	return nil
}
