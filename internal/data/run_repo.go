// Package data provides persistence adapters for run history and baselines.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/cloudmatrix/cloudmatrix/internal/core"
	"github.com/cloudmatrix/cloudmatrix/internal/domain/model"
	apperrors "github.com/cloudmatrix/cloudmatrix/internal/errors"
)

// RunRepo persists completed run reports to PostgreSQL.
type RunRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

var _ core.RunArchive = (*RunRepo)(nil)

// NewRunRepo creates a RunRepo backed by the given connection.
func NewRunRepo(db *sql.DB, logger *slog.Logger) *RunRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunRepo{DB: db, logger: logger}
}

// SaveRun stores one run row plus a result row per job, atomically.
func (r *RunRepo) SaveRun(ctx context.Context, snap model.RunSnapshot) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("begin save run: %w", err))
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			r.logger.ErrorContext(ctx, "rollback save run failed", "error", rbErr)
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, service_directory, started_at, completed_at,
			total, passed, failed, timed_out, skipped
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		snap.RunID, snap.ServiceDirectory, snap.StartedAt, snap.CompletedAt,
		snap.Summary.Total, snap.Summary.Passed, snap.Summary.Failed,
		snap.Summary.TimedOut, snap.Summary.Skipped,
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("insert run %s: %w", snap.RunID, err))
	}

	for _, res := range snap.Results {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_results (
				run_id, job_key, service, cloud, parameters,
				status, duration_seconds, error_detail, regression
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			snap.RunID, res.JobKey, res.Service, res.Cloud, res.Parameters,
			string(res.Status), res.DurationSeconds, nullIfEmpty(res.ErrorDetail), res.Regression,
		)
		if err != nil {
			return apperrors.MapDBError(fmt.Errorf("insert result %s: %w", res.JobKey, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.MapDBError(fmt.Errorf("commit save run: %w", err))
	}
	return nil
}

// ListRuns returns the most recent archived runs, newest first.
func (r *RunRepo) ListRuns(ctx context.Context, limit int) ([]model.ArchivedRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, service_directory, started_at, completed_at,
		       total, passed, failed, timed_out, skipped
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list runs: %w", err))
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var runs []model.ArchivedRun
	for rows.Next() {
		var run model.ArchivedRun
		if err := rows.Scan(
			&run.RunID, &run.ServiceDirectory, &run.StartedAt, &run.CompletedAt,
			&run.Summary.Total, &run.Summary.Passed, &run.Summary.Failed,
			&run.Summary.TimedOut, &run.Summary.Skipped,
		); err != nil {
			return nil, apperrors.MapDBError(fmt.Errorf("scan run: %w", err))
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("iterate runs: %w", err))
	}
	return runs, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
