package errors

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors from the run archive to AppError instances:
//   - pgx.ErrNoRows → NotFound
//   - unique constraint violations → Conflict
//   - check / not-null violations → Validation
//   - context timeouts and cancellations → Timeout / Canceled
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "database operation timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "database operation canceled", Cause: err}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{Code: ErrCodeNotFound, Message: "record not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return &AppError{Code: ErrCodeConflict, Message: "record already exists", Cause: err}
		case pgerrcode.ForeignKeyViolation:
			return &AppError{Code: ErrCodeConflict, Message: "referenced record missing", Cause: err}
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return &AppError{Code: ErrCodeValidation, Message: "record failed database validation", Cause: err}
		}
	}

	return err
}
