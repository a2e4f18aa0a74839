package postgres

import (
	"context"
	"database/sql"
	"errors"

	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes the ledger reacts to
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
)

// TranslateError converts driver errors into marked domain errors. op names the store
// operation for hints and logs.
func TranslateError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHintf("Record not found during %s", op).
			Mark(ierr.ErrNotFound)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ierr.WithError(err).
			WithHint("The operation timed out, please retry").
			WithReportableDetails(map[string]any{"operation": op}).
			Mark(ierr.ErrContention)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return ierr.WithError(err).
				WithHint("A record with the same identifier already exists").
				WithReportableDetails(map[string]any{
					"operation":  op,
					"constraint": pqErr.Constraint,
				}).
				Mark(ierr.ErrAlreadyExists)
		case codeForeignKeyViolation:
			return ierr.WithError(err).
				WithHint("The record is referenced by other records").
				WithReportableDetails(map[string]any{
					"operation":  op,
					"constraint": pqErr.Constraint,
				}).
				Mark(ierr.ErrConflict)
		case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected, codeQueryCanceled:
			return ierr.WithError(err).
				WithHint("The record is being modified by another request, please retry").
				WithReportableDetails(map[string]any{
					"operation": op,
					"sqlstate":  string(pqErr.Code),
				}).
				Mark(ierr.ErrContention)
		}
	}

	return ierr.WithError(err).
		WithHintf("Database operation %s failed", op).
		Mark(ierr.ErrDatabase)
}

// ConstraintName returns the violated constraint of a driver error, if any
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
