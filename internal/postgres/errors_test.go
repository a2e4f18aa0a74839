package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{
			name:     "no_rows_is_not_found",
			err:      sql.ErrNoRows,
			expected: ierr.ErrNotFound,
		},
		{
			name:     "unique_violation_is_already_exists",
			err:      &pq.Error{Code: "23505", Constraint: "customers_tenant_code_key"},
			expected: ierr.ErrAlreadyExists,
		},
		{
			name:     "foreign_key_violation_is_conflict",
			err:      &pq.Error{Code: "23503", Constraint: "invoices_customer_id_fkey"},
			expected: ierr.ErrConflict,
		},
		{
			name:     "lock_not_available_is_contention",
			err:      &pq.Error{Code: "55P03"},
			expected: ierr.ErrContention,
		},
		{
			name:     "serialization_failure_is_contention",
			err:      &pq.Error{Code: "40001"},
			expected: ierr.ErrContention,
		},
		{
			name:     "deadlock_is_contention",
			err:      &pq.Error{Code: "40P01"},
			expected: ierr.ErrContention,
		},
		{
			name:     "wrapped_driver_error_is_unwrapped",
			err:      fmt.Errorf("exec: %w", &pq.Error{Code: "55P03"}),
			expected: ierr.ErrContention,
		},
		{
			name:     "deadline_exceeded_is_contention",
			err:      context.DeadlineExceeded,
			expected: ierr.ErrContention,
		},
		{
			name:     "other_driver_errors_are_database_errors",
			err:      &pq.Error{Code: "42P01"},
			expected: ierr.ErrDatabase,
		},
		{
			name:     "plain_errors_are_database_errors",
			err:      errors.New("connection reset"),
			expected: ierr.ErrDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translated := TranslateError(tt.err, "test")
			assert.True(t, errors.Is(translated, tt.expected), "expected %v, got %v", tt.expected, translated)
		})
	}
}

func TestTranslateError_Nil(t *testing.T) {
	assert.NoError(t, TranslateError(nil, "test"))
}

func TestTranslateError_Retryable(t *testing.T) {
	assert.True(t, ierr.IsRetryable(TranslateError(&pq.Error{Code: "55P03"}, "lock")))
	assert.False(t, ierr.IsRetryable(TranslateError(&pq.Error{Code: "23505"}, "insert")))
}

func TestConstraintName(t *testing.T) {
	err := TranslateError(&pq.Error{Code: "23505", Constraint: "invoices_tenant_number_key"}, "insert")
	assert.Equal(t, "invoices_tenant_number_key", ConstraintName(err))
	assert.Empty(t, ConstraintName(errors.New("plain")))
}
