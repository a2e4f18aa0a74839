package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/flexprice/billing/internal/domain/sequence"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/flexprice/billing/internal/types"
	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"
)

// StartRepositorySpan creates a new span for a repository operation
// Returns nil if Sentry is not available in the context
func StartRepositorySpan(ctx context.Context, repository, operation string, params map[string]interface{}) *sentry.Span {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		return nil
	}

	span := sentry.StartSpan(ctx, "repository."+repository+"."+operation)
	span.Description = "repository." + repository + "." + operation
	span.Op = "db.postgres"
	span.SetData("repository", repository)
	span.SetData("operation", operation)
	for k, v := range params {
		span.SetData(k, v)
	}

	return span
}

// FinishSpan safely finishes a span, handling nil spans
func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}

// SetSpanError marks a span as failed and adds error information
func SetSpanError(span *sentry.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.Status = sentry.SpanStatusInternalError
	span.SetData("error", err.Error())
}

// notFound converts a missing row into a NotFound error naming the entity
func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHintf("%s %s was not found", entity, id).
			WithReportableDetails(map[string]any{
				"entity": entity,
				"id":     id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// markNumberTaken adds sequence.ErrNumberTaken when err violated the given number constraint
func markNumberTaken(err error, constraint string) error {
	translated := postgres.TranslateError(err, "insert")
	if ierr.IsAlreadyExists(translated) && postgres.ConstraintName(err) == constraint {
		return ierr.WithError(translated).Mark(sequence.ErrNumberTaken)
	}
	return translated
}

// checkAffected turns a zero-row update or delete into a NotFound error
func checkAffected(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return postgres.TranslateError(err, "rows_affected")
	}
	if rows == 0 {
		return ierr.NewError(fmt.Sprintf("%s not found", entity)).
			WithHintf("%s %s was not found", entity, id).
			WithReportableDetails(map[string]any{
				"entity": entity,
				"id":     id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// whereClause accumulates tenant scoped conditions written with ? placeholders and rebinds
// them for postgres
type whereClause struct {
	conds []string
	args  []interface{}
}

func newTenantWhere(ctx context.Context) *whereClause {
	w := &whereClause{}
	w.add("tenant_id = ?", types.GetTenantID(ctx))
	w.add("status = ?", types.StatusPublished)
	return w
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// build returns "SELECT ... FROM table WHERE ..." followed by suffix, rebound to $n placeholders
func (w *whereClause) build(prefix, suffix string, extra ...interface{}) (string, []interface{}) {
	query := prefix + " WHERE " + strings.Join(w.conds, " AND ")
	if suffix != "" {
		query += " " + suffix
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), append(append([]interface{}{}, w.args...), extra...)
}

// pageSuffix renders ORDER BY and LIMIT/OFFSET for a filter. orderBy must be a trusted column list.
func pageSuffix(filter types.BaseFilter, orderBy string) (string, []interface{}) {
	direction := "DESC"
	if filter.GetOrder() == types.OrderAsc {
		direction = "ASC"
	}
	cols := strings.Split(orderBy, ",")
	for i, c := range cols {
		cols[i] = strings.TrimSpace(c) + " " + direction
	}
	suffix := "ORDER BY " + strings.Join(cols, ", ")
	if filter.IsUnlimited() {
		return suffix + " OFFSET ?", []interface{}{filter.GetOffset()}
	}
	return suffix + " LIMIT ? OFFSET ?", []interface{}{filter.GetLimit(), filter.GetOffset()}
}
