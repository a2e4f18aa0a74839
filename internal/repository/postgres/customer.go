package postgres

import (
	"context"

	"github.com/flexprice/billing/internal/domain/customer"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/flexprice/billing/internal/types"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const customerColumns = `id, tenant_id, code, name, email, balance, status, created_at, updated_at, created_by, updated_by`

type customerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger) customer.Repository {
	return &customerRepository{db: db, logger: logger}
}

func (r *customerRepository) Create(ctx context.Context, c *customer.Customer) error {
	span := StartRepositorySpan(ctx, "customer", "create", map[string]interface{}{
		"customer_id": c.ID,
	})
	defer FinishSpan(span)

	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES (
			:id, :tenant_id, :code, :name, :email, :balance, :status,
			:created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating customer",
		"customer_id", c.ID,
		"tenant_id", c.TenantID,
	)

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, c); err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "customer.create")
	}
	return nil
}

func (r *customerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	return r.get(ctx, id, false)
}

func (r *customerRepository) GetForUpdate(ctx context.Context, id string) (*customer.Customer, error) {
	return r.get(ctx, id, true)
}

func (r *customerRepository) get(ctx context.Context, id string, lock bool) (*customer.Customer, error) {
	span := StartRepositorySpan(ctx, "customer", "get", map[string]interface{}{
		"customer_id": id,
		"for_update":  lock,
	})
	defer FinishSpan(span)

	w := newTenantWhere(ctx)
	w.add("id = ?", id)
	suffix := ""
	if lock {
		suffix = "FOR UPDATE"
	}
	query, args := w.build("SELECT "+customerColumns+" FROM customers", suffix)

	var c customer.Customer
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &c, query, args...); err != nil {
		SetSpanError(span, err)
		if nf := notFound(err, "customer", id); nf != nil {
			return nil, nf
		}
		return nil, postgres.TranslateError(err, "customer.get")
	}
	return &c, nil
}

func (r *customerRepository) List(ctx context.Context, filter *types.CustomerFilter) ([]*customer.Customer, error) {
	span := StartRepositorySpan(ctx, "customer", "list", nil)
	defer FinishSpan(span)

	w := r.where(ctx, filter)
	suffix, extra := pageSuffix(filter, "created_at, id")
	query, args := w.build("SELECT "+customerColumns+" FROM customers", suffix, extra...)

	var customers []*customer.Customer
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &customers, query, args...); err != nil {
		SetSpanError(span, err)
		return nil, postgres.TranslateError(err, "customer.list")
	}
	return customers, nil
}

func (r *customerRepository) Count(ctx context.Context, filter *types.CustomerFilter) (int, error) {
	span := StartRepositorySpan(ctx, "customer", "count", nil)
	defer FinishSpan(span)

	query, args := r.where(ctx, filter).build("SELECT COUNT(*) FROM customers", "")

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		SetSpanError(span, err)
		return 0, postgres.TranslateError(err, "customer.count")
	}
	return count, nil
}

func (r *customerRepository) where(ctx context.Context, filter *types.CustomerFilter) *whereClause {
	w := newTenantWhere(ctx)
	if filter == nil {
		return w
	}
	if len(filter.CustomerIDs) > 0 {
		w.add("id = ANY(?)", pq.Array(filter.CustomerIDs))
	}
	if filter.Code != "" {
		w.add("code = ?", filter.Code)
	}
	if filter.Email != "" {
		w.add("email = ?", filter.Email)
	}
	return w
}

func (r *customerRepository) Update(ctx context.Context, c *customer.Customer) error {
	span := StartRepositorySpan(ctx, "customer", "update", map[string]interface{}{
		"customer_id": c.ID,
	})
	defer FinishSpan(span)

	query := `
		UPDATE customers
		SET code = :code, name = :name, email = :email,
			updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, c)
	if err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "customer.update")
	}
	return checkAffected(result, "customer", c.ID)
}

func (r *customerRepository) Delete(ctx context.Context, id string) error {
	span := StartRepositorySpan(ctx, "customer", "delete", map[string]interface{}{
		"customer_id": id,
	})
	defer FinishSpan(span)

	w := newTenantWhere(ctx)
	w.add("id = ?", id)
	query, args := w.build("DELETE FROM customers", "")

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "customer.delete")
	}
	return checkAffected(result, "customer", id)
}

func (r *customerRepository) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	span := StartRepositorySpan(ctx, "customer", "adjust_balance", map[string]interface{}{
		"customer_id": id,
		"delta":       delta.String(),
	})
	defer FinishSpan(span)

	query := `
		UPDATE customers
		SET balance = balance + $1, updated_at = NOW(), updated_by = $2
		WHERE id = $3 AND tenant_id = $4
		RETURNING balance`

	r.logger.Debugw("adjusting customer balance",
		"customer_id", id,
		"delta", delta.String(),
	)

	var balance decimal.Decimal
	err := r.db.GetQuerier(ctx).GetContext(ctx, &balance, query, delta, types.GetUserID(ctx), id, types.GetTenantID(ctx))
	if err != nil {
		SetSpanError(span, err)
		if nf := notFound(err, "customer", id); nf != nil {
			return decimal.Zero, nf
		}
		return decimal.Zero, postgres.TranslateError(err, "customer.adjust_balance")
	}
	return balance, nil
}
