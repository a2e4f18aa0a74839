package postgres

import (
	"context"

	"github.com/flexprice/billing/internal/domain/payment"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/flexprice/billing/internal/types"
	"github.com/lib/pq"
)

const paymentColumns = `id, tenant_id, payment_number, customer_id, amount, payment_date, notes,
	status, created_at, updated_at, created_by, updated_by`

const allocationColumns = `id, tenant_id, payment_id, invoice_id, allocated_amount,
	status, created_at, updated_at, created_by, updated_by`

// PaymentNumberConstraint is the unique constraint guarding payment numbers per tenant
const PaymentNumberConstraint = "payments_tenant_number_key"

type paymentRepository struct {
	db          *postgres.DB
	allocations payment.AllocationRepository
	logger      *logger.Logger
}

func NewPaymentRepository(db *postgres.DB, allocations payment.AllocationRepository, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, allocations: allocations, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	span := StartRepositorySpan(ctx, "payment", "create", map[string]interface{}{
		"payment_id":     p.ID,
		"payment_number": p.PaymentNumber,
	})
	defer FinishSpan(span)

	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (
			:id, :tenant_id, :payment_number, :customer_id, :amount, :payment_date, :notes,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating payment",
		"payment_id", p.ID,
		"payment_number", p.PaymentNumber,
		"customer_id", p.CustomerID,
		"amount", p.Amount.String(),
	)

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, p); err != nil {
		SetSpanError(span, err)
		return markNumberTaken(err, PaymentNumberConstraint)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	return r.get(ctx, id, false)
}

func (r *paymentRepository) GetForUpdate(ctx context.Context, id string) (*payment.Payment, error) {
	return r.get(ctx, id, true)
}

func (r *paymentRepository) get(ctx context.Context, id string, lock bool) (*payment.Payment, error) {
	span := StartRepositorySpan(ctx, "payment", "get", map[string]interface{}{
		"payment_id": id,
		"for_update": lock,
	})
	defer FinishSpan(span)

	w := newTenantWhere(ctx)
	w.add("id = ?", id)
	suffix := ""
	if lock {
		suffix = "FOR UPDATE"
	}
	query, args := w.build("SELECT "+paymentColumns+" FROM payments", suffix)

	var p payment.Payment
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, args...); err != nil {
		SetSpanError(span, err)
		if nf := notFound(err, "payment", id); nf != nil {
			return nil, nf
		}
		return nil, postgres.TranslateError(err, "payment.get")
	}

	allocations, err := r.allocations.ListByPayment(ctx, id)
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}
	p.Allocations = allocations
	return &p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	span := StartRepositorySpan(ctx, "payment", "update", map[string]interface{}{
		"payment_id": p.ID,
	})
	defer FinishSpan(span)

	query := `
		UPDATE payments
		SET customer_id = :customer_id, amount = :amount, payment_date = :payment_date,
			notes = :notes, updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, p)
	if err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "payment.update")
	}
	return checkAffected(result, "payment", p.ID)
}

func (r *paymentRepository) Delete(ctx context.Context, id string) error {
	span := StartRepositorySpan(ctx, "payment", "delete", map[string]interface{}{
		"payment_id": id,
	})
	defer FinishSpan(span)

	w := newTenantWhere(ctx)
	w.add("id = ?", id)
	query, args := w.build("DELETE FROM payments", "")

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "payment.delete")
	}
	return checkAffected(result, "payment", id)
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	span := StartRepositorySpan(ctx, "payment", "list", nil)
	defer FinishSpan(span)

	suffix, extra := pageSuffix(filter, "payment_date, created_at, id")
	query, args := r.where(ctx, filter).build("SELECT "+paymentColumns+" FROM payments", suffix, extra...)

	var payments []*payment.Payment
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &payments, query, args...); err != nil {
		SetSpanError(span, err)
		return nil, postgres.TranslateError(err, "payment.list")
	}
	return payments, nil
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	query, args := r.where(ctx, filter).build("SELECT COUNT(*) FROM payments", "")

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, postgres.TranslateError(err, "payment.count")
	}
	return count, nil
}

func (r *paymentRepository) where(ctx context.Context, filter *types.PaymentFilter) *whereClause {
	w := newTenantWhere(ctx)
	if filter == nil {
		return w
	}
	if filter.CustomerID != "" {
		w.add("customer_id = ?", filter.CustomerID)
	}
	if len(filter.PaymentIDs) > 0 {
		w.add("id = ANY(?)", pq.Array(filter.PaymentIDs))
	}
	if filter.InvoiceID != "" {
		w.add("id IN (SELECT payment_id FROM payment_allocations WHERE invoice_id = ?)", filter.InvoiceID)
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			w.add("payment_date >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			w.add("payment_date <= ?", *filter.EndTime)
		}
	}
	return w
}

type allocationRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewAllocationRepository(db *postgres.DB, logger *logger.Logger) payment.AllocationRepository {
	return &allocationRepository{db: db, logger: logger}
}

func (r *allocationRepository) CreateMany(ctx context.Context, allocations []*payment.Allocation) error {
	if len(allocations) == 0 {
		return nil
	}

	query := `
		INSERT INTO payment_allocations (` + allocationColumns + `)
		VALUES (
			:id, :tenant_id, :payment_id, :invoice_id, :allocated_amount,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, allocations); err != nil {
		return postgres.TranslateError(err, "allocation.create_many")
	}
	return nil
}

func (r *allocationRepository) ListByPayment(ctx context.Context, paymentID string) ([]*payment.Allocation, error) {
	return r.list(ctx, "payment_id", paymentID)
}

func (r *allocationRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Allocation, error) {
	return r.list(ctx, "invoice_id", invoiceID)
}

func (r *allocationRepository) list(ctx context.Context, column, id string) ([]*payment.Allocation, error) {
	w := newTenantWhere(ctx)
	w.add(column+" = ?", id)
	query, args := w.build("SELECT "+allocationColumns+" FROM payment_allocations", "ORDER BY created_at ASC, id ASC")

	var allocations []*payment.Allocation
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &allocations, query, args...); err != nil {
		return nil, postgres.TranslateError(err, "allocation.list")
	}
	return allocations, nil
}

func (r *allocationRepository) DeleteByPayment(ctx context.Context, paymentID string) error {
	return r.delete(ctx, "payment_id", paymentID)
}

func (r *allocationRepository) DeleteByInvoice(ctx context.Context, invoiceID string) error {
	return r.delete(ctx, "invoice_id", invoiceID)
}

func (r *allocationRepository) delete(ctx context.Context, column, id string) error {
	w := newTenantWhere(ctx)
	w.add(column+" = ?", id)
	query, args := w.build("DELETE FROM payment_allocations", "")

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, args...); err != nil {
		return postgres.TranslateError(err, "allocation.delete")
	}
	return nil
}
