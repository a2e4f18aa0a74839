package postgres

import (
	"context"

	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/flexprice/billing/internal/types"
	"github.com/lib/pq"
)

const invoiceColumns = `id, tenant_id, invoice_number, customer_id, invoice_date, notes,
	total_amount, discount_amount, net_amount, paid_amount, balance_due, invoice_status,
	status, created_at, updated_at, created_by, updated_by`

// InvoiceNumberConstraint is the unique constraint guarding invoice numbers per tenant
const InvoiceNumberConstraint = "invoices_tenant_number_key"

type invoiceRepository struct {
	db     *postgres.DB
	items  invoice.ItemRepository
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, items invoice.ItemRepository, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, items: items, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	span := StartRepositorySpan(ctx, "invoice", "create", map[string]interface{}{
		"invoice_id":     inv.ID,
		"invoice_number": inv.InvoiceNumber,
	})
	defer FinishSpan(span)

	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES (
			:id, :tenant_id, :invoice_number, :customer_id, :invoice_date, :notes,
			:total_amount, :discount_amount, :net_amount, :paid_amount, :balance_due, :invoice_status,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"customer_id", inv.CustomerID,
	)

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, inv); err != nil {
		SetSpanError(span, err)
		return markNumberTaken(err, InvoiceNumberConstraint)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.get(ctx, id, false)
}

func (r *invoiceRepository) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.get(ctx, id, true)
}

func (r *invoiceRepository) get(ctx context.Context, id string, lock bool) (*invoice.Invoice, error) {
	span := StartRepositorySpan(ctx, "invoice", "get", map[string]interface{}{
		"invoice_id": id,
		"for_update": lock,
	})
	defer FinishSpan(span)

	w := newTenantWhere(ctx)
	w.add("id = ?", id)
	suffix := ""
	if lock {
		suffix = "FOR UPDATE"
	}
	query, args := w.build("SELECT "+invoiceColumns+" FROM invoices", suffix)

	var inv invoice.Invoice
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &inv, query, args...); err != nil {
		SetSpanError(span, err)
		if nf := notFound(err, "invoice", id); nf != nil {
			return nil, nf
		}
		return nil, postgres.TranslateError(err, "invoice.get")
	}

	items, err := r.items.ListByInvoice(ctx, id)
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}
	inv.Items = items
	return &inv, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	span := StartRepositorySpan(ctx, "invoice", "update", map[string]interface{}{
		"invoice_id": inv.ID,
	})
	defer FinishSpan(span)

	query := `
		UPDATE invoices
		SET customer_id = :customer_id, invoice_date = :invoice_date, notes = :notes,
			total_amount = :total_amount, discount_amount = :discount_amount,
			net_amount = :net_amount, paid_amount = :paid_amount, balance_due = :balance_due,
			invoice_status = :invoice_status, updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, inv)
	if err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "invoice.update")
	}
	return checkAffected(result, "invoice", inv.ID)
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	span := StartRepositorySpan(ctx, "invoice", "delete", map[string]interface{}{
		"invoice_id": id,
	})
	defer FinishSpan(span)

	w := newTenantWhere(ctx)
	w.add("id = ?", id)
	query, args := w.build("DELETE FROM invoices", "")

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "invoice.delete")
	}
	return checkAffected(result, "invoice", id)
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	span := StartRepositorySpan(ctx, "invoice", "list", nil)
	defer FinishSpan(span)

	suffix, extra := pageSuffix(filter, "invoice_date, created_at, id")
	query, args := r.where(ctx, filter).build("SELECT "+invoiceColumns+" FROM invoices", suffix, extra...)

	var invoices []*invoice.Invoice
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &invoices, query, args...); err != nil {
		SetSpanError(span, err)
		return nil, postgres.TranslateError(err, "invoice.list")
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	query, args := r.where(ctx, filter).build("SELECT COUNT(*) FROM invoices", "")

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, postgres.TranslateError(err, "invoice.count")
	}
	return count, nil
}

func (r *invoiceRepository) ListOutstandingForUpdate(ctx context.Context, customerID string) ([]*invoice.Invoice, error) {
	span := StartRepositorySpan(ctx, "invoice", "list_outstanding", map[string]interface{}{
		"customer_id": customerID,
	})
	defer FinishSpan(span)

	w := newTenantWhere(ctx)
	w.add("customer_id = ?", customerID)
	w.add("invoice_status <> ?", types.InvoiceStatusPaid)
	w.add("balance_due > 0")
	query, args := w.build(
		"SELECT "+invoiceColumns+" FROM invoices",
		"ORDER BY invoice_date ASC, created_at ASC, id ASC FOR UPDATE",
	)

	var invoices []*invoice.Invoice
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &invoices, query, args...); err != nil {
		SetSpanError(span, err)
		return nil, postgres.TranslateError(err, "invoice.list_outstanding")
	}
	return invoices, nil
}

func (r *invoiceRepository) where(ctx context.Context, filter *types.InvoiceFilter) *whereClause {
	w := newTenantWhere(ctx)
	if filter == nil {
		return w
	}
	if filter.CustomerID != "" {
		w.add("customer_id = ?", filter.CustomerID)
	}
	if len(filter.InvoiceIDs) > 0 {
		w.add("id = ANY(?)", pq.Array(filter.InvoiceIDs))
	}
	if len(filter.InvoiceStatus) > 0 {
		statuses := make([]string, len(filter.InvoiceStatus))
		for i, s := range filter.InvoiceStatus {
			statuses[i] = s.String()
		}
		w.add("invoice_status = ANY(?)", pq.Array(statuses))
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			w.add("invoice_date >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			w.add("invoice_date <= ?", *filter.EndTime)
		}
	}
	return w
}
