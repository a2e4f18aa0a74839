package postgres

import (
	"context"

	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/lib/pq"
)

const invoiceItemColumns = `id, tenant_id, invoice_id, product_id, description, quantity, unit_price,
	amount, position, status, created_at, updated_at, created_by, updated_by`

type invoiceItemRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceItemRepository(db *postgres.DB, logger *logger.Logger) invoice.ItemRepository {
	return &invoiceItemRepository{db: db, logger: logger}
}

func (r *invoiceItemRepository) CreateMany(ctx context.Context, items []*invoice.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}

	span := StartRepositorySpan(ctx, "invoice_item", "create_many", map[string]interface{}{
		"count": len(items),
	})
	defer FinishSpan(span)

	query := `
		INSERT INTO invoice_items (` + invoiceItemColumns + `)
		VALUES (
			:id, :tenant_id, :invoice_id, :product_id, :description, :quantity, :unit_price,
			:amount, :position, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	// sqlx expands a slice argument into a multi-row VALUES list
	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, items); err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "invoice_item.create_many")
	}
	return nil
}

func (r *invoiceItemRepository) Update(ctx context.Context, item *invoice.InvoiceItem) error {
	span := StartRepositorySpan(ctx, "invoice_item", "update", map[string]interface{}{
		"item_id": item.ID,
	})
	defer FinishSpan(span)

	query := `
		UPDATE invoice_items
		SET product_id = :product_id, description = :description, quantity = :quantity,
			unit_price = :unit_price, amount = :amount, position = :position,
			updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, item)
	if err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "invoice_item.update")
	}
	return checkAffected(result, "invoice item", item.ID)
}

func (r *invoiceItemRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	w := newTenantWhere(ctx)
	w.add("id = ANY(?)", pq.Array(ids))
	query, args := w.build("DELETE FROM invoice_items", "")

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, args...); err != nil {
		return postgres.TranslateError(err, "invoice_item.delete_many")
	}
	return nil
}

func (r *invoiceItemRepository) DeleteByInvoice(ctx context.Context, invoiceID string) error {
	w := newTenantWhere(ctx)
	w.add("invoice_id = ?", invoiceID)
	query, args := w.build("DELETE FROM invoice_items", "")

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, args...); err != nil {
		return postgres.TranslateError(err, "invoice_item.delete_by_invoice")
	}
	return nil
}

func (r *invoiceItemRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*invoice.InvoiceItem, error) {
	w := newTenantWhere(ctx)
	w.add("invoice_id = ?", invoiceID)
	query, args := w.build("SELECT "+invoiceItemColumns+" FROM invoice_items", "ORDER BY position ASC")

	var items []*invoice.InvoiceItem
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &items, query, args...); err != nil {
		return nil, postgres.TranslateError(err, "invoice_item.list")
	}
	return items, nil
}

func (r *invoiceItemRepository) CountByProduct(ctx context.Context, productID string) (int, error) {
	w := newTenantWhere(ctx)
	w.add("product_id = ?", productID)
	query, args := w.build("SELECT COUNT(*) FROM invoice_items", "")

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, postgres.TranslateError(err, "invoice_item.count_by_product")
	}
	return count, nil
}
