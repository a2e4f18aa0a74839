package postgres

import (
	"context"

	"github.com/flexprice/billing/internal/domain/product"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/flexprice/billing/internal/types"
	"github.com/lib/pq"
)

const productColumns = `id, tenant_id, code, name, unit_price, status, created_at, updated_at, created_by, updated_by`

type productRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewProductRepository(db *postgres.DB, logger *logger.Logger) product.Repository {
	return &productRepository{db: db, logger: logger}
}

func (r *productRepository) Create(ctx context.Context, p *product.Product) error {
	span := StartRepositorySpan(ctx, "product", "create", map[string]interface{}{
		"product_id": p.ID,
	})
	defer FinishSpan(span)

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (
			:id, :tenant_id, :code, :name, :unit_price, :status,
			:created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, p); err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "product.create")
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	span := StartRepositorySpan(ctx, "product", "get", map[string]interface{}{
		"product_id": id,
	})
	defer FinishSpan(span)

	w := newTenantWhere(ctx)
	w.add("id = ?", id)
	query, args := w.build("SELECT "+productColumns+" FROM products", "")

	var p product.Product
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, args...); err != nil {
		SetSpanError(span, err)
		if nf := notFound(err, "product", id); nf != nil {
			return nil, nf
		}
		return nil, postgres.TranslateError(err, "product.get")
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context, filter *types.ProductFilter) ([]*product.Product, error) {
	span := StartRepositorySpan(ctx, "product", "list", nil)
	defer FinishSpan(span)

	suffix, extra := pageSuffix(filter, "created_at, id")
	query, args := r.where(ctx, filter).build("SELECT "+productColumns+" FROM products", suffix, extra...)

	var products []*product.Product
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &products, query, args...); err != nil {
		SetSpanError(span, err)
		return nil, postgres.TranslateError(err, "product.list")
	}
	return products, nil
}

func (r *productRepository) Count(ctx context.Context, filter *types.ProductFilter) (int, error) {
	query, args := r.where(ctx, filter).build("SELECT COUNT(*) FROM products", "")

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, postgres.TranslateError(err, "product.count")
	}
	return count, nil
}

func (r *productRepository) where(ctx context.Context, filter *types.ProductFilter) *whereClause {
	w := newTenantWhere(ctx)
	if filter == nil {
		return w
	}
	if len(filter.ProductIDs) > 0 {
		w.add("id = ANY(?)", pq.Array(filter.ProductIDs))
	}
	if filter.Code != "" {
		w.add("code = ?", filter.Code)
	}
	return w
}

func (r *productRepository) Update(ctx context.Context, p *product.Product) error {
	span := StartRepositorySpan(ctx, "product", "update", map[string]interface{}{
		"product_id": p.ID,
	})
	defer FinishSpan(span)

	query := `
		UPDATE products
		SET code = :code, name = :name, unit_price = :unit_price,
			updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, p)
	if err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "product.update")
	}
	return checkAffected(result, "product", p.ID)
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	span := StartRepositorySpan(ctx, "product", "delete", map[string]interface{}{
		"product_id": id,
	})
	defer FinishSpan(span)

	w := newTenantWhere(ctx)
	w.add("id = ?", id)
	query, args := w.build("DELETE FROM products", "")

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		SetSpanError(span, err)
		return postgres.TranslateError(err, "product.delete")
	}
	return checkAffected(result, "product", id)
}
