package testutil

import (
	"context"
	"time"

	"github.com/flexprice/billing/internal/domain/product"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
)

// InMemoryProductStore implements product.Repository
type InMemoryProductStore struct {
	*InMemoryStore[*product.Product]
}

func NewInMemoryProductStore() *InMemoryProductStore {
	return &InMemoryProductStore{
		InMemoryStore: NewInMemoryStore[*product.Product](),
	}
}

func (s *InMemoryProductStore) Create(ctx context.Context, p *product.Product) error {
	if s.codeTaken(ctx, p) {
		return productCodeTaken(p.Code)
	}
	return s.InMemoryStore.Create(ctx, p.ID, p.Copy())
}

func (s *InMemoryProductStore) Get(ctx context.Context, id string) (*product.Product, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !CheckTenantFilter(ctx, p.TenantID) {
		return nil, ierr.NewError("product not found").
			WithHintf("Product %s was not found", id).
			WithReportableDetails(map[string]any{"product_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return p.Copy(), nil
}

func (s *InMemoryProductStore) List(ctx context.Context, filter *types.ProductFilter) ([]*product.Product, error) {
	if filter == nil {
		filter = types.NewProductFilter()
	}
	sortFn := orderedBy(filter, func(p *product.Product) (time.Time, time.Time, string) {
		return p.CreatedAt, p.CreatedAt, p.ID
	})
	items, err := s.InMemoryStore.List(ctx, filter, productFilterFn, sortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *product.Product, _ int) *product.Product {
		return p.Copy()
	}), nil
}

func (s *InMemoryProductStore) Count(ctx context.Context, filter *types.ProductFilter) (int, error) {
	if filter == nil {
		filter = types.NewProductFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, productFilterFn)
}

func (s *InMemoryProductStore) Update(ctx context.Context, p *product.Product) error {
	if _, err := s.Get(ctx, p.ID); err != nil {
		return err
	}
	if s.codeTaken(ctx, p) {
		return productCodeTaken(p.Code)
	}
	return s.InMemoryStore.Update(ctx, p.ID, p.Copy())
}

func (s *InMemoryProductStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryProductStore) codeTaken(ctx context.Context, p *product.Product) bool {
	n, _ := s.InMemoryStore.Count(ctx, nil, func(ctx context.Context, other *product.Product, _ interface{}) bool {
		return other.TenantID == p.TenantID && other.Code == p.Code && other.ID != p.ID
	})
	return n > 0
}

func productCodeTaken(code string) error {
	return ierr.NewError("product code already exists").
		WithHintf("A product with code %s already exists", code).
		Mark(ierr.ErrAlreadyExists)
}

func productFilterFn(ctx context.Context, p *product.Product, filter interface{}) bool {
	if !CheckTenantFilter(ctx, p.TenantID) {
		return false
	}

	f, ok := filter.(*types.ProductFilter)
	if !ok || f == nil {
		return true
	}

	if f.Code != "" && p.Code != f.Code {
		return false
	}

	if len(f.ProductIDs) > 0 && !lo.Contains(f.ProductIDs, p.ID) {
		return false
	}

	return true
}
