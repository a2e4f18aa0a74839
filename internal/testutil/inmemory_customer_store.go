package testutil

import (
	"context"
	"strings"
	"time"

	"github.com/flexprice/billing/internal/domain/customer"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InMemoryCustomerStore implements customer.Repository
type InMemoryCustomerStore struct {
	*InMemoryStore[*customer.Customer]
}

// NewInMemoryCustomerStore creates a new in-memory customer store
func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{
		InMemoryStore: NewInMemoryStore[*customer.Customer](),
	}
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	if s.codeTaken(ctx, c) {
		return ierr.NewError("customer code already exists").
			WithHintf("A customer with code %s already exists", c.Code).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, c.ID, c.Copy())
}

func (s *InMemoryCustomerStore) Get(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !CheckTenantFilter(ctx, c.TenantID) {
		return nil, customerNotFound(id)
	}
	return c.Copy(), nil
}

func (s *InMemoryCustomerStore) GetForUpdate(ctx context.Context, id string) (*customer.Customer, error) {
	return s.Get(ctx, id)
}

func (s *InMemoryCustomerStore) List(ctx context.Context, filter *types.CustomerFilter) ([]*customer.Customer, error) {
	if filter == nil {
		filter = types.NewCustomerFilter()
	}
	sortFn := orderedBy(filter, func(c *customer.Customer) (time.Time, time.Time, string) {
		return c.CreatedAt, c.CreatedAt, c.ID
	})
	items, err := s.InMemoryStore.List(ctx, filter, customerFilterFn, sortFn)
	if err != nil {
		return nil, err
	}

	return lo.Map(items, func(c *customer.Customer, _ int) *customer.Customer {
		return c.Copy()
	}), nil
}

func (s *InMemoryCustomerStore) Count(ctx context.Context, filter *types.CustomerFilter) (int, error) {
	if filter == nil {
		filter = types.NewCustomerFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, customerFilterFn)
}

func (s *InMemoryCustomerStore) Update(ctx context.Context, c *customer.Customer) error {
	existing, err := s.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	if s.codeTaken(ctx, c) {
		return ierr.NewError("customer code already exists").
			WithHintf("A customer with code %s already exists", c.Code).
			Mark(ierr.ErrAlreadyExists)
	}

	updated := c.Copy()
	updated.Balance = existing.Balance
	return s.InMemoryStore.Update(ctx, c.ID, updated)
}

func (s *InMemoryCustomerStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryCustomerStore) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	c.Balance = c.Balance.Add(delta)
	if err := s.InMemoryStore.Update(ctx, id, c); err != nil {
		return decimal.Zero, err
	}
	return c.Balance, nil
}

func (s *InMemoryCustomerStore) codeTaken(ctx context.Context, c *customer.Customer) bool {
	others, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, other *customer.Customer, _ interface{}) bool {
		return other.TenantID == c.TenantID && other.Code == c.Code && other.ID != c.ID
	}, nil)
	return len(others) > 0
}

func customerNotFound(id string) error {
	return ierr.NewError("customer not found").
		WithHintf("Customer %s was not found", id).
		WithReportableDetails(map[string]any{"customer_id": id}).
		Mark(ierr.ErrNotFound)
}

// customerFilterFn implements filtering logic for customers
func customerFilterFn(ctx context.Context, c *customer.Customer, filter interface{}) bool {
	if !CheckTenantFilter(ctx, c.TenantID) {
		return false
	}

	f, ok := filter.(*types.CustomerFilter)
	if !ok || f == nil {
		return true
	}

	if f.Code != "" && c.Code != f.Code {
		return false
	}

	if f.Email != "" && !strings.EqualFold(c.Email, f.Email) {
		return false
	}

	if len(f.CustomerIDs) > 0 && !lo.Contains(f.CustomerIDs, c.ID) {
		return false
	}

	return true
}
