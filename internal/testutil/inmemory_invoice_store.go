package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/domain/sequence"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository. Like the postgres repository it
// stores headers only and reads items through the item store.
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
	items *InMemoryInvoiceItemStore
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore(items *InMemoryInvoiceItemStore) *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		items:         items,
	}
}

func header(inv *invoice.Invoice) *invoice.Invoice {
	cp := inv.Copy()
	cp.Items = nil
	return cp
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	n, _ := s.InMemoryStore.Count(ctx, nil, func(ctx context.Context, other *invoice.Invoice, _ interface{}) bool {
		return other.TenantID == inv.TenantID && other.InvoiceNumber == inv.InvoiceNumber
	})
	if n > 0 {
		taken := ierr.NewError("invoice number already exists").
			WithHintf("Invoice number %s is already taken", inv.InvoiceNumber).
			Mark(ierr.ErrAlreadyExists)
		return ierr.WithError(taken).Mark(sequence.ErrNumberTaken)
	}
	return s.InMemoryStore.Create(ctx, inv.ID, header(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !CheckTenantFilter(ctx, inv.TenantID) {
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice %s was not found", id).
			WithReportableDetails(map[string]any{"invoice_id": id}).
			Mark(ierr.ErrNotFound)
	}

	result := inv.Copy()
	result.Items, err = s.items.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *InMemoryInvoiceStore) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.Get(ctx, id)
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if _, err := s.Get(ctx, inv.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, inv.ID, header(inv))
}

func (s *InMemoryInvoiceStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	sortFn := orderedBy(filter, func(inv *invoice.Invoice) (time.Time, time.Time, string) {
		return inv.InvoiceDate, inv.CreatedAt, inv.ID
	})
	items, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, sortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return inv.Copy()
	}), nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func (s *InMemoryInvoiceStore) ListOutstandingForUpdate(ctx context.Context, customerID string) ([]*invoice.Invoice, error) {
	filter := types.NewNoLimitInvoiceFilter()
	filter.CustomerID = customerID
	filter.Order = lo.ToPtr(types.OrderAsc)

	invoices, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return lo.Filter(invoices, func(inv *invoice.Invoice, _ int) bool {
		return inv.IsOutstanding()
	}), nil
}

// invoiceFilterFn implements filtering logic for invoices
func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	if !CheckTenantFilter(ctx, inv.TenantID) {
		return false
	}

	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}

	if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
		return false
	}

	if len(f.InvoiceIDs) > 0 && !lo.Contains(f.InvoiceIDs, inv.ID) {
		return false
	}

	if len(f.InvoiceStatus) > 0 && !lo.Contains(f.InvoiceStatus, inv.InvoiceStatus) {
		return false
	}

	if f.TimeRangeFilter != nil && !f.TimeRangeFilter.Contains(inv.InvoiceDate) {
		return false
	}

	return true
}

// InMemoryInvoiceItemStore implements invoice.ItemRepository
type InMemoryInvoiceItemStore struct {
	*InMemoryStore[*invoice.InvoiceItem]
}

func NewInMemoryInvoiceItemStore() *InMemoryInvoiceItemStore {
	return &InMemoryInvoiceItemStore{
		InMemoryStore: NewInMemoryStore[*invoice.InvoiceItem](),
	}
}

func (s *InMemoryInvoiceItemStore) CreateMany(ctx context.Context, items []*invoice.InvoiceItem) error {
	for _, item := range items {
		if err := s.InMemoryStore.Create(ctx, item.ID, item.Copy()); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryInvoiceItemStore) Update(ctx context.Context, item *invoice.InvoiceItem) error {
	return s.InMemoryStore.Update(ctx, item.ID, item.Copy())
}

func (s *InMemoryInvoiceItemStore) DeleteMany(ctx context.Context, ids []string) error {
	s.DeleteWhere(func(item *invoice.InvoiceItem) bool {
		return lo.Contains(ids, item.ID) && CheckTenantFilter(ctx, item.TenantID)
	})
	return nil
}

func (s *InMemoryInvoiceItemStore) DeleteByInvoice(ctx context.Context, invoiceID string) error {
	s.DeleteWhere(func(item *invoice.InvoiceItem) bool {
		return item.InvoiceID == invoiceID && CheckTenantFilter(ctx, item.TenantID)
	})
	return nil
}

func (s *InMemoryInvoiceItemStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*invoice.InvoiceItem, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, item *invoice.InvoiceItem, _ interface{}) bool {
		return item.InvoiceID == invoiceID && CheckTenantFilter(ctx, item.TenantID)
	}, nil)
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].ID < items[j].ID
	})
	return lo.Map(items, func(item *invoice.InvoiceItem, _ int) *invoice.InvoiceItem {
		return item.Copy()
	}), nil
}

func (s *InMemoryInvoiceItemStore) CountByProduct(ctx context.Context, productID string) (int, error) {
	return s.InMemoryStore.Count(ctx, nil, func(ctx context.Context, item *invoice.InvoiceItem, _ interface{}) bool {
		return item.ProductID != nil && *item.ProductID == productID && CheckTenantFilter(ctx, item.TenantID)
	})
}
