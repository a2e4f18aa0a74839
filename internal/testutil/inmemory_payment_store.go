package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/flexprice/billing/internal/domain/payment"
	"github.com/flexprice/billing/internal/domain/sequence"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
	allocations *InMemoryAllocationStore
}

// NewInMemoryPaymentStore creates a new in-memory payment store
func NewInMemoryPaymentStore(allocations *InMemoryAllocationStore) *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
		allocations:   allocations,
	}
}

func paymentRow(p *payment.Payment) *payment.Payment {
	cp := p.Copy()
	cp.Allocations = nil
	return cp
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	n, _ := s.InMemoryStore.Count(ctx, nil, func(ctx context.Context, other *payment.Payment, _ interface{}) bool {
		return other.TenantID == p.TenantID && other.PaymentNumber == p.PaymentNumber
	})
	if n > 0 {
		taken := ierr.NewError("payment number already exists").
			WithHintf("Payment number %s is already taken", p.PaymentNumber).
			Mark(ierr.ErrAlreadyExists)
		return ierr.WithError(taken).Mark(sequence.ErrNumberTaken)
	}
	return s.InMemoryStore.Create(ctx, p.ID, paymentRow(p))
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !CheckTenantFilter(ctx, p.TenantID) {
		return nil, ierr.NewError("payment not found").
			WithHintf("Payment %s was not found", id).
			WithReportableDetails(map[string]any{"payment_id": id}).
			Mark(ierr.ErrNotFound)
	}

	result := p.Copy()
	result.Allocations, err = s.allocations.ListByPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *InMemoryPaymentStore) GetForUpdate(ctx context.Context, id string) (*payment.Payment, error) {
	return s.Get(ctx, id)
}

func (s *InMemoryPaymentStore) Update(ctx context.Context, p *payment.Payment) error {
	if _, err := s.Get(ctx, p.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, p.ID, paymentRow(p))
}

func (s *InMemoryPaymentStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryPaymentStore) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	sortFn := orderedBy(filter, func(p *payment.Payment) (time.Time, time.Time, string) {
		return p.PaymentDate, p.CreatedAt, p.ID
	})
	items, err := s.InMemoryStore.List(ctx, filter, s.filterFn, sortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *payment.Payment, _ int) *payment.Payment {
		return p.Copy()
	}), nil
}

func (s *InMemoryPaymentStore) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, s.filterFn)
}

func (s *InMemoryPaymentStore) filterFn(ctx context.Context, p *payment.Payment, filter interface{}) bool {
	if !CheckTenantFilter(ctx, p.TenantID) {
		return false
	}

	f, ok := filter.(*types.PaymentFilter)
	if !ok || f == nil {
		return true
	}

	if f.CustomerID != "" && p.CustomerID != f.CustomerID {
		return false
	}

	if len(f.PaymentIDs) > 0 && !lo.Contains(f.PaymentIDs, p.ID) {
		return false
	}

	if f.InvoiceID != "" {
		n, _ := s.allocations.Count(ctx, nil, func(ctx context.Context, a *payment.Allocation, _ interface{}) bool {
			return a.PaymentID == p.ID && a.InvoiceID == f.InvoiceID
		})
		if n == 0 {
			return false
		}
	}

	if f.TimeRangeFilter != nil && !f.TimeRangeFilter.Contains(p.PaymentDate) {
		return false
	}

	return true
}

// InMemoryAllocationStore implements payment.AllocationRepository
type InMemoryAllocationStore struct {
	*InMemoryStore[*payment.Allocation]
}

func NewInMemoryAllocationStore() *InMemoryAllocationStore {
	return &InMemoryAllocationStore{
		InMemoryStore: NewInMemoryStore[*payment.Allocation](),
	}
}

func (s *InMemoryAllocationStore) CreateMany(ctx context.Context, allocations []*payment.Allocation) error {
	for _, a := range allocations {
		if err := s.InMemoryStore.Create(ctx, a.ID, a.Copy()); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryAllocationStore) ListByPayment(ctx context.Context, paymentID string) ([]*payment.Allocation, error) {
	return s.list(ctx, func(a *payment.Allocation) bool { return a.PaymentID == paymentID })
}

func (s *InMemoryAllocationStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Allocation, error) {
	return s.list(ctx, func(a *payment.Allocation) bool { return a.InvoiceID == invoiceID })
}

func (s *InMemoryAllocationStore) list(ctx context.Context, match func(*payment.Allocation) bool) ([]*payment.Allocation, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, a *payment.Allocation, _ interface{}) bool {
		return match(a) && CheckTenantFilter(ctx, a.TenantID)
	}, nil)
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return lo.Map(items, func(a *payment.Allocation, _ int) *payment.Allocation {
		return a.Copy()
	}), nil
}

func (s *InMemoryAllocationStore) DeleteByPayment(ctx context.Context, paymentID string) error {
	s.DeleteWhere(func(a *payment.Allocation) bool {
		return a.PaymentID == paymentID && CheckTenantFilter(ctx, a.TenantID)
	})
	return nil
}

func (s *InMemoryAllocationStore) DeleteByInvoice(ctx context.Context, invoiceID string) error {
	s.DeleteWhere(func(a *payment.Allocation) bool {
		return a.InvoiceID == invoiceID && CheckTenantFilter(ctx, a.TenantID)
	})
	return nil
}
