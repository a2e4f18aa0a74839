package payment

import (
	"context"

	"github.com/flexprice/billing/internal/types"
)

// Repository defines the interface for payment persistence operations
type Repository interface {
	// Create inserts the payment row. A taken payment number fails with an error marked
	// both sequence.ErrNumberTaken and errors.ErrAlreadyExists.
	Create(ctx context.Context, payment *Payment) error
	// Get retrieves a payment with its allocations
	Get(ctx context.Context, id string) (*Payment, error)
	// GetForUpdate retrieves a payment with its allocations and locks the payment row
	GetForUpdate(ctx context.Context, id string) (*Payment, error)
	Update(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
	Count(ctx context.Context, filter *types.PaymentFilter) (int, error)
}

// AllocationRepository persists payment allocations
type AllocationRepository interface {
	CreateMany(ctx context.Context, allocations []*Allocation) error
	ListByPayment(ctx context.Context, paymentID string) ([]*Allocation, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Allocation, error)
	DeleteByPayment(ctx context.Context, paymentID string) error
	DeleteByInvoice(ctx context.Context, invoiceID string) error
}
