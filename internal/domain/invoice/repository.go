package invoice

import (
	"context"

	"github.com/flexprice/billing/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// Create inserts the invoice header. A taken invoice number fails with an error
	// marked both sequence.ErrNumberTaken and errors.ErrAlreadyExists.
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID with its items
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetForUpdate retrieves an invoice with its items and locks the invoice row
	GetForUpdate(ctx context.Context, id string) (*Invoice, error)

	// Update writes the header fields of an existing invoice
	Update(ctx context.Context, invoice *Invoice) error

	// Delete removes the invoice header. Items and allocations must be removed first.
	Delete(ctx context.Context, id string) error

	// List retrieves invoices based on filter criteria, without items
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices based on filter criteria
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// ListOutstandingForUpdate returns the customer's invoices that still have a balance due,
	// oldest first (invoice date, then creation order), and locks them
	ListOutstandingForUpdate(ctx context.Context, customerID string) ([]*Invoice, error)
}

// ItemRepository persists invoice items
type ItemRepository interface {
	CreateMany(ctx context.Context, items []*InvoiceItem) error
	Update(ctx context.Context, item *InvoiceItem) error
	DeleteMany(ctx context.Context, ids []string) error
	DeleteByInvoice(ctx context.Context, invoiceID string) error
	// ListByInvoice returns the invoice's items ordered by position
	ListByInvoice(ctx context.Context, invoiceID string) ([]*InvoiceItem, error)
	// CountByProduct counts items referencing the product across all invoices
	CountByProduct(ctx context.Context, productID string) (int, error)
}
