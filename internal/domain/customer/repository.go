package customer

import (
	"context"

	"github.com/flexprice/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for customer data access
type Repository interface {
	Create(ctx context.Context, customer *Customer) error
	Get(ctx context.Context, id string) (*Customer, error)
	// GetForUpdate loads the customer and holds its row lock until the transaction ends
	GetForUpdate(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context, filter *types.CustomerFilter) ([]*Customer, error)
	Count(ctx context.Context, filter *types.CustomerFilter) (int, error)
	// Update writes the descriptive fields. The balance column is never written here.
	Update(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id string) error
	// AdjustBalance adds delta to the stored balance and returns the resulting balance
	AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error)
}
