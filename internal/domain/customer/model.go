package customer

import (
	"github.com/flexprice/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Customer represents a customer in the system
type Customer struct {
	// ID is the unique identifier for the customer
	ID string `db:"id" json:"id"`

	// Code is the tenant-unique business code of the customer
	Code string `db:"code" json:"code"`

	// Name is the name of the customer
	Name string `db:"name" json:"name"`

	// Email is the email of the customer
	Email string `db:"email" json:"email"`

	// Balance is what the customer owes. Positive means money is owed, negative is standing
	// credit. Only the invoice and payment ledgers change it.
	Balance decimal.Decimal `db:"balance" json:"balance"`

	types.BaseModel
}

// Copy returns a detached copy of the customer
func (c *Customer) Copy() *Customer {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
