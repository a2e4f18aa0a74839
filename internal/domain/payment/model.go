package payment

import (
	"time"

	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Payment is money received from a customer
type Payment struct {
	ID            string          `db:"id" json:"id"`
	PaymentNumber string          `db:"payment_number" json:"payment_number"`
	CustomerID    string          `db:"customer_id" json:"customer_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentDate   time.Time       `db:"payment_date" json:"payment_date"`
	Notes         string          `db:"notes" json:"notes,omitempty"`
	Allocations   []*Allocation   `db:"-" json:"allocations,omitempty"`
	types.BaseModel
}

// Allocation records how much of one payment settles one invoice
type Allocation struct {
	ID              string          `db:"id" json:"id"`
	PaymentID       string          `db:"payment_id" json:"payment_id"`
	InvoiceID       string          `db:"invoice_id" json:"invoice_id"`
	AllocatedAmount decimal.Decimal `db:"allocated_amount" json:"allocated_amount"`
	types.BaseModel
}

// AllocatedTotal sums the payment's allocations
func (p *Payment) AllocatedTotal() decimal.Decimal {
	return lo.Reduce(p.Allocations, func(acc decimal.Decimal, a *Allocation, _ int) decimal.Decimal {
		return acc.Add(a.AllocatedAmount)
	}, decimal.Zero)
}

// Unallocated is the standing credit part of the payment
func (p *Payment) Unallocated() decimal.Decimal {
	return p.Amount.Sub(p.AllocatedTotal())
}

func (p *Payment) Copy() *Payment {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Allocations = lo.Map(p.Allocations, func(a *Allocation, _ int) *Allocation {
		return a.Copy()
	})
	return &cp
}

func (a *Allocation) Copy() *Allocation {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
