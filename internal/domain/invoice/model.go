package invoice

import (
	"time"

	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Invoice represents the invoice domain model
type Invoice struct {
	ID             string              `db:"id" json:"id"`
	InvoiceNumber  string              `db:"invoice_number" json:"invoice_number"`
	CustomerID     string              `db:"customer_id" json:"customer_id"`
	InvoiceDate    time.Time           `db:"invoice_date" json:"invoice_date"`
	Notes          string              `db:"notes" json:"notes,omitempty"`
	TotalAmount    decimal.Decimal     `db:"total_amount" json:"total_amount"`
	DiscountAmount decimal.Decimal     `db:"discount_amount" json:"discount_amount"`
	NetAmount      decimal.Decimal     `db:"net_amount" json:"net_amount"`
	PaidAmount     decimal.Decimal     `db:"paid_amount" json:"paid_amount"`
	BalanceDue     decimal.Decimal     `db:"balance_due" json:"balance_due"`
	InvoiceStatus  types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	Items          []*InvoiceItem      `db:"-" json:"items,omitempty"`
	types.BaseModel
}

// AmountScale is the number of decimal places every stored amount keeps
const AmountScale = 6

// LineAmount is quantity times unit price at storage precision
func LineAmount(item *InvoiceItem) decimal.Decimal {
	return item.Quantity.Mul(item.UnitPrice).Round(AmountScale)
}

// ComputeTotals returns the subtotal of the items and the net amount after discount.
// The net amount never goes below zero.
func ComputeTotals(items []*InvoiceItem, discount decimal.Decimal) (total decimal.Decimal, net decimal.Decimal) {
	total = lo.Reduce(items, func(acc decimal.Decimal, item *InvoiceItem, _ int) decimal.Decimal {
		return acc.Add(LineAmount(item))
	}, decimal.Zero)
	net = decimal.Max(decimal.Zero, total.Sub(discount))
	return total, net
}

// ComputeBalanceDue returns the unpaid remainder of net, never below zero
func ComputeBalanceDue(net, paid decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, net.Sub(paid))
}

// DeriveStatus is the only source of an invoice status
func DeriveStatus(paid, balanceDue decimal.Decimal) types.InvoiceStatus {
	switch {
	case !balanceDue.IsPositive():
		return types.InvoiceStatusPaid
	case paid.IsPositive():
		return types.InvoiceStatusPartial
	default:
		return types.InvoiceStatusPending
	}
}

// Recalculate refreshes item amounts, totals, balance due and status from the items,
// the discount and the paid amount
func (i *Invoice) Recalculate() {
	for idx, item := range i.Items {
		item.Amount = LineAmount(item)
		item.Position = idx
	}
	i.TotalAmount, i.NetAmount = ComputeTotals(i.Items, i.DiscountAmount)
	i.refreshBalance()
}

// ApplyPayment records amount as paid on the invoice
func (i *Invoice) ApplyPayment(amount decimal.Decimal) {
	i.PaidAmount = i.PaidAmount.Add(amount)
	i.refreshBalance()
}

// ReversePayment takes a previously applied amount back off the invoice
func (i *Invoice) ReversePayment(amount decimal.Decimal) {
	i.PaidAmount = decimal.Max(decimal.Zero, i.PaidAmount.Sub(amount))
	i.refreshBalance()
}

// IsOutstanding reports whether the invoice can still receive allocations
func (i *Invoice) IsOutstanding() bool {
	return i.InvoiceStatus != types.InvoiceStatusPaid && i.BalanceDue.IsPositive()
}

func (i *Invoice) refreshBalance() {
	i.BalanceDue = ComputeBalanceDue(i.NetAmount, i.PaidAmount)
	i.InvoiceStatus = DeriveStatus(i.PaidAmount, i.BalanceDue)
}

// Copy returns a deep copy of the invoice including its items
func (i *Invoice) Copy() *Invoice {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Items = lo.Map(i.Items, func(item *InvoiceItem, _ int) *InvoiceItem {
		return item.Copy()
	})
	return &cp
}
