package payment

import (
	"sort"

	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

// Share is one computed slice of a payment before it is persisted as an Allocation
type Share struct {
	InvoiceID string          `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// AllocationResult is the outcome of Allocate. Remainder is what no invoice could absorb.
type AllocationResult struct {
	Shares    []Share         `json:"allocations"`
	Remainder decimal.Decimal `json:"unallocated_remainder"`
}

// Allocate distributes amount over the outstanding invoices, oldest first. Invoices are
// ordered by invoice date, then creation time, then id. When preferredInvoiceID names one of
// the outstanding invoices it is served before the rest. Invoices that are paid or have no
// balance due are skipped. The input slice is not modified.
func Allocate(outstanding []*invoice.Invoice, amount decimal.Decimal, preferredInvoiceID string) AllocationResult {
	ordered := make([]*invoice.Invoice, 0, len(outstanding))
	for _, inv := range outstanding {
		if inv != nil && inv.IsOutstanding() {
			ordered = append(ordered, inv)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if preferredInvoiceID != "" && (a.ID == preferredInvoiceID) != (b.ID == preferredInvoiceID) {
			return a.ID == preferredInvoiceID
		}
		if !a.InvoiceDate.Equal(b.InvoiceDate) {
			return a.InvoiceDate.Before(b.InvoiceDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	remaining := amount
	shares := make([]Share, 0, len(ordered))
	for _, inv := range ordered {
		if !remaining.IsPositive() {
			break
		}
		share := decimal.Min(remaining, inv.BalanceDue)
		shares = append(shares, Share{InvoiceID: inv.ID, Amount: share})
		remaining = remaining.Sub(share)
	}

	return AllocationResult{
		Shares:    shares,
		Remainder: decimal.Max(decimal.Zero, remaining),
	}
}

// Allocated sums the computed shares
func (r AllocationResult) Allocated() decimal.Decimal {
	total := decimal.Zero
	for _, s := range r.Shares {
		total = total.Add(s.Amount)
	}
	return total
}
