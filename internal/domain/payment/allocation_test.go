package payment

import (
	"testing"
	"time"

	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outstandingInvoice(id string, date time.Time, created time.Time, net, paid int64) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:          id,
		InvoiceDate: date,
		NetAmount:   decimal.NewFromInt(net),
		BaseModel:   types.BaseModel{CreatedAt: created},
	}
	inv.ApplyPayment(decimal.NewFromInt(paid))
	return inv
}

func TestAllocate(t *testing.T) {
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	jan3 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name              string
		invoices          []*invoice.Invoice
		amount            int64
		preferred         string
		expectedShares    []Share
		expectedRemainder int64
	}{
		{
			name: "fifo_oldest_invoice_first",
			invoices: []*invoice.Invoice{
				outstandingInvoice("inv_b", jan2, jan1, 30, 0),
				outstandingInvoice("inv_a", jan1, jan1, 50, 0),
			},
			amount: 60,
			expectedShares: []Share{
				{InvoiceID: "inv_a", Amount: decimal.NewFromInt(50)},
				{InvoiceID: "inv_b", Amount: decimal.NewFromInt(10)},
			},
			expectedRemainder: 0,
		},
		{
			name: "same_date_broken_by_creation_order",
			invoices: []*invoice.Invoice{
				outstandingInvoice("inv_late", jan1, jan2, 20, 0),
				outstandingInvoice("inv_early", jan1, jan1, 20, 0),
			},
			amount: 25,
			expectedShares: []Share{
				{InvoiceID: "inv_early", Amount: decimal.NewFromInt(20)},
				{InvoiceID: "inv_late", Amount: decimal.NewFromInt(5)},
			},
		},
		{
			name: "partially_paid_invoice_only_takes_its_balance_due",
			invoices: []*invoice.Invoice{
				outstandingInvoice("inv_a", jan1, jan1, 100, 70),
				outstandingInvoice("inv_b", jan2, jan2, 40, 0),
			},
			amount: 50,
			expectedShares: []Share{
				{InvoiceID: "inv_a", Amount: decimal.NewFromInt(30)},
				{InvoiceID: "inv_b", Amount: decimal.NewFromInt(20)},
			},
		},
		{
			name: "paid_invoices_are_skipped",
			invoices: []*invoice.Invoice{
				outstandingInvoice("inv_paid", jan1, jan1, 10, 10),
				outstandingInvoice("inv_open", jan2, jan2, 10, 0),
			},
			amount: 5,
			expectedShares: []Share{
				{InvoiceID: "inv_open", Amount: decimal.NewFromInt(5)},
			},
		},
		{
			name: "overpayment_returns_explicit_remainder",
			invoices: []*invoice.Invoice{
				outstandingInvoice("inv_a", jan1, jan1, 40, 0),
			},
			amount: 100,
			expectedShares: []Share{
				{InvoiceID: "inv_a", Amount: decimal.NewFromInt(40)},
			},
			expectedRemainder: 60,
		},
		{
			name:              "no_outstanding_invoices",
			invoices:          nil,
			amount:            15,
			expectedShares:    []Share{},
			expectedRemainder: 15,
		},
		{
			name: "preferred_invoice_served_first",
			invoices: []*invoice.Invoice{
				outstandingInvoice("inv_a", jan1, jan1, 50, 0),
				outstandingInvoice("inv_c", jan3, jan3, 30, 0),
			},
			amount:    40,
			preferred: "inv_c",
			expectedShares: []Share{
				{InvoiceID: "inv_c", Amount: decimal.NewFromInt(30)},
				{InvoiceID: "inv_a", Amount: decimal.NewFromInt(10)},
			},
		},
		{
			name: "unknown_preferred_invoice_falls_back_to_fifo",
			invoices: []*invoice.Invoice{
				outstandingInvoice("inv_b", jan2, jan2, 10, 0),
				outstandingInvoice("inv_a", jan1, jan1, 10, 0),
			},
			amount:    10,
			preferred: "inv_missing",
			expectedShares: []Share{
				{InvoiceID: "inv_a", Amount: decimal.NewFromInt(10)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Allocate(tt.invoices, decimal.NewFromInt(tt.amount), tt.preferred)

			require.Len(t, result.Shares, len(tt.expectedShares))
			for i, expected := range tt.expectedShares {
				assert.Equal(t, expected.InvoiceID, result.Shares[i].InvoiceID)
				assert.True(t, expected.Amount.Equal(result.Shares[i].Amount),
					"share %d: expected %s, got %s", i, expected.Amount, result.Shares[i].Amount)
			}
			assert.True(t, decimal.NewFromInt(tt.expectedRemainder).Equal(result.Remainder),
				"expected remainder %d, got %s", tt.expectedRemainder, result.Remainder)
			assert.True(t, result.Allocated().Add(result.Remainder).Equal(decimal.NewFromInt(tt.amount)))
		})
	}
}

func TestAllocate_DoesNotMutateInput(t *testing.T) {
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	invoices := []*invoice.Invoice{
		outstandingInvoice("inv_b", jan1.AddDate(0, 0, 1), jan1, 10, 0),
		outstandingInvoice("inv_a", jan1, jan1, 10, 0),
	}

	_ = Allocate(invoices, decimal.NewFromInt(15), "")

	assert.Equal(t, "inv_b", invoices[0].ID)
	assert.True(t, invoices[0].BalanceDue.Equal(decimal.NewFromInt(10)))
	assert.True(t, invoices[1].PaidAmount.IsZero())
}

func TestPayment_Unallocated(t *testing.T) {
	p := &Payment{
		Amount: decimal.NewFromInt(100),
		Allocations: []*Allocation{
			{InvoiceID: "inv_a", AllocatedAmount: decimal.NewFromInt(30)},
			{InvoiceID: "inv_b", AllocatedAmount: decimal.NewFromFloat(12.5)},
		},
	}

	assert.True(t, p.AllocatedTotal().Equal(decimal.NewFromFloat(42.5)))
	assert.True(t, p.Unallocated().Equal(decimal.NewFromFloat(57.5)))
}
