package service

import (
	"context"
	"fmt"

	"github.com/flexprice/billing/internal/api/dto"
	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/domain/payment"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Ledger rules reported by VerifyCustomer
const (
	RuleInvoiceTotals      = "invoice_totals"
	RuleInvoiceBalance     = "invoice_balance"
	RuleInvoiceStatus      = "invoice_status"
	RuleInvoiceAllocations = "invoice_allocations"
	RulePaymentAllocations = "payment_allocations"
)

// LedgerService audits the stored ledger of a customer
type LedgerService interface {
	VerifyCustomer(ctx context.Context, customerID string) (*dto.LedgerVerificationResponse, error)
}

type ledgerService struct {
	ServiceParams
}

func NewLedgerService(params ServiceParams) LedgerService {
	return &ledgerService{ServiceParams: params}
}

// VerifyCustomer re-derives every invoice and payment figure of the customer from the stored
// rows and reports each mismatch. It also compares the stored balance with the balance of the
// open documents. That drift is reported but does not count as a violation: deleting an
// invoice that already collected payments leaves those payments behind.
func (s *ledgerService) VerifyCustomer(ctx context.Context, customerID string) (*dto.LedgerVerificationResponse, error) {
	if customerID == "" {
		return nil, dto.NewValidationError("customer_id", dto.ReasonRequired, "Customer ID is required")
	}

	resp := &dto.LedgerVerificationResponse{
		CustomerID: customerID,
		Violations: []dto.LedgerViolation{},
	}

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		c, err := lockCustomers(txCtx, s.CustomerRepo, customerID)
		if err != nil {
			return err
		}
		resp.StoredBalance = c[customerID].Balance

		invoiceFilter := types.NewNoLimitInvoiceFilter()
		invoiceFilter.CustomerID = customerID
		invoices, err := s.InvoiceRepo.List(txCtx, invoiceFilter)
		if err != nil {
			return err
		}

		paymentFilter := types.NewNoLimitPaymentFilter()
		paymentFilter.CustomerID = customerID
		payments, err := s.PaymentRepo.List(txCtx, paymentFilter)
		if err != nil {
			return err
		}

		openBalance := decimal.Zero
		for _, inv := range invoices {
			items, err := s.InvoiceItemRepo.ListByInvoice(txCtx, inv.ID)
			if err != nil {
				return err
			}
			allocations, err := s.AllocationRepo.ListByInvoice(txCtx, inv.ID)
			if err != nil {
				return err
			}
			inv.Items = items
			resp.Violations = append(resp.Violations, checkInvoice(inv, allocations)...)
			openBalance = openBalance.Add(inv.BalanceDue)
		}

		for _, p := range payments {
			p.Allocations, err = s.AllocationRepo.ListByPayment(txCtx, p.ID)
			if err != nil {
				return err
			}
			resp.Violations = append(resp.Violations, checkPayment(p)...)
			openBalance = openBalance.Sub(decimal.Max(decimal.Zero, p.Unallocated()))
		}

		resp.InvoicesChecked = len(invoices)
		resp.PaymentsChecked = len(payments)
		resp.OpenDocumentBalance = openBalance
		resp.BalanceDrift = resp.StoredBalance.Sub(openBalance)
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp.Consistent = len(resp.Violations) == 0

	log := s.Logger.WithContext(ctx)
	if !resp.Consistent {
		log.Warnw("ledger verification found violations",
			"customer_id", customerID,
			"violations", len(resp.Violations),
		)
	} else if !resp.BalanceDrift.IsZero() {
		log.Infow("customer balance differs from open documents",
			"customer_id", customerID,
			"drift", resp.BalanceDrift,
		)
	}
	return resp, nil
}

func checkInvoice(inv *invoice.Invoice, allocations []*payment.Allocation) []dto.LedgerViolation {
	var violations []dto.LedgerViolation

	total, net := invoice.ComputeTotals(inv.Items, inv.DiscountAmount)
	if !total.Equal(inv.TotalAmount) {
		violations = append(violations, violation(RuleInvoiceTotals, inv.ID, total, inv.TotalAmount,
			"total amount does not match the sum of the items"))
	}
	if !net.Equal(inv.NetAmount) {
		violations = append(violations, violation(RuleInvoiceTotals, inv.ID, net, inv.NetAmount,
			"net amount does not match total minus discount"))
	}

	if sum := inv.PaidAmount.Add(inv.BalanceDue); !sum.Equal(inv.NetAmount) {
		violations = append(violations, violation(RuleInvoiceBalance, inv.ID, inv.NetAmount, sum,
			"paid amount plus balance due does not equal the net amount"))
	}

	if expected := invoice.DeriveStatus(inv.PaidAmount, inv.BalanceDue); expected != inv.InvoiceStatus {
		violations = append(violations, dto.LedgerViolation{
			Rule:     RuleInvoiceStatus,
			EntityID: inv.ID,
			Expected: inv.BalanceDue,
			Actual:   inv.PaidAmount,
			Message:  fmt.Sprintf("status is %s but should be %s", inv.InvoiceStatus, expected),
		})
	}

	allocated := lo.Reduce(allocations, func(acc decimal.Decimal, a *payment.Allocation, _ int) decimal.Decimal {
		return acc.Add(a.AllocatedAmount)
	}, decimal.Zero)
	if !allocated.Equal(inv.PaidAmount) {
		violations = append(violations, violation(RuleInvoiceAllocations, inv.ID, allocated, inv.PaidAmount,
			"paid amount does not match the payments allocated to the invoice"))
	}

	return violations
}

func checkPayment(p *payment.Payment) []dto.LedgerViolation {
	allocated := p.AllocatedTotal()
	if allocated.GreaterThan(p.Amount) {
		return []dto.LedgerViolation{violation(RulePaymentAllocations, p.ID, p.Amount, allocated,
			"payment is allocated beyond its amount")}
	}
	return nil
}

func violation(rule, entityID string, expected, actual decimal.Decimal, message string) dto.LedgerViolation {
	return dto.LedgerViolation{
		Rule:     rule,
		EntityID: entityID,
		Expected: expected,
		Actual:   actual,
		Message:  message,
	}
}
