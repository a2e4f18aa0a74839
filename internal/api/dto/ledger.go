package dto

import (
	"github.com/flexprice/billing/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// AllocationPreviewRequest asks how an amount would be spread over a customer's open invoices
type AllocationPreviewRequest struct {
	CustomerID string          `json:"customer_id" form:"customer_id"`
	Amount     decimal.Decimal `json:"amount" form:"amount"`
}

// AllocationPreviewResponse is the computed allocation. Nothing is persisted.
type AllocationPreviewResponse struct {
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	payment.AllocationResult
}

func (r *AllocationPreviewRequest) Validate() error {
	if r.CustomerID == "" {
		return NewValidationError("customer_id", ReasonRequired, "Customer is required")
	}
	if !roundAmount(r.Amount).IsPositive() {
		return NewValidationError("amount", ReasonNotPositive, "Amount must be greater than zero")
	}
	return nil
}

// RoundedAmount returns the amount at storage precision
func (r *AllocationPreviewRequest) RoundedAmount() decimal.Decimal {
	return roundAmount(r.Amount)
}

// LedgerViolation is one broken consistency rule found by a ledger verification
type LedgerViolation struct {
	Rule     string          `json:"rule"`
	EntityID string          `json:"entity_id"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
	Message  string          `json:"message"`
}

// LedgerVerificationResponse reports the consistency of one customer's ledger
type LedgerVerificationResponse struct {
	CustomerID string `json:"customer_id"`
	// Consistent is false when any violation was found. Balance drift alone does not make
	// a ledger inconsistent.
	Consistent          bool              `json:"consistent"`
	StoredBalance       decimal.Decimal   `json:"stored_balance"`
	OpenDocumentBalance decimal.Decimal   `json:"open_document_balance"`
	BalanceDrift        decimal.Decimal   `json:"balance_drift"`
	InvoicesChecked     int               `json:"invoices_checked"`
	PaymentsChecked     int               `json:"payments_checked"`
	Violations          []LedgerViolation `json:"violations"`
}
