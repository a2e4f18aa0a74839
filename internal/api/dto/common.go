package dto

import (
	"github.com/flexprice/billing/internal/domain/invoice"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/shopspring/decimal"
)

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// validation reasons reported in error details
const (
	ReasonRequired           = "required"
	ReasonNotPositive        = "must_be_positive"
	ReasonNegative           = "must_not_be_negative"
	ReasonDiscountTooLarge   = "discount_exceeds_subtotal"
	ReasonPaidTooLarge       = "paid_amount_exceeds_net_amount"
	ReasonPaidAmountDecrease = "paid_amount_decrease"
	ReasonUnknownItem        = "unknown_item"
	ReasonOverpayment        = "overpayment"
)

// NewValidationError builds a validation error carrying the offending field and reason
func NewValidationError(field, reason, hint string) error {
	return ierr.NewError(field + ": " + reason).
		WithHint(hint).
		WithReportableDetails(map[string]any{
			"field":  field,
			"reason": reason,
		}).
		Mark(ierr.ErrValidation)
}

// roundAmount brings a caller supplied amount to storage precision
func roundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(invoice.AmountScale)
}
