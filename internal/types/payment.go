package types

import (
	ierr "github.com/flexprice/billing/internal/errors"
)

// OverpaymentPolicy decides what happens to the part of a payment that could not be
// allocated to any outstanding invoice.
type OverpaymentPolicy string

const (
	// OverpaymentPolicyCredit keeps the remainder on the customer's balance as standing credit
	OverpaymentPolicyCredit OverpaymentPolicy = "credit"
	// OverpaymentPolicyReject rejects payments that cannot be fully allocated
	OverpaymentPolicyReject OverpaymentPolicy = "reject"
)

func (p OverpaymentPolicy) Validate() error {
	switch p {
	case OverpaymentPolicyCredit, OverpaymentPolicyReject:
		return nil
	}
	return ierr.NewError("invalid overpayment policy").
		WithHintf("Overpayment policy must be one of %s, %s", OverpaymentPolicyCredit, OverpaymentPolicyReject).
		Mark(ierr.ErrValidation)
}

// PaymentFilter represents the filter options for listing payments
type PaymentFilter struct {
	*QueryFilter
	*TimeRangeFilter

	CustomerID string   `json:"customer_id,omitempty" form:"customer_id"`
	PaymentIDs []string `json:"payment_ids,omitempty" form:"payment_ids"`
	InvoiceID  string   `json:"invoice_id,omitempty" form:"invoice_id"`
}

// NewPaymentFilter creates a new payment filter with default values
func NewPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitPaymentFilter creates a new payment filter without pagination
func NewNoLimitPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the payment filter
func (f PaymentFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return ierr.WithError(err).WithHint("Invalid pagination parameters").Mark(ierr.ErrValidation)
		}
	}
	if f.TimeRangeFilter != nil {
		if err := f.TimeRangeFilter.Validate(); err != nil {
			return ierr.WithError(err).WithHint("Invalid payment date range").Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// GetLimit implements BaseFilter interface
func (f *PaymentFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset implements BaseFilter interface
func (f *PaymentFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return 0
	}
	return f.QueryFilter.GetOffset()
}

// GetOrder implements BaseFilter interface
func (f *PaymentFilter) GetOrder() string {
	if f.QueryFilter == nil {
		return OrderDesc
	}
	return f.QueryFilter.GetOrder()
}

// IsUnlimited implements BaseFilter interface
func (f *PaymentFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return false
	}
	return f.QueryFilter.IsUnlimited()
}
