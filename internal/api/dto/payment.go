package dto

import (
	"context"
	"time"

	"github.com/flexprice/billing/internal/domain/payment"
	"github.com/flexprice/billing/internal/types"
	"github.com/flexprice/billing/internal/validator"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest represents a request to record a payment received from a customer
type CreatePaymentRequest struct {
	CustomerID  string          `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`
	Notes       string          `json:"notes,omitempty" validate:"max=2000"`
}

// UpdatePaymentRequest represents a request to update a payment. The payment is
// reversed and reapplied with the merged values.
type UpdatePaymentRequest struct {
	CustomerID  *string          `json:"customer_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	PaymentDate *time.Time       `json:"payment_date,omitempty"`
	Notes       *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// PaymentResponse represents a payment with its allocations
type PaymentResponse struct {
	*payment.Payment

	// UnallocatedAmount is the part of the payment held as standing credit
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
}

// ListPaymentsResponse represents the response for listing payments
type ListPaymentsResponse = types.ListResponse[*PaymentResponse]

func (r *CreatePaymentRequest) Validate() error {
	if r.CustomerID == "" {
		return NewValidationError("customer_id", ReasonRequired, "Customer is required")
	}
	if !roundAmount(r.Amount).IsPositive() {
		return NewValidationError("amount", ReasonNotPositive, "Payment amount must be greater than zero")
	}
	return validator.ValidateRequest(r)
}

func (r *CreatePaymentRequest) ToPayment(ctx context.Context) *payment.Payment {
	paymentDate := time.Now().UTC()
	if r.PaymentDate != nil {
		paymentDate = r.PaymentDate.UTC()
	}

	return &payment.Payment{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		CustomerID:  r.CustomerID,
		Amount:      roundAmount(r.Amount),
		PaymentDate: paymentDate,
		Notes:       r.Notes,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
}

func (r *UpdatePaymentRequest) Validate() error {
	if r.CustomerID != nil && *r.CustomerID == "" {
		return NewValidationError("customer_id", ReasonRequired, "Customer cannot be empty")
	}
	if r.Amount != nil && !roundAmount(*r.Amount).IsPositive() {
		return NewValidationError("amount", ReasonNotPositive, "Payment amount must be greater than zero")
	}
	return validator.ValidateRequest(r)
}

// Apply merges the supplied fields onto p
func (r *UpdatePaymentRequest) Apply(ctx context.Context, p *payment.Payment) {
	if r.CustomerID != nil {
		p.CustomerID = *r.CustomerID
	}
	if r.Amount != nil {
		p.Amount = roundAmount(*r.Amount)
	}
	if r.PaymentDate != nil {
		p.PaymentDate = r.PaymentDate.UTC()
	}
	if r.Notes != nil {
		p.Notes = *r.Notes
	}
	p.Touch(ctx)
}

func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		Payment:           p,
		UnallocatedAmount: p.Unallocated(),
	}
}
