package dto

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/types"
	"github.com/flexprice/billing/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InvoiceItemRequest is one line of an invoice create or update request. On update an item
// carrying an ID replaces that existing item, an item without ID is added.
type InvoiceItemRequest struct {
	ID          *string         `json:"id,omitempty"`
	ProductID   *string         `json:"product_id,omitempty"`
	Description string          `json:"description" validate:"max=1000"`
	Quantity    decimal.Decimal `json:"quantity"`
	// UnitPrice defaults to the product's unit price when omitted
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// CreateInvoiceRequest represents the request to create a new invoice
type CreateInvoiceRequest struct {
	CustomerID     string               `json:"customer_id"`
	InvoiceDate    *time.Time           `json:"invoice_date,omitempty"`
	Notes          string               `json:"notes,omitempty" validate:"max=2000"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	PaidAmount     decimal.Decimal      `json:"paid_amount"`
	Items          []InvoiceItemRequest `json:"items" validate:"dive"`
}

// UpdateInvoiceRequest replaces the item set, discount and paid amount of an invoice.
// Omitted optional fields keep their current value.
type UpdateInvoiceRequest struct {
	CustomerID     *string              `json:"customer_id,omitempty"`
	InvoiceDate    *time.Time           `json:"invoice_date,omitempty"`
	Notes          *string              `json:"notes,omitempty" validate:"omitempty,max=2000"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	PaidAmount     decimal.Decimal      `json:"paid_amount"`
	Items          []InvoiceItemRequest `json:"items" validate:"dive"`
}

// InvoiceResponse represents the response for invoice operations
type InvoiceResponse struct {
	*invoice.Invoice

	// Payment is the payment recorded for the paid amount of this request, if any
	Payment *PaymentResponse `json:"payment,omitempty"`
}

// ListInvoicesResponse represents the response for listing invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]

func (r *CreateInvoiceRequest) Validate() error {
	if r.CustomerID == "" {
		return NewValidationError("customer_id", ReasonRequired, "Customer is required")
	}
	if err := validateItems(r.Items, false); err != nil {
		return err
	}
	if err := validateAmounts(r.DiscountAmount, r.PaidAmount); err != nil {
		return err
	}
	return validator.ValidateRequest(r)
}

func (r *UpdateInvoiceRequest) Validate() error {
	if r.CustomerID != nil && *r.CustomerID == "" {
		return NewValidationError("customer_id", ReasonRequired, "Customer cannot be empty")
	}
	if err := validateItems(r.Items, true); err != nil {
		return err
	}
	if err := validateAmounts(r.DiscountAmount, r.PaidAmount); err != nil {
		return err
	}
	return validator.ValidateRequest(r)
}

func validateItems(items []InvoiceItemRequest, allowIDs bool) error {
	if len(items) == 0 {
		return NewValidationError("items", ReasonRequired, "At least one invoice item is required")
	}
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)
		if item.ID != nil && !allowIDs {
			return NewValidationError(field+".id", ReasonUnknownItem, "Item ids cannot be supplied when creating an invoice")
		}
		if !roundAmount(item.Quantity).IsPositive() {
			return NewValidationError(field+".quantity", ReasonNotPositive, "Item quantity must be greater than zero")
		}
		if item.UnitPrice == nil {
			if item.ProductID == nil || *item.ProductID == "" {
				return NewValidationError(field+".unit_price", ReasonRequired, "Unit price is required for items without a product")
			}
			continue
		}
		if !roundAmount(*item.UnitPrice).IsPositive() {
			return NewValidationError(field+".unit_price", ReasonNotPositive, "Item unit price must be greater than zero")
		}
	}
	return nil
}

func validateAmounts(discount, paid decimal.Decimal) error {
	if discount.IsNegative() {
		return NewValidationError("discount_amount", ReasonNegative, "Discount cannot be negative")
	}
	if paid.IsNegative() {
		return NewValidationError("paid_amount", ReasonNegative, "Paid amount cannot be negative")
	}
	return nil
}

// RoundedDiscount returns the discount at storage precision
func (r *CreateInvoiceRequest) RoundedDiscount() decimal.Decimal {
	return roundAmount(r.DiscountAmount)
}

// RoundedPaid returns the paid amount at storage precision
func (r *CreateInvoiceRequest) RoundedPaid() decimal.Decimal {
	return roundAmount(r.PaidAmount)
}

func (r *UpdateInvoiceRequest) RoundedDiscount() decimal.Decimal {
	return roundAmount(r.DiscountAmount)
}

func (r *UpdateInvoiceRequest) RoundedPaid() decimal.Decimal {
	return roundAmount(r.PaidAmount)
}

// ToInvoice builds the invoice header. Items are attached by the caller once prices are resolved.
func (r *CreateInvoiceRequest) ToInvoice(ctx context.Context) *invoice.Invoice {
	invoiceDate := time.Now().UTC()
	if r.InvoiceDate != nil {
		invoiceDate = r.InvoiceDate.UTC()
	}

	return &invoice.Invoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		CustomerID:     r.CustomerID,
		InvoiceDate:    invoiceDate,
		Notes:          r.Notes,
		DiscountAmount: r.RoundedDiscount(),
		PaidAmount:     decimal.Zero,
		InvoiceStatus:  types.InvoiceStatusPending,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

// ToInvoiceItem builds a new item of invoiceID with the resolved unit price
func (r *InvoiceItemRequest) ToInvoiceItem(ctx context.Context, invoiceID string, unitPrice decimal.Decimal) *invoice.InvoiceItem {
	return &invoice.InvoiceItem{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_ITEM),
		InvoiceID:   invoiceID,
		ProductID:   r.productID(),
		Description: r.Description,
		Quantity:    roundAmount(r.Quantity),
		UnitPrice:   roundAmount(unitPrice),
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
}

func (r *InvoiceItemRequest) productID() *string {
	if r.ProductID == nil || *r.ProductID == "" {
		return nil
	}
	return lo.ToPtr(*r.ProductID)
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{Invoice: inv}
}
