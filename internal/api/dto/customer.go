package dto

import (
	"context"

	"github.com/flexprice/billing/internal/domain/customer"
	"github.com/flexprice/billing/internal/types"
	"github.com/flexprice/billing/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateCustomerRequest represents the request to create a new customer
type CreateCustomerRequest struct {
	Code  string `json:"code" validate:"required,max=64"`
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"omitempty,email"`
}

// UpdateCustomerRequest represents the request to update an existing customer
type UpdateCustomerRequest struct {
	Code  *string `json:"code,omitempty" validate:"omitempty,min=1,max=64"`
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// CustomerResponse represents the response for customer operations
type CustomerResponse struct {
	*customer.Customer
}

// ListCustomersResponse represents the response for listing customers
type ListCustomersResponse = types.ListResponse[*CustomerResponse]

func (r *CreateCustomerRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *CreateCustomerRequest) ToCustomer(ctx context.Context) *customer.Customer {
	return &customer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		Code:      r.Code,
		Name:      r.Name,
		Email:     r.Email,
		Balance:   decimal.Zero,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

func (r *UpdateCustomerRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// Apply copies the supplied fields onto c
func (r *UpdateCustomerRequest) Apply(ctx context.Context, c *customer.Customer) {
	if r.Code != nil {
		c.Code = *r.Code
	}
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Email != nil {
		c.Email = *r.Email
	}
	c.Touch(ctx)
}
