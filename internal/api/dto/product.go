package dto

import (
	"context"

	"github.com/flexprice/billing/internal/domain/product"
	"github.com/flexprice/billing/internal/types"
	"github.com/flexprice/billing/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents the request to create a catalog product
type CreateProductRequest struct {
	Code      string          `json:"code" validate:"required,max=64"`
	Name      string          `json:"name" validate:"required,max=255"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// UpdateProductRequest represents the request to update a catalog product
type UpdateProductRequest struct {
	Code      *string          `json:"code,omitempty" validate:"omitempty,min=1,max=64"`
	Name      *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type ProductResponse struct {
	*product.Product
}

type ListProductsResponse = types.ListResponse[*ProductResponse]

func (r *CreateProductRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.UnitPrice.IsPositive() {
		return NewValidationError("unit_price", ReasonNotPositive, "Unit price must be greater than zero")
	}
	return nil
}

func (r *CreateProductRequest) ToProduct(ctx context.Context) *product.Product {
	return &product.Product{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRODUCT),
		Code:      r.Code,
		Name:      r.Name,
		UnitPrice: roundAmount(r.UnitPrice),
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

func (r *UpdateProductRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.UnitPrice != nil && !r.UnitPrice.IsPositive() {
		return NewValidationError("unit_price", ReasonNotPositive, "Unit price must be greater than zero")
	}
	return nil
}

// Apply copies the supplied fields onto p
func (r *UpdateProductRequest) Apply(ctx context.Context, p *product.Product) {
	if r.Code != nil {
		p.Code = *r.Code
	}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.UnitPrice != nil {
		p.UnitPrice = roundAmount(*r.UnitPrice)
	}
	p.Touch(ctx)
}
