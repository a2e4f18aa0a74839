package invoice

import (
	"github.com/flexprice/billing/internal/types"
	"github.com/shopspring/decimal"
)

// InvoiceItem is one priced line of an invoice
type InvoiceItem struct {
	ID          string          `db:"id" json:"id"`
	InvoiceID   string          `db:"invoice_id" json:"invoice_id"`
	ProductID   *string         `db:"product_id" json:"product_id,omitempty"`
	Description string          `db:"description" json:"description"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	// Position keeps the order the caller supplied the items in
	Position int `db:"position" json:"position"`
	types.BaseModel
}

// SameContent reports whether two items would persist identically, ignoring identity
// and audit fields
func (it *InvoiceItem) SameContent(other *InvoiceItem) bool {
	if other == nil {
		return false
	}
	return productIDEqual(it.ProductID, other.ProductID) &&
		it.Description == other.Description &&
		it.Quantity.Equal(other.Quantity) &&
		it.UnitPrice.Equal(other.UnitPrice) &&
		it.Position == other.Position
}

func (it *InvoiceItem) Copy() *InvoiceItem {
	if it == nil {
		return nil
	}
	cp := *it
	if it.ProductID != nil {
		id := *it.ProductID
		cp.ProductID = &id
	}
	return &cp
}

func productIDEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
