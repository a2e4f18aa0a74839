package product

import (
	"github.com/flexprice/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry that invoice items may reference
type Product struct {
	ID        string          `db:"id" json:"id"`
	Code      string          `db:"code" json:"code"`
	Name      string          `db:"name" json:"name"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	types.BaseModel
}

func (p *Product) Copy() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
