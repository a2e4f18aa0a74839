package api

import (
	v1 "github.com/flexprice/billing/internal/api/v1"
)

// Handlers groups every v1 handler the router mounts
type Handlers struct {
	Health   *v1.HealthHandler
	Customer *v1.CustomerHandler
	Product  *v1.ProductHandler
	Invoice  *v1.InvoiceHandler
	Payment  *v1.PaymentHandler
}
