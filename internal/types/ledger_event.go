package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEvent is published after a ledger transaction commits
type LedgerEvent struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_name"`
	TenantID  string          `json:"tenant_id"`
	UserID    string          `json:"user_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// LedgerEventPayload is the body of every ledger event
type LedgerEventPayload struct {
	EntityID     string `json:"entity_id"`
	EntityNumber string `json:"entity_number,omitempty"`
	// CustomerBalances holds the resulting balance of every customer the change touched
	CustomerBalances map[string]decimal.Decimal `json:"customer_balances"`
}

// invoice event names
const (
	LedgerEventInvoiceCreated = "invoice.created"
	LedgerEventInvoiceUpdated = "invoice.updated"
	LedgerEventInvoiceDeleted = "invoice.deleted"
)

// payment event names
const (
	LedgerEventPaymentCreated = "payment.created"
	LedgerEventPaymentUpdated = "payment.updated"
	LedgerEventPaymentDeleted = "payment.deleted"
)
