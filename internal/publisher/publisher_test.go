package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/flexprice/billing/internal/config"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/pubsub/memory"
	"github.com/flexprice/billing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerPublisher_Publish(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log := logger.NewNoopLogger()
	ps := memory.NewPubSub(cfg, log)
	pub := NewLedgerPublisher(ps, cfg, nil, log)
	defer pub.Close()

	ctx := types.SetTenantID(context.Background(), "tenant_1")
	ctx = types.SetUserID(ctx, "user_1")

	event, err := NewLedgerEvent(ctx, types.LedgerEventInvoiceCreated, map[string]string{
		"invoice_id": "inv_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "tenant_1", event.TenantID)
	assert.Equal(t, "user_1", event.UserID)

	require.NoError(t, pub.Publish(ctx, event))

	messages, err := ps.Subscribe(context.Background(), cfg.Event.Topic)
	require.NoError(t, err)

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, "tenant_1", msg.Metadata.Get("tenant_id"))
		assert.Equal(t, types.LedgerEventInvoiceCreated, msg.Metadata.Get("event_name"))

		var received types.LedgerEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &received))
		assert.Equal(t, event.EventName, received.EventName)
		assert.JSONEq(t, `{"invoice_id":"inv_1"}`, string(received.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("ledger event was not delivered")
	}
}

func TestNewLedgerEvent_EncodeFailure(t *testing.T) {
	_, err := NewLedgerEvent(context.Background(), types.LedgerEventPaymentCreated, make(chan int))
	assert.Error(t, err)
}
