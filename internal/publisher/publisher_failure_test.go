package publisher_test

import (
	"context"
	"errors"
	"testing"

	"github.com/flexprice/billing/internal/config"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/publisher"
	"github.com/flexprice/billing/internal/testutil"
	"github.com/flexprice/billing/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerPublisher_BrokerFailure(t *testing.T) {
	cfg := config.GetDefaultConfig()
	ps := testutil.NewInMemoryPubSub()
	pub := publisher.NewLedgerPublisher(ps, cfg, nil, logger.NewNoopLogger())

	ctx := types.SetTenantID(context.Background(), "tenant_1")
	event, err := publisher.NewLedgerEvent(ctx, types.LedgerEventPaymentCreated, types.LedgerEventPayload{EntityID: "pay_1"})
	require.NoError(t, err)

	ps.FailWith(errors.New("broker unavailable"))
	err = pub.Publish(ctx, event)
	require.Error(t, err)
	assert.True(t, ierr.IsSystem(err))
	assert.Empty(t, ps.Messages(cfg.Event.Topic))

	ps.FailWith(nil)
	require.NoError(t, pub.Publish(ctx, event))
	msgs := ps.Messages(cfg.Event.Topic)
	require.Len(t, msgs, 1)
	assert.Equal(t, event.ID, msgs[0].UUID)
	assert.Equal(t, types.LedgerEventPaymentCreated, msgs[0].Metadata.Get("event_name"))

	require.NoError(t, pub.Close())
	assert.True(t, ps.Closed())
}
