package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/billing/internal/config"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/pubsub"
	"github.com/flexprice/billing/internal/sentry"
	"github.com/flexprice/billing/internal/types"
)

// LedgerPublisher publishes ledger events after their transaction committed
type LedgerPublisher interface {
	Publish(ctx context.Context, event *types.LedgerEvent) error
	Close() error
}

type ledgerPublisher struct {
	pubSub pubsub.PubSub
	config *config.EventConfig
	sentry *sentry.Service
	logger *logger.Logger
}

// NewLedgerPublisher creates a publisher writing to the configured event topic
func NewLedgerPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	sentry *sentry.Service,
	logger *logger.Logger,
) LedgerPublisher {
	return &ledgerPublisher{
		pubSub: pubSub,
		config: &cfg.Event,
		sentry: sentry,
		logger: logger,
	}
}

// NewLedgerEvent builds an event of name carrying payload, stamped from ctx
func NewLedgerEvent(ctx context.Context, name string, payload any) (*types.LedgerEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to encode %s event", name).
			Mark(ierr.ErrSystem)
	}

	return &types.LedgerEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER_EVENT),
		EventName: name,
		TenantID:  types.GetTenantID(ctx),
		UserID:    types.GetUserID(ctx),
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

func (p *ledgerPublisher) Publish(ctx context.Context, event *types.LedgerEvent) error {
	span, ctx := p.sentry.StartPublishSpan(ctx, p.config.Topic)
	if span != nil {
		defer span.Finish()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode ledger event").
			Mark(ierr.ErrSystem)
	}

	messageID := event.ID
	if messageID == "" {
		messageID = watermill.NewUUID()
	}

	msg := message.NewMessage(messageID, payload)
	msg.Metadata.Set("tenant_id", event.TenantID)
	msg.Metadata.Set("event_name", event.EventName)

	p.logger.Debugw("publishing ledger event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"tenant_id", event.TenantID,
		"topic", p.config.Topic,
	)

	if err := p.pubSub.Publish(ctx, p.config.Topic, msg); err != nil {
		p.logger.Errorw("failed to publish ledger event",
			"error", err,
			"event_id", event.ID,
			"event_name", event.EventName,
			"tenant_id", event.TenantID,
		)
		return ierr.WithError(err).
			WithHintf("Failed to publish %s event", event.EventName).
			Mark(ierr.ErrSystem)
	}

	return nil
}

// Close closes the publisher
func (p *ledgerPublisher) Close() error {
	return p.pubSub.Close()
}
