package audit

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/billing/internal/api/dto"
	"github.com/flexprice/billing/internal/config"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/pubsub"
	pubsubRouter "github.com/flexprice/billing/internal/pubsub/router"
	"github.com/flexprice/billing/internal/service"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
)

// Handler consumes ledger events and re-verifies the ledger of every customer they touched
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

type handler struct {
	pubSub pubsub.PubSub
	event  *config.EventConfig
	audit  *config.AuditConfig
	ledger service.LedgerService
	logger *logger.Logger
}

func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	ledger service.LedgerService,
	logger *logger.Logger,
) Handler {
	return &handler{
		pubSub: pubSub,
		event:  &cfg.Event,
		audit:  &cfg.Audit,
		ledger: ledger,
		logger: logger,
	}
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		h.audit.ConsumerName,
		h.event.Topic,
		h.pubSub,
		h.processMessage,
	)
}

func (h *handler) processMessage(msg *message.Message) error {
	var event types.LedgerEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal ledger event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil
	}

	var payload types.LedgerEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		h.logger.Errorw("failed to unmarshal ledger event payload",
			"error", err,
			"event_id", event.ID,
			"event_name", event.EventName,
		)
		return nil
	}

	ctx := types.SetTenantID(msg.Context(), event.TenantID)
	ctx = types.SetUserID(ctx, event.UserID)

	customerIDs := lo.Keys(payload.CustomerBalances)
	sort.Strings(customerIDs)

	for _, customerID := range customerIDs {
		if err := h.verify(ctx, &event, customerID); err != nil {
			return err
		}
	}
	return nil
}

func (h *handler) verify(ctx context.Context, event *types.LedgerEvent, customerID string) error {
	log := h.logger.WithContext(ctx)

	report, err := h.ledger.VerifyCustomer(ctx, customerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// deleted after the event was published
			log.Debugw("skipping audit of missing customer", "customer_id", customerID, "event_id", event.ID)
			return nil
		}
		return err
	}

	if report.Consistent {
		log.Debugw("ledger audit passed",
			"customer_id", customerID,
			"event_id", event.ID,
			"event_name", event.EventName,
		)
		return nil
	}

	rules := lo.Uniq(lo.Map(report.Violations, func(v dto.LedgerViolation, _ int) string { return v.Rule }))
	return ierr.NewError("ledger audit found violations").
		WithHintf("Ledger of customer %s is inconsistent after %s", customerID, event.EventName).
		WithReportableDetails(map[string]any{
			"customer_id": customerID,
			"event_id":    event.ID,
			"event_name":  event.EventName,
			"violations":  len(report.Violations),
			"rules":       rules,
		}).
		Mark(ierr.ErrInvalidOperation)
}
