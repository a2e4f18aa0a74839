package publisher

import (
	"context"

	"github.com/flexprice/billing/internal/config"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/pubsub"
	"github.com/flexprice/billing/internal/pubsub/kafka"
	"github.com/flexprice/billing/internal/pubsub/memory"
	"github.com/flexprice/billing/internal/types"
	"go.uber.org/fx"
)

// Module provides the ledger event pubsub and publisher
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			providePubSub,
			NewLedgerPublisher,
		),
	)
}

func providePubSub(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	logger *logger.Logger,
) (pubsub.PubSub, error) {
	var (
		ps  pubsub.PubSub
		err error
	)

	switch cfg.Event.PublishDestination {
	case types.MemoryPubSub:
		ps = memory.NewPubSub(cfg, logger)
	case types.KafkaPubSub:
		ps, err = kafka.NewPubSub(cfg, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ierr.NewError("unsupported pubsub type").
			WithHintf("Event publish destination %q is not supported", cfg.Event.PublishDestination).
			Mark(ierr.ErrValidation)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing ledger event pubsub")
			return ps.Close()
		},
	})

	return ps, nil
}
