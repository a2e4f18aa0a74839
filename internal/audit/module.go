package audit

import (
	"context"

	"github.com/flexprice/billing/internal/config"
	"github.com/flexprice/billing/internal/logger"
	pubsubRouter "github.com/flexprice/billing/internal/pubsub/router"
	"go.uber.org/fx"
)

// Module provides the ledger audit consumer. The router only runs when audit is enabled.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			pubsubRouter.NewRouter,
			NewHandler,
		),
		fx.Invoke(startRouter),
	)
}

func startRouter(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	router *pubsubRouter.Router,
	h Handler,
	logger *logger.Logger,
) {
	if !cfg.Audit.Enabled {
		logger.Info("ledger audit consumer disabled")
		return
	}

	h.RegisterHandler(router)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting ledger audit router")
			go func() {
				if err := router.Run(); err != nil {
					logger.Errorw("ledger audit router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping ledger audit router")
			return router.Close()
		},
	})
}
