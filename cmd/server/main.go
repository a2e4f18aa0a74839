package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flexprice/billing/internal/api"
	v1 "github.com/flexprice/billing/internal/api/v1"
	"github.com/flexprice/billing/internal/audit"
	"github.com/flexprice/billing/internal/cache"
	"github.com/flexprice/billing/internal/config"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/flexprice/billing/internal/publisher"
	"github.com/flexprice/billing/internal/pyroscope"
	"github.com/flexprice/billing/internal/repository"
	"github.com/flexprice/billing/internal/sentry"
	"github.com/flexprice/billing/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
		),
		sentry.Module(),
		pyroscope.Module(),
		postgres.Module(),
		repository.Module(),
		publisher.Module(),
	)

	// Service layer
	opts = append(opts, service.Module())

	// Ledger audit consumer
	opts = append(opts, audit.Module())

	// API
	opts = append(opts,
		fx.Provide(
			cache.NewInMemoryCache,
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(
			setGlobalLogger,
			startAPIServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	log *logger.Logger,
	db *postgres.DB,
	customerService service.CustomerService,
	productService service.ProductService,
	invoiceService service.InvoiceService,
	paymentService service.PaymentService,
	allocatorService service.AllocatorService,
	ledgerService service.LedgerService,
) api.Handlers {
	return api.Handlers{
		Health:   v1.NewHealthHandler(db, log),
		Customer: v1.NewCustomerHandler(customerService, ledgerService, log),
		Product:  v1.NewProductHandler(productService, log),
		Invoice:  v1.NewInvoiceHandler(invoiceService, log),
		Payment:  v1.NewPaymentHandler(paymentService, allocatorService, log),
	}
}

func setGlobalLogger(log *logger.Logger) {
	logger.L = log
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down API server")
			return srv.Shutdown(ctx)
		},
	})
}
