package service

import (
	"github.com/flexprice/billing/internal/config"
	"github.com/flexprice/billing/internal/domain/customer"
	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/domain/payment"
	"github.com/flexprice/billing/internal/domain/product"
	"github.com/flexprice/billing/internal/domain/sequence"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/flexprice/billing/internal/publisher"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	CustomerRepo    customer.Repository
	ProductRepo     product.Repository
	InvoiceRepo     invoice.Repository
	InvoiceItemRepo invoice.ItemRepository
	PaymentRepo     payment.Repository
	AllocationRepo  payment.AllocationRepository
	SequenceRepo    sequence.Repository

	// Publishers
	LedgerPublisher publisher.LedgerPublisher
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	customerRepo customer.Repository,
	productRepo product.Repository,
	invoiceRepo invoice.Repository,
	invoiceItemRepo invoice.ItemRepository,
	paymentRepo payment.Repository,
	allocationRepo payment.AllocationRepository,
	sequenceRepo sequence.Repository,
	ledgerPublisher publisher.LedgerPublisher,
) ServiceParams {
	return ServiceParams{
		Logger:          logger,
		Config:          config,
		DB:              db,
		CustomerRepo:    customerRepo,
		ProductRepo:     productRepo,
		InvoiceRepo:     invoiceRepo,
		InvoiceItemRepo: invoiceItemRepo,
		PaymentRepo:     paymentRepo,
		AllocationRepo:  allocationRepo,
		SequenceRepo:    sequenceRepo,
		LedgerPublisher: ledgerPublisher,
	}
}

// Module provides the service params and every service to fx
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewServiceParams,
			NewCustomerService,
			NewProductService,
			NewInvoiceService,
			NewPaymentService,
			NewAllocatorService,
			NewLedgerService,
		),
	)
}
