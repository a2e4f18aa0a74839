package repository

import (
	"github.com/flexprice/billing/internal/domain/customer"
	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/domain/payment"
	"github.com/flexprice/billing/internal/domain/product"
	"github.com/flexprice/billing/internal/domain/sequence"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	postgresRepo "github.com/flexprice/billing/internal/repository/postgres"
	"go.uber.org/fx"
)

// Module provides every postgres backed repository to fx
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewCustomerRepository,
			NewProductRepository,
			NewInvoiceItemRepository,
			NewInvoiceRepository,
			NewAllocationRepository,
			NewPaymentRepository,
			NewSequenceRepository,
		),
	)
}

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger) customer.Repository {
	return postgresRepo.NewCustomerRepository(db, logger)
}

func NewProductRepository(db *postgres.DB, logger *logger.Logger) product.Repository {
	return postgresRepo.NewProductRepository(db, logger)
}

func NewInvoiceItemRepository(db *postgres.DB, logger *logger.Logger) invoice.ItemRepository {
	return postgresRepo.NewInvoiceItemRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, items invoice.ItemRepository, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, items, logger)
}

func NewAllocationRepository(db *postgres.DB, logger *logger.Logger) payment.AllocationRepository {
	return postgresRepo.NewAllocationRepository(db, logger)
}

func NewPaymentRepository(db *postgres.DB, allocations payment.AllocationRepository, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, allocations, logger)
}

func NewSequenceRepository(db *postgres.DB, logger *logger.Logger) sequence.Repository {
	return postgresRepo.NewSequenceRepository(db, logger)
}
