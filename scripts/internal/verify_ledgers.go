package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/flexprice/billing/internal/api/dto"
	"github.com/flexprice/billing/internal/repository/postgres"
	"github.com/flexprice/billing/internal/service"
	"github.com/flexprice/billing/internal/types"
	"golang.org/x/time/rate"
)

// defaultVerifyRate bounds verifications per second, each one locks a customer row
const defaultVerifyRate = 20

// VerifyLedgers runs the ledger verification for every customer of the tenant and prints the
// reports of inconsistent or drifting ledgers as JSON lines. It fails when any ledger is
// inconsistent.
func VerifyLedgers() error {
	env, err := newScriptEnv()
	if err != nil {
		return err
	}
	defer env.db.Close()

	customerRepo := postgres.NewCustomerRepository(env.db, env.logger)
	invoiceItemRepo := postgres.NewInvoiceItemRepository(env.db, env.logger)
	allocationRepo := postgres.NewAllocationRepository(env.db, env.logger)

	ledger := service.NewLedgerService(service.ServiceParams{
		Logger:          env.logger,
		Config:          env.cfg,
		DB:              env.db,
		CustomerRepo:    customerRepo,
		InvoiceRepo:     postgres.NewInvoiceRepository(env.db, invoiceItemRepo, env.logger),
		InvoiceItemRepo: invoiceItemRepo,
		PaymentRepo:     postgres.NewPaymentRepository(env.db, allocationRepo, env.logger),
		AllocationRepo:  allocationRepo,
	})

	customers, err := customerRepo.List(env.ctx, types.NewNoLimitCustomerFilter())
	if err != nil {
		return fmt.Errorf("failed to list customers: %w", err)
	}

	env.logger.Infow("verifying ledgers", "tenant_id", types.GetTenantID(env.ctx), "customers", len(customers))

	perSecond := defaultVerifyRate
	if v, err := strconv.Atoi(os.Getenv("VERIFY_RATE")); err == nil && v > 0 {
		perSecond = v
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)

	enc := json.NewEncoder(os.Stdout)
	var inconsistent []string
	var drifting int
	for _, c := range customers {
		if err := limiter.Wait(env.ctx); err != nil {
			return err
		}
		report, err := ledger.VerifyCustomer(env.ctx, c.ID)
		if err != nil {
			return fmt.Errorf("failed to verify customer %s: %w", c.ID, err)
		}
		if report.Consistent && report.BalanceDrift.IsZero() {
			continue
		}
		if !report.Consistent {
			inconsistent = append(inconsistent, c.ID)
		} else {
			drifting++
		}
		if err := enc.Encode(struct {
			CustomerCode string `json:"customer_code"`
			*dto.LedgerVerificationResponse
		}{c.Code, report}); err != nil {
			return err
		}
	}

	env.logger.Infow("ledger verification finished",
		"customers", len(customers),
		"inconsistent", len(inconsistent),
		"drifting", drifting,
	)

	if len(inconsistent) > 0 {
		return fmt.Errorf("%d inconsistent ledgers: %v", len(inconsistent), inconsistent)
	}
	return nil
}
