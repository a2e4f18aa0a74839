package service

import (
	"context"
	"sort"

	"github.com/flexprice/billing/internal/api/dto"
	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/domain/payment"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PaymentService defines the interface for payment operations
type PaymentService interface {
	CreatePayment(ctx context.Context, req dto.CreatePaymentRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	UpdatePayment(ctx context.Context, id string, req dto.UpdatePaymentRequest) (*dto.PaymentResponse, error)
	ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error)
	DeletePayment(ctx context.Context, id string) error
}

type paymentService struct {
	ServiceParams
	issuer SequenceIssuer
}

// NewPaymentService creates a new payment service
func NewPaymentService(params ServiceParams) PaymentService {
	return newPaymentService(params)
}

func newPaymentService(params ServiceParams) *paymentService {
	return &paymentService{
		ServiceParams: params,
		issuer:        NewSequenceIssuer(params),
	}
}

// CreatePayment records money received and allocates it to the customer's open invoices, oldest first
func (s *paymentService) CreatePayment(ctx context.Context, req dto.CreatePaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToPayment(ctx)
	var balances map[string]decimal.Decimal

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := lockCustomers(txCtx, s.CustomerRepo, p.CustomerID); err != nil {
			return err
		}
		if err := s.createInTx(txCtx, p, ""); err != nil {
			return err
		}
		var err error
		balances, err = customerBalances(txCtx, s.CustomerRepo, p.CustomerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created payment",
		"payment_id", p.ID,
		"payment_number", p.PaymentNumber,
		"customer_id", p.CustomerID,
		"amount", p.Amount,
		"allocations", len(p.Allocations),
	)

	publishLedgerEvent(ctx, s.ServiceParams, types.LedgerEventPaymentCreated, types.LedgerEventPayload{
		EntityID:         p.ID,
		EntityNumber:     p.PaymentNumber,
		CustomerBalances: balances,
	})

	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	if id == "" {
		return nil, dto.NewValidationError("payment_id", dto.ReasonRequired, "Payment ID is required")
	}

	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.PaymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		p.Allocations, err = s.AllocationRepo.ListByPayment(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, dto.NewPaymentResponse(p))
	}

	resp := types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

// UpdatePayment reverses the payment completely and applies it again with the merged values
func (s *paymentService) UpdatePayment(ctx context.Context, id string, req dto.UpdatePaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		updated  *payment.Payment
		balances map[string]decimal.Decimal
	)

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		peek, err := s.PaymentRepo.Get(txCtx, id)
		if err != nil {
			return err
		}

		newCustomerID := peek.CustomerID
		if req.CustomerID != nil {
			newCustomerID = *req.CustomerID
		}
		if _, err := lockCustomers(txCtx, s.CustomerRepo, peek.CustomerID, newCustomerID); err != nil {
			return err
		}

		p, err := s.PaymentRepo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if p.CustomerID != peek.CustomerID {
			return ownerChanged("payment", id)
		}
		oldCustomerID := p.CustomerID

		if err := s.reverseInTx(txCtx, p); err != nil {
			return err
		}

		req.Apply(txCtx, p)
		if err := s.PaymentRepo.Update(txCtx, p); err != nil {
			return err
		}
		if err := s.allocateInTx(txCtx, p, ""); err != nil {
			return err
		}

		updated = p
		balances, err = customerBalances(txCtx, s.CustomerRepo, oldCustomerID, p.CustomerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("updated payment",
		"payment_id", updated.ID,
		"customer_id", updated.CustomerID,
		"amount", updated.Amount,
	)

	publishLedgerEvent(ctx, s.ServiceParams, types.LedgerEventPaymentUpdated, types.LedgerEventPayload{
		EntityID:         updated.ID,
		EntityNumber:     updated.PaymentNumber,
		CustomerBalances: balances,
	})

	return dto.NewPaymentResponse(updated), nil
}

// DeletePayment reverses the payment and removes it
func (s *paymentService) DeletePayment(ctx context.Context, id string) error {
	var (
		deleted  *payment.Payment
		balances map[string]decimal.Decimal
	)

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		peek, err := s.PaymentRepo.Get(txCtx, id)
		if err != nil {
			return err
		}
		if _, err := lockCustomers(txCtx, s.CustomerRepo, peek.CustomerID); err != nil {
			return err
		}

		p, err := s.PaymentRepo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if p.CustomerID != peek.CustomerID {
			return ownerChanged("payment", id)
		}

		if err := s.reverseInTx(txCtx, p); err != nil {
			return err
		}
		if err := s.PaymentRepo.Delete(txCtx, p.ID); err != nil {
			return err
		}

		deleted = p
		balances, err = customerBalances(txCtx, s.CustomerRepo, p.CustomerID)
		return err
	})
	if err != nil {
		return err
	}

	s.Logger.WithContext(ctx).Infow("deleted payment",
		"payment_id", deleted.ID,
		"customer_id", deleted.CustomerID,
	)

	publishLedgerEvent(ctx, s.ServiceParams, types.LedgerEventPaymentDeleted, types.LedgerEventPayload{
		EntityID:         deleted.ID,
		EntityNumber:     deleted.PaymentNumber,
		CustomerBalances: balances,
	})
	return nil
}

// createInTx numbers, inserts and allocates p. The caller holds the customer lock.
// preferredInvoiceID, when set, is served before the FIFO order.
func (s *paymentService) createInTx(ctx context.Context, p *payment.Payment, preferredInvoiceID string) error {
	number, err := s.issuer.Issue(ctx, types.SequenceKindPayment, func(attemptCtx context.Context, number string) error {
		p.PaymentNumber = number
		return s.PaymentRepo.Create(attemptCtx, p)
	})
	if err != nil {
		return err
	}
	p.PaymentNumber = number

	return s.allocateInTx(ctx, p, preferredInvoiceID)
}

// allocateInTx spreads p over the customer's outstanding invoices, persists the allocations
// and the invoice totals, and takes the full amount off the customer balance
func (s *paymentService) allocateInTx(ctx context.Context, p *payment.Payment, preferredInvoiceID string) error {
	outstanding, err := s.InvoiceRepo.ListOutstandingForUpdate(ctx, p.CustomerID)
	if err != nil {
		return err
	}

	result := payment.Allocate(outstanding, p.Amount, preferredInvoiceID)
	if result.Remainder.IsPositive() && s.Config.Ledger.OverpaymentPolicy == types.OverpaymentPolicyReject {
		return ierr.NewError("payment exceeds the outstanding balance").
			WithHintf("Payment amount exceeds the customer's outstanding invoices by %s", result.Remainder.String()).
			WithReportableDetails(map[string]any{
				"field":       "amount",
				"reason":      dto.ReasonOverpayment,
				"unallocated": result.Remainder.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	byID := lo.KeyBy(outstanding, func(inv *invoice.Invoice) string { return inv.ID })
	allocations := make([]*payment.Allocation, 0, len(result.Shares))
	for _, share := range result.Shares {
		inv := byID[share.InvoiceID]
		inv.ApplyPayment(share.Amount)
		inv.Touch(ctx)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}

		allocations = append(allocations, &payment.Allocation{
			ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_ALLOCATION),
			PaymentID:       p.ID,
			InvoiceID:       inv.ID,
			AllocatedAmount: share.Amount,
			BaseModel:       types.GetDefaultBaseModel(ctx),
		})
	}

	if err := s.AllocationRepo.CreateMany(ctx, allocations); err != nil {
		return err
	}
	p.Allocations = allocations

	if _, err := s.CustomerRepo.AdjustBalance(ctx, p.CustomerID, p.Amount.Neg()); err != nil {
		return err
	}

	s.Logger.WithContext(ctx).Debugw("allocated payment",
		"payment_id", p.ID,
		"allocated", result.Allocated(),
		"remainder", result.Remainder,
		"invoices", len(allocations),
	)
	return nil
}

// reverseInTx undoes every effect of p on invoices and on its customer's balance and
// drops its allocations. The caller holds the customer lock.
func (s *paymentService) reverseInTx(ctx context.Context, p *payment.Payment) error {
	allocations := append([]*payment.Allocation(nil), p.Allocations...)
	sort.Slice(allocations, func(i, j int) bool {
		return allocations[i].InvoiceID < allocations[j].InvoiceID
	})

	for _, a := range allocations {
		inv, err := s.InvoiceRepo.GetForUpdate(ctx, a.InvoiceID)
		if err != nil {
			return err
		}
		inv.ReversePayment(a.AllocatedAmount)
		inv.Touch(ctx)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
	}

	if err := s.AllocationRepo.DeleteByPayment(ctx, p.ID); err != nil {
		return err
	}
	p.Allocations = nil

	if _, err := s.CustomerRepo.AdjustBalance(ctx, p.CustomerID, p.Amount); err != nil {
		return err
	}
	return nil
}
