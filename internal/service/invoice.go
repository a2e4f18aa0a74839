package service

import (
	"context"
	"fmt"

	"github.com/flexprice/billing/internal/api/dto"
	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/domain/payment"
	"github.com/flexprice/billing/internal/domain/product"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
}

type invoiceService struct {
	ServiceParams
	issuer   SequenceIssuer
	payments *paymentService
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		issuer:        NewSequenceIssuer(params),
		payments:      newPaymentService(params),
	}
}

// CreateInvoice numbers and stores a new invoice and charges its net amount to the customer.
// A paid amount is recorded as a real payment allocated to this invoice.
func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv := req.ToInvoice(ctx)
	items, err := s.buildItems(ctx, inv.ID, req.Items, nil)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	inv.Recalculate()

	paid := req.RoundedPaid()
	if err := checkTotals(inv, paid); err != nil {
		return nil, err
	}

	var (
		created  *invoice.Invoice
		pay      *payment.Payment
		balances map[string]decimal.Decimal
	)

	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := lockCustomers(txCtx, s.CustomerRepo, inv.CustomerID); err != nil {
			return err
		}

		number, err := s.issuer.Issue(txCtx, types.SequenceKindInvoice, func(attemptCtx context.Context, number string) error {
			inv.InvoiceNumber = number
			return s.InvoiceRepo.Create(attemptCtx, inv)
		})
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number

		if err := s.InvoiceItemRepo.CreateMany(txCtx, inv.Items); err != nil {
			return err
		}
		if _, err := s.CustomerRepo.AdjustBalance(txCtx, inv.CustomerID, inv.NetAmount); err != nil {
			return err
		}

		if paid.IsPositive() {
			pay = s.paymentFor(txCtx, inv, paid)
			if err := s.payments.createInTx(txCtx, pay, inv.ID); err != nil {
				return err
			}
		}

		created, err = s.InvoiceRepo.Get(txCtx, inv.ID)
		if err != nil {
			return err
		}
		balances, err = customerBalances(txCtx, s.CustomerRepo, inv.CustomerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created invoice",
		"invoice_id", created.ID,
		"invoice_number", created.InvoiceNumber,
		"customer_id", created.CustomerID,
		"net_amount", created.NetAmount,
		"paid_amount", created.PaidAmount,
	)

	publishLedgerEvent(ctx, s.ServiceParams, types.LedgerEventInvoiceCreated, types.LedgerEventPayload{
		EntityID:         created.ID,
		EntityNumber:     created.InvoiceNumber,
		CustomerBalances: balances,
	})

	return s.response(created, pay), nil
}

// UpdateInvoice replaces items, discount and paid amount of an invoice and moves the
// balance difference onto the right customers
func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		updated  *invoice.Invoice
		pay      *payment.Payment
		balances map[string]decimal.Decimal
	)

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		peek, err := s.InvoiceRepo.Get(txCtx, id)
		if err != nil {
			return err
		}

		newCustomerID := lo.FromPtrOr(req.CustomerID, peek.CustomerID)
		if _, err := lockCustomers(txCtx, s.CustomerRepo, peek.CustomerID, newCustomerID); err != nil {
			return err
		}

		old, err := s.InvoiceRepo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if old.CustomerID != peek.CustomerID {
			return ownerChanged("invoice", id)
		}

		paid := req.RoundedPaid()
		if paid.LessThan(old.PaidAmount) {
			return dto.NewValidationError("paid_amount", dto.ReasonPaidAmountDecrease,
				fmt.Sprintf("Paid amount cannot go below %s; record a payment reversal instead", old.PaidAmount.String()))
		}

		items, err := s.buildItems(txCtx, old.ID, req.Items, old.Items)
		if err != nil {
			return err
		}

		inv := old.Copy()
		inv.CustomerID = newCustomerID
		inv.InvoiceDate = lo.FromPtrOr(req.InvoiceDate, old.InvoiceDate).UTC()
		inv.Notes = lo.FromPtrOr(req.Notes, old.Notes)
		inv.DiscountAmount = req.RoundedDiscount()
		inv.Items = items
		inv.Recalculate()
		inv.Touch(txCtx)

		if err := checkTotals(inv, paid); err != nil {
			return err
		}

		if err := s.syncItems(txCtx, old.Items, inv.Items); err != nil {
			return err
		}
		if err := s.InvoiceRepo.Update(txCtx, inv); err != nil {
			return err
		}

		if old.CustomerID == inv.CustomerID {
			if _, err := s.CustomerRepo.AdjustBalance(txCtx, inv.CustomerID, inv.BalanceDue.Sub(old.BalanceDue)); err != nil {
				return err
			}
		} else {
			if _, err := s.CustomerRepo.AdjustBalance(txCtx, old.CustomerID, old.BalanceDue.Neg()); err != nil {
				return err
			}
			if _, err := s.CustomerRepo.AdjustBalance(txCtx, inv.CustomerID, inv.BalanceDue); err != nil {
				return err
			}
		}

		if delta := paid.Sub(old.PaidAmount); delta.IsPositive() {
			pay = s.paymentFor(txCtx, inv, delta)
			if err := s.payments.createInTx(txCtx, pay, inv.ID); err != nil {
				return err
			}
		}

		updated, err = s.InvoiceRepo.Get(txCtx, id)
		if err != nil {
			return err
		}
		balances, err = customerBalances(txCtx, s.CustomerRepo, old.CustomerID, inv.CustomerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("updated invoice",
		"invoice_id", updated.ID,
		"customer_id", updated.CustomerID,
		"net_amount", updated.NetAmount,
		"paid_amount", updated.PaidAmount,
		"balance_due", updated.BalanceDue,
	)

	publishLedgerEvent(ctx, s.ServiceParams, types.LedgerEventInvoiceUpdated, types.LedgerEventPayload{
		EntityID:         updated.ID,
		EntityNumber:     updated.InvoiceNumber,
		CustomerBalances: balances,
	})

	return s.response(updated, pay), nil
}

// DeleteInvoice removes an invoice with its items and allocations and takes its balance due
// off the customer. Payments that settled it keep their rows.
func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	var (
		deleted  *invoice.Invoice
		balances map[string]decimal.Decimal
	)

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		peek, err := s.InvoiceRepo.Get(txCtx, id)
		if err != nil {
			return err
		}
		if _, err := lockCustomers(txCtx, s.CustomerRepo, peek.CustomerID); err != nil {
			return err
		}

		inv, err := s.InvoiceRepo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if inv.CustomerID != peek.CustomerID {
			return ownerChanged("invoice", id)
		}

		if err := s.AllocationRepo.DeleteByInvoice(txCtx, id); err != nil {
			return err
		}
		if err := s.InvoiceItemRepo.DeleteByInvoice(txCtx, id); err != nil {
			return err
		}
		if err := s.InvoiceRepo.Delete(txCtx, id); err != nil {
			return err
		}
		if _, err := s.CustomerRepo.AdjustBalance(txCtx, inv.CustomerID, inv.BalanceDue.Neg()); err != nil {
			return err
		}

		deleted = inv
		balances, err = customerBalances(txCtx, s.CustomerRepo, inv.CustomerID)
		return err
	})
	if err != nil {
		return err
	}

	s.Logger.WithContext(ctx).Infow("deleted invoice",
		"invoice_id", deleted.ID,
		"invoice_number", deleted.InvoiceNumber,
		"customer_id", deleted.CustomerID,
		"balance_due", deleted.BalanceDue,
	)

	publishLedgerEvent(ctx, s.ServiceParams, types.LedgerEventInvoiceDeleted, types.LedgerEventPayload{
		EntityID:         deleted.ID,
		EntityNumber:     deleted.InvoiceNumber,
		CustomerBalances: balances,
	})
	return nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, dto.NewValidationError("invoice_id", dto.ReasonRequired, "Invoice ID is required")
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
		return dto.NewInvoiceResponse(inv)
	})
	resp := types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

// buildItems turns request items into invoice items in request order. Items naming an id
// start from that existing item so its identity and audit fields survive. Unit prices
// fall back to the product's price.
func (s *invoiceService) buildItems(ctx context.Context, invoiceID string, reqItems []dto.InvoiceItemRequest, existing []*invoice.InvoiceItem) ([]*invoice.InvoiceItem, error) {
	existingByID := lo.KeyBy(existing, func(item *invoice.InvoiceItem) string { return item.ID })
	products := make(map[string]*product.Product)
	seen := make(map[string]bool)

	items := make([]*invoice.InvoiceItem, 0, len(reqItems))
	for i, reqItem := range reqItems {
		unitPrice, err := s.resolveUnitPrice(ctx, reqItem, products)
		if err != nil {
			return nil, err
		}

		if reqItem.ID == nil {
			items = append(items, reqItem.ToInvoiceItem(ctx, invoiceID, unitPrice))
			continue
		}

		current, ok := existingByID[*reqItem.ID]
		if !ok || seen[*reqItem.ID] {
			return nil, dto.NewValidationError(fmt.Sprintf("items[%d].id", i), dto.ReasonUnknownItem,
				fmt.Sprintf("Item %s does not belong to this invoice", *reqItem.ID))
		}
		seen[*reqItem.ID] = true

		replacement := reqItem.ToInvoiceItem(ctx, invoiceID, unitPrice)
		item := current.Copy()
		item.ProductID = replacement.ProductID
		item.Description = replacement.Description
		item.Quantity = replacement.Quantity
		item.UnitPrice = replacement.UnitPrice
		items = append(items, item)
	}
	return items, nil
}

func (s *invoiceService) resolveUnitPrice(ctx context.Context, reqItem dto.InvoiceItemRequest, cache map[string]*product.Product) (decimal.Decimal, error) {
	if reqItem.ProductID == nil || *reqItem.ProductID == "" {
		return lo.FromPtr(reqItem.UnitPrice), nil
	}

	p, ok := cache[*reqItem.ProductID]
	if !ok {
		var err error
		p, err = s.ProductRepo.Get(ctx, *reqItem.ProductID)
		if err != nil {
			return decimal.Zero, err
		}
		cache[p.ID] = p
	}

	if reqItem.UnitPrice != nil {
		return *reqItem.UnitPrice, nil
	}
	return p.UnitPrice, nil
}

// syncItems writes the difference between the stored and the new item set. Unchanged items
// are left alone.
func (s *invoiceService) syncItems(ctx context.Context, before, after []*invoice.InvoiceItem) error {
	beforeByID := lo.KeyBy(before, func(item *invoice.InvoiceItem) string { return item.ID })
	afterIDs := lo.SliceToMap(after, func(item *invoice.InvoiceItem) (string, bool) { return item.ID, true })

	removed := lo.FilterMap(before, func(item *invoice.InvoiceItem, _ int) (string, bool) {
		return item.ID, !afterIDs[item.ID]
	})
	if len(removed) > 0 {
		if err := s.InvoiceItemRepo.DeleteMany(ctx, removed); err != nil {
			return err
		}
	}

	var added []*invoice.InvoiceItem
	for _, item := range after {
		current, ok := beforeByID[item.ID]
		if !ok {
			added = append(added, item)
			continue
		}
		if current.SameContent(item) {
			continue
		}
		item.Touch(ctx)
		if err := s.InvoiceItemRepo.Update(ctx, item); err != nil {
			return err
		}
	}

	if len(added) > 0 {
		return s.InvoiceItemRepo.CreateMany(ctx, added)
	}
	return nil
}

// paymentFor builds the payment recording amount received against inv
func (s *invoiceService) paymentFor(ctx context.Context, inv *invoice.Invoice, amount decimal.Decimal) *payment.Payment {
	return &payment.Payment{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		CustomerID:  inv.CustomerID,
		Amount:      amount,
		PaymentDate: inv.InvoiceDate,
		Notes:       fmt.Sprintf("Payment received with invoice %s", inv.InvoiceNumber),
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
}

func (s *invoiceService) response(inv *invoice.Invoice, pay *payment.Payment) *dto.InvoiceResponse {
	resp := dto.NewInvoiceResponse(inv)
	if pay != nil {
		resp.Payment = dto.NewPaymentResponse(pay)
	}
	return resp
}

// checkTotals validates discount and paid amount against the recalculated invoice
func checkTotals(inv *invoice.Invoice, paid decimal.Decimal) error {
	if inv.DiscountAmount.GreaterThan(inv.TotalAmount) {
		return dto.NewValidationError("discount_amount", dto.ReasonDiscountTooLarge,
			fmt.Sprintf("Discount cannot exceed the invoice subtotal of %s", inv.TotalAmount.String()))
	}
	if paid.GreaterThan(inv.NetAmount) {
		return dto.NewValidationError("paid_amount", dto.ReasonPaidTooLarge,
			fmt.Sprintf("Paid amount cannot exceed the net amount of %s", inv.NetAmount.String()))
	}
	return nil
}
