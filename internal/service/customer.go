package service

import (
	"context"

	"github.com/flexprice/billing/internal/api/dto"
	"github.com/flexprice/billing/internal/domain/customer"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
)

// CustomerService manages customers. Balances are only ever changed by the ledgers.
type CustomerService interface {
	CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (*dto.CustomerResponse, error)
	GetCustomers(ctx context.Context, filter *types.CustomerFilter) (*dto.ListCustomersResponse, error)
	UpdateCustomer(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*dto.CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type customerService struct {
	ServiceParams
}

func NewCustomerService(params ServiceParams) CustomerService {
	return &customerService{ServiceParams: params}
}

func (s *customerService) CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := req.ToCustomer(ctx)
	if err := s.CustomerRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created customer", "customer_id", c.ID, "code", c.Code)
	return &dto.CustomerResponse{Customer: c}, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (*dto.CustomerResponse, error) {
	if id == "" {
		return nil, dto.NewValidationError("customer_id", dto.ReasonRequired, "Customer ID is required")
	}

	c, err := s.CustomerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.CustomerResponse{Customer: c}, nil
}

func (s *customerService) GetCustomers(ctx context.Context, filter *types.CustomerFilter) (*dto.ListCustomersResponse, error) {
	if filter == nil {
		filter = types.NewCustomerFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	customers, err := s.CustomerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.CustomerRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(customers, func(c *customer.Customer, _ int) *dto.CustomerResponse {
		return &dto.CustomerResponse{Customer: c}
	})
	resp := types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *customer.Customer
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		c, err := s.CustomerRepo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		req.Apply(txCtx, c)
		if err := s.CustomerRepo.Update(txCtx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.CustomerResponse{Customer: updated}, nil
}

// DeleteCustomer removes a customer that has no invoices and no payments
func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.CustomerRepo.GetForUpdate(txCtx, id); err != nil {
			return err
		}

		invoiceFilter := types.NewNoLimitInvoiceFilter()
		invoiceFilter.CustomerID = id
		invoices, err := s.InvoiceRepo.Count(txCtx, invoiceFilter)
		if err != nil {
			return err
		}

		paymentFilter := types.NewNoLimitPaymentFilter()
		paymentFilter.CustomerID = id
		payments, err := s.PaymentRepo.Count(txCtx, paymentFilter)
		if err != nil {
			return err
		}

		if invoices > 0 || payments > 0 {
			return ierr.NewError("customer has ledger documents").
				WithHint("Customers with invoices or payments cannot be deleted").
				WithReportableDetails(map[string]any{
					"customer_id": id,
					"invoices":    invoices,
					"payments":    payments,
				}).
				Mark(ierr.ErrConflict)
		}

		return s.CustomerRepo.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.Logger.WithContext(ctx).Infow("deleted customer", "customer_id", id)
	return nil
}
