package service

import (
	"context"

	"github.com/flexprice/billing/internal/api/dto"
	"github.com/flexprice/billing/internal/domain/payment"
)

// AllocatorService previews how a payment would be allocated without recording it
type AllocatorService interface {
	Allocate(ctx context.Context, req dto.AllocationPreviewRequest) (*dto.AllocationPreviewResponse, error)
}

type allocatorService struct {
	ServiceParams
}

func NewAllocatorService(params ServiceParams) AllocatorService {
	return &allocatorService{ServiceParams: params}
}

// Allocate reads the customer's outstanding invoices in a transaction and computes the FIFO
// allocation for the amount. Nothing is written.
func (s *allocatorService) Allocate(ctx context.Context, req dto.AllocationPreviewRequest) (*dto.AllocationPreviewResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount := req.RoundedAmount()
	var result payment.AllocationResult

	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.CustomerRepo.Get(txCtx, req.CustomerID); err != nil {
			return err
		}
		outstanding, err := s.InvoiceRepo.ListOutstandingForUpdate(txCtx, req.CustomerID)
		if err != nil {
			return err
		}
		result = payment.Allocate(outstanding, amount, "")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.AllocationPreviewResponse{
		CustomerID:       req.CustomerID,
		Amount:           amount,
		AllocationResult: result,
	}, nil
}
