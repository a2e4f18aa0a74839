package testutil

import (
	"context"
	"time"

	"github.com/flexprice/billing/internal/domain/sequence"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
)

// InMemorySequenceStore implements sequence.Repository
type InMemorySequenceStore struct {
	*InMemoryStore[*sequence.Sequence]
}

func NewInMemorySequenceStore() *InMemorySequenceStore {
	return &InMemorySequenceStore{
		InMemoryStore: NewInMemoryStore[*sequence.Sequence](),
	}
}

func sequenceKey(tenantID string, kind types.SequenceKind) string {
	return tenantID + "/" + kind.String()
}

func (s *InMemorySequenceStore) Next(ctx context.Context, kind types.SequenceKind) (int64, error) {
	if err := kind.Validate(); err != nil {
		return 0, err
	}

	tenantID := types.GetTenantID(ctx)
	key := sequenceKey(tenantID, kind)
	now := time.Now().UTC()

	current, err := s.InMemoryStore.Get(ctx, key)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return 0, err
		}
		next := &sequence.Sequence{TenantID: tenantID, Kind: kind, LastValue: 1, CreatedAt: now, UpdatedAt: now}
		if err := s.InMemoryStore.Create(ctx, key, next); err != nil {
			return 0, err
		}
		return next.LastValue, nil
	}

	next := *current
	next.LastValue++
	next.UpdatedAt = now
	if err := s.InMemoryStore.Update(ctx, key, &next); err != nil {
		return 0, err
	}
	return next.LastValue, nil
}

// Current returns the last value handed out for kind, 0 when none was
func (s *InMemorySequenceStore) Current(ctx context.Context, kind types.SequenceKind) int64 {
	current, err := s.InMemoryStore.Get(ctx, sequenceKey(types.GetTenantID(ctx), kind))
	if err != nil {
		return 0
	}
	return current.LastValue
}
