package sequence

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/billing/internal/types"
)

// ErrNumberTaken marks an insert that failed because its document number already exists
var ErrNumberTaken = errors.New("document number already taken")

// Sequence is the per-tenant counter row of one document kind
type Sequence struct {
	TenantID  string             `db:"tenant_id"`
	Kind      types.SequenceKind `db:"kind"`
	LastValue int64              `db:"last_value"`
	CreatedAt time.Time          `db:"created_at"`
	UpdatedAt time.Time          `db:"updated_at"`
}

// Repository hands out counter values
type Repository interface {
	// Next atomically increments the tenant's counter of kind and returns the new value.
	// The counter row stays locked until the surrounding transaction ends.
	Next(ctx context.Context, kind types.SequenceKind) (int64, error)
}
