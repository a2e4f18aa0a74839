package postgres

import (
	"context"

	"github.com/flexprice/billing/internal/domain/sequence"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/flexprice/billing/internal/types"
)

type sequenceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSequenceRepository(db *postgres.DB, logger *logger.Logger) sequence.Repository {
	return &sequenceRepository{db: db, logger: logger}
}

// Next increments the counter row in place. The upsert takes the row lock, so concurrent
// transactions of the same tenant queue here until the holder commits or rolls back.
func (r *sequenceRepository) Next(ctx context.Context, kind types.SequenceKind) (int64, error) {
	span := StartRepositorySpan(ctx, "sequence", "next", map[string]interface{}{
		"kind": kind,
	})
	defer FinishSpan(span)

	query := `
		INSERT INTO document_sequences (tenant_id, kind, last_value, created_at, updated_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (tenant_id, kind) DO UPDATE
		SET last_value = document_sequences.last_value + 1,
			updated_at = NOW()
		RETURNING tenant_id, kind, last_value, created_at, updated_at`

	var seq sequence.Sequence
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &seq, query, types.GetTenantID(ctx), kind); err != nil {
		SetSpanError(span, err)
		return 0, postgres.TranslateError(err, "sequence.next")
	}

	r.logger.Debugw("issued sequence value",
		"tenant_id", seq.TenantID,
		"kind", seq.Kind,
		"value", seq.LastValue,
	)

	return seq.LastValue, nil
}
