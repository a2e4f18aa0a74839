package service

import (
	"context"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/flexprice/billing/internal/domain/sequence"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
)

// SequenceIssuer hands out document numbers
type SequenceIssuer interface {
	// Issue draws the next number of kind and passes it to insert. When insert fails because
	// the number is already taken, a new number is drawn, up to the configured retry count.
	// Issue must run inside a transaction; every attempt runs in its own savepoint.
	Issue(ctx context.Context, kind types.SequenceKind, insert func(ctx context.Context, number string) error) (string, error)
}

type sequenceIssuer struct {
	ServiceParams
}

func NewSequenceIssuer(params ServiceParams) SequenceIssuer {
	return &sequenceIssuer{ServiceParams: params}
}

func (s *sequenceIssuer) Issue(ctx context.Context, kind types.SequenceKind, insert func(ctx context.Context, number string) error) (string, error) {
	prefix, err := s.prefix(kind)
	if err != nil {
		return "", err
	}

	var (
		number   string
		attempts int
	)

	operation := func() error {
		attempts++

		// The counter is advanced outside the savepoint so a rolled back attempt never
		// hands the same value out again.
		next, err := s.SequenceRepo.Next(ctx, kind)
		if err != nil {
			return backoff.Permanent(err)
		}

		candidate := prefix + strconv.FormatInt(next, 10)
		err = s.DB.WithTx(ctx, func(attemptCtx context.Context) error {
			return insert(attemptCtx, candidate)
		})
		if err == nil {
			number = candidate
			return nil
		}
		if errors.Is(err, sequence.ErrNumberTaken) {
			s.Logger.WithContext(ctx).Warnw("document number already taken, drawing the next one",
				"kind", kind,
				"number", candidate,
				"attempt", attempts,
			)
			return err
		}
		return backoff.Permanent(err)
	}

	maxAttempts := s.Config.Ledger.SequenceMaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(maxAttempts-1)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, sequence.ErrNumberTaken) {
			return "", ierr.WithError(err).
				WithHintf("Could not issue a free %s number, please retry", kind).
				WithReportableDetails(map[string]any{
					"kind":     kind,
					"attempts": attempts,
				}).
				Mark(ierr.ErrSequenceExhausted)
		}
		return "", err
	}

	return number, nil
}

func (s *sequenceIssuer) prefix(kind types.SequenceKind) (string, error) {
	switch kind {
	case types.SequenceKindInvoice:
		return s.Config.Ledger.InvoicePrefix, nil
	case types.SequenceKindPayment:
		return s.Config.Ledger.PaymentPrefix, nil
	}
	return "", kind.Validate()
}
