package types

import (
	ierr "github.com/flexprice/billing/internal/errors"
)

// SequenceKind identifies which document counter a number is drawn from
type SequenceKind string

const (
	SequenceKindInvoice SequenceKind = "INVOICE"
	SequenceKindPayment SequenceKind = "PAYMENT"
)

func (k SequenceKind) String() string {
	return string(k)
}

func (k SequenceKind) Validate() error {
	switch k {
	case SequenceKindInvoice, SequenceKindPayment:
		return nil
	}
	return ierr.NewError("invalid sequence kind").
		WithHintf("Sequence kind %q is not supported", string(k)).
		Mark(ierr.ErrValidation)
}
