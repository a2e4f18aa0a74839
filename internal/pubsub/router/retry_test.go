package router

import (
	"context"
	"errors"
	"testing"

	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestShouldRetry(t *testing.T) {
	log := logger.NewNoopLogger()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"contention", ierr.NewError("lock wait timeout").Mark(ierr.ErrContention), true},
		{"deadline", ierr.WithError(context.DeadlineExceeded).Mark(ierr.ErrDatabase), true},
		{"validation", ierr.NewError("bad payload").Mark(ierr.ErrValidation), false},
		{"not found", ierr.NewError("customer gone").Mark(ierr.ErrNotFound), false},
		{"unknown", errors.New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(log, tt.err))
		})
	}
}
