package router

import (
	"context"
	"net"

	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/logger"
)

// shouldRetry reports whether a failed message may succeed when handled again
func shouldRetry(logger *logger.Logger, err error) bool {
	if ierr.IsRetryable(err) {
		logger.Debugw("retrying due to lock contention", "error", err)
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		logger.Debugw("retrying due to network timeout", "error", netErr)
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// a bad event will fail the same way every time
	if ierr.IsValidation(err) ||
		ierr.IsNotFound(err) ||
		ierr.IsInvalidOperation(err) {
		return false
	}

	return true
}
