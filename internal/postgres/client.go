package postgres

import (
	"context"

	"github.com/flexprice/billing/internal/logger"
	sentryService "github.com/flexprice/billing/internal/sentry"
)

// IClient defines the transaction boundary used by the services
type IClient interface {
	// WithTx wraps the given function in a transaction. A call made while a transaction is
	// already open on ctx runs inside a savepoint of that transaction.
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// NewClient returns the DB wrapped with Sentry span tracking
func NewClient(db *DB, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return NewSentryClient(db, sentry, logger)
}
