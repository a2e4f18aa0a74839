package testutil

import (
	"context"
	"time"

	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/postgres"
	"github.com/flexprice/billing/internal/types"
)

var _ postgres.IClient = (*InMemoryDB)(nil)

// snapshotter is implemented by stores whose state InMemoryDB rolls back
type snapshotter interface {
	snapshot() any
	restore(state any)
}

type memTxKey struct{}

type memTx struct {
	id    string
	depth int
}

// InMemoryDB is a transactional stand-in for postgres. Top-level transactions are
// serialized by a single lock acquired with a bounded wait; a transaction that cannot get
// the lock in time fails with a contention error. Every transaction level snapshots the
// registered stores and restores them when fn fails, so nested calls behave like savepoints.
type InMemoryDB struct {
	lock        chan struct{}
	lockTimeout time.Duration
	stores      []snapshotter
	logger      *logger.Logger
}

// NewInMemoryDB creates an in-memory transactional DB over the given stores
func NewInMemoryDB(logger *logger.Logger, lockTimeout time.Duration, stores ...snapshotter) *InMemoryDB {
	return &InMemoryDB{
		lock:        make(chan struct{}, 1),
		lockTimeout: lockTimeout,
		stores:      stores,
		logger:      logger,
	}
}

// SetLockTimeout changes how long later transactions wait for the lock
func (db *InMemoryDB) SetLockTimeout(d time.Duration) {
	db.lockTimeout = d
}

// WithTx runs fn inside a transaction
func (db *InMemoryDB) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		tx.depth++
		defer func() { tx.depth-- }()
		return db.run(ctx, tx, fn)
	}

	if err := db.acquire(ctx); err != nil {
		return err
	}
	defer db.release()

	tx := &memTx{id: types.GenerateUUID()}
	txCtx := context.WithValue(ctx, memTxKey{}, tx)
	return db.run(txCtx, tx, fn)
}

func (db *InMemoryDB) run(ctx context.Context, tx *memTx, fn func(context.Context) error) (err error) {
	states := db.snapshot()

	defer func() {
		if r := recover(); r != nil {
			db.logger.Errorw("panic in transaction", "tx_id", tx.id, "panic", r)
			db.restore(states)
			panic(r)
		}
	}()

	if err = fn(ctx); err != nil {
		db.logger.Debugw("rolling back in-memory transaction",
			"tx_id", tx.id,
			"depth", tx.depth,
			"error", err,
		)
		db.restore(states)
		return err
	}
	return nil
}

func (db *InMemoryDB) acquire(ctx context.Context) error {
	timer := time.NewTimer(db.lockTimeout)
	defer timer.Stop()

	select {
	case db.lock <- struct{}{}:
		return nil
	case <-timer.C:
		return ierr.NewError("lock wait timeout").
			WithHint("The record is being modified by another request, please retry").
			WithReportableDetails(map[string]any{
				"lock_timeout_ms": db.lockTimeout.Milliseconds(),
			}).
			Mark(ierr.ErrContention)
	case <-ctx.Done():
		return ierr.WithError(ctx.Err()).
			WithHint("The operation was cancelled while waiting for a lock").
			Mark(ierr.ErrContention)
	}
}

func (db *InMemoryDB) release() {
	<-db.lock
}

func (db *InMemoryDB) snapshot() []any {
	states := make([]any, len(db.stores))
	for i, s := range db.stores {
		states[i] = s.snapshot()
	}
	return states
}

func (db *InMemoryDB) restore(states []any) {
	for i, s := range db.stores {
		s.restore(states[i])
	}
}
