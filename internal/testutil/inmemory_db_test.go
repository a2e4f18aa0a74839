package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flexprice/billing/internal/domain/customer"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCustomer(ctx context.Context, code string) *customer.Customer {
	return &customer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		Code:      code,
		Name:      code,
		Balance:   decimal.Zero,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

func TestInMemoryDB_RollbackRestoresStores(t *testing.T) {
	ctx := SetupContext()
	customers := NewInMemoryCustomerStore()
	db := NewInMemoryDB(logger.NewNoopLogger(), time.Second, customers)

	kept := newTestCustomer(ctx, "kept")
	require.NoError(t, customers.Create(ctx, kept))

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, customers.Create(txCtx, newTestCustomer(txCtx, "dropped")))
		_, err := customers.AdjustBalance(txCtx, kept.ID, decimal.NewFromInt(10))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := customers.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := customers.Get(ctx, kept.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())
}

func TestInMemoryDB_NestedRollbackKeepsOuterWork(t *testing.T) {
	ctx := SetupContext()
	customers := NewInMemoryCustomerStore()
	db := NewInMemoryDB(logger.NewNoopLogger(), time.Second, customers)

	err := db.WithTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, customers.Create(txCtx, newTestCustomer(txCtx, "outer")))

		inner := db.WithTx(txCtx, func(innerCtx context.Context) error {
			require.NoError(t, customers.Create(innerCtx, newTestCustomer(innerCtx, "inner")))
			return errors.New("inner failed")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	list, err := customers.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "outer", list[0].Code)
}

func TestInMemoryDB_PanicRestoresStores(t *testing.T) {
	ctx := SetupContext()
	customers := NewInMemoryCustomerStore()
	db := NewInMemoryDB(logger.NewNoopLogger(), time.Second, customers)

	assert.Panics(t, func() {
		_ = db.WithTx(ctx, func(txCtx context.Context) error {
			require.NoError(t, customers.Create(txCtx, newTestCustomer(txCtx, "lost")))
			panic("boom")
		})
	})

	n, err := customers.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	// the lock was released by the panicking transaction
	assert.NoError(t, db.WithTx(ctx, func(context.Context) error { return nil }))
}

func TestInMemoryDB_Contention(t *testing.T) {
	ctx := SetupContext()
	db := NewInMemoryDB(logger.NewNoopLogger(), 20*time.Millisecond)

	held := make(chan struct{})
	release := make(chan struct{})
	var wg conc.WaitGroup
	wg.Go(func() {
		_ = db.WithTx(ctx, func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	})
	<-held

	err := db.WithTx(ctx, func(context.Context) error { return nil })
	close(release)
	wg.Wait()

	require.Error(t, err)
	assert.True(t, ierr.IsContention(err))
	assert.Equal(t, ierr.ErrCodeContention, ierr.CodeFromErr(err))
}

func TestInMemorySequenceStore_Next(t *testing.T) {
	ctx := SetupContext()
	seq := NewInMemorySequenceStore()

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(ctx, types.SequenceKindInvoice)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := seq.Next(ctx, types.SequenceKindPayment)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	other := types.SetTenantID(ctx, "tenant_other")
	got, err = seq.Next(other, types.SequenceKindInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	_, err = seq.Next(ctx, types.SequenceKind("credit_note"))
	assert.True(t, ierr.IsValidation(err))
}
