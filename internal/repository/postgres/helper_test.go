package postgres

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/billing/internal/domain/sequence"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestWhereClause_Build(t *testing.T) {
	ctx := types.SetTenantID(context.Background(), "tenant_1")

	w := newTenantWhere(ctx)
	w.add("customer_id = ?", "cust_1")
	filter := &types.InvoiceFilter{QueryFilter: &types.QueryFilter{
		Limit:  lo.ToPtr(10),
		Offset: lo.ToPtr(20),
		Order:  lo.ToPtr(types.OrderAsc),
	}}
	suffix, extra := pageSuffix(filter, "invoice_date, id")
	query, args := w.build("SELECT id FROM invoices", suffix, extra...)

	assert.Equal(t,
		"SELECT id FROM invoices WHERE tenant_id = $1 AND status = $2 AND customer_id = $3 "+
			"ORDER BY invoice_date ASC, id ASC LIMIT $4 OFFSET $5",
		query)
	assert.Equal(t, []interface{}{"tenant_1", types.StatusPublished, "cust_1", 10, 20}, args)
}

func TestPageSuffix_Unlimited(t *testing.T) {
	filter := types.NewNoLimitInvoiceFilter()
	suffix, extra := pageSuffix(filter, "created_at")

	assert.Equal(t, "ORDER BY created_at DESC OFFSET ?", suffix)
	assert.Equal(t, []interface{}{0}, extra)
}

func TestMarkNumberTaken(t *testing.T) {
	taken := markNumberTaken(&pq.Error{Code: "23505", Constraint: InvoiceNumberConstraint}, InvoiceNumberConstraint)
	assert.True(t, errors.Is(taken, sequence.ErrNumberTaken))
	assert.True(t, ierr.IsAlreadyExists(taken))

	otherUnique := markNumberTaken(&pq.Error{Code: "23505", Constraint: "invoices_pkey"}, InvoiceNumberConstraint)
	assert.False(t, errors.Is(otherUnique, sequence.ErrNumberTaken))
	assert.True(t, ierr.IsAlreadyExists(otherUnique))
}
