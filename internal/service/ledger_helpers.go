package service

import (
	"context"
	"sort"

	"github.com/flexprice/billing/internal/domain/customer"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/publisher"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// lockCustomers takes the row locks of the given customers in ascending id order, so two
// transactions touching the same pair of customers never wait on each other in a cycle.
func lockCustomers(ctx context.Context, repo customer.Repository, ids ...string) (map[string]*customer.Customer, error) {
	unique := lo.Uniq(lo.Compact(ids))
	sort.Strings(unique)

	locked := make(map[string]*customer.Customer, len(unique))
	for _, id := range unique {
		c, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = c
	}
	return locked, nil
}

// ownerChanged reports a row whose customer moved between the unlocked read used to pick
// the locks and the locked re-read
func ownerChanged(entity, id string) error {
	return ierr.NewError(entity + " changed while waiting for locks").
		WithHintf("The %s was modified by another request, please retry", entity).
		WithReportableDetails(map[string]any{
			"entity": entity,
			"id":     id,
		}).
		Mark(ierr.ErrContention)
}

// customerBalances reads the current balances of ids inside the running transaction
func customerBalances(ctx context.Context, repo customer.Repository, ids ...string) (map[string]decimal.Decimal, error) {
	balances := make(map[string]decimal.Decimal)
	for _, id := range lo.Uniq(lo.Compact(ids)) {
		c, err := repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		balances[id] = c.Balance
	}
	return balances, nil
}

// publishLedgerEvent publishes after commit. A failure is logged and never surfaces to the
// caller since the ledger change is already durable.
func publishLedgerEvent(ctx context.Context, params ServiceParams, name string, payload types.LedgerEventPayload) {
	if params.LedgerPublisher == nil {
		return
	}

	log := params.Logger.WithContext(ctx)
	event, err := publisher.NewLedgerEvent(ctx, name, payload)
	if err != nil {
		log.Errorw("failed to build ledger event", "event_name", name, "entity_id", payload.EntityID, "error", err)
		return
	}

	if err := params.LedgerPublisher.Publish(ctx, event); err != nil {
		log.Errorw("failed to publish ledger event",
			"event_id", event.ID,
			"event_name", name,
			"entity_id", payload.EntityID,
			"error", err,
		)
	}
}
