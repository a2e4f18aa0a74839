package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
)

// SequenceSyncResult reports one counter of the tenant
type SequenceSyncResult struct {
	TenantID     string             `json:"tenant_id"`
	Kind         types.SequenceKind `json:"kind"`
	Prefix       string             `json:"prefix"`
	Current      int64              `json:"current"`
	HighestTaken int64              `json:"highest_taken"`
	WouldRaise   bool               `json:"would_raise"`
}

// SyncSequences raises each document counter of the tenant to the highest number already
// stored under the configured prefix, so imported documents stop costing retries. Counters
// are never lowered.
func SyncSequences() error {
	env, err := newScriptEnv()
	if err != nil {
		return err
	}
	defer env.db.Close()

	dryRun := isDryRun()
	if dryRun {
		log.Println("DRY RUN MODE - no changes will be made")
	}

	targets := []struct {
		kind   types.SequenceKind
		prefix string
		table  string
		column string
	}{
		{types.SequenceKindInvoice, env.cfg.Ledger.InvoicePrefix, "invoices", "invoice_number"},
		{types.SequenceKindPayment, env.cfg.Ledger.PaymentPrefix, "payments", "payment_number"},
	}

	tenantID := types.GetTenantID(env.ctx)
	results := make([]SequenceSyncResult, 0, len(targets))

	err = env.db.WithTx(env.ctx, func(ctx context.Context) error {
		q := env.db.GetQuerier(ctx)
		for _, t := range targets {
			var numbers []string
			query := fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = $1 AND %s LIKE $2 || '%%'`, t.column, t.table, t.column)
			if err := q.SelectContext(ctx, &numbers, query, tenantID, t.prefix); err != nil {
				return fmt.Errorf("failed to read %s: %w", t.table, err)
			}

			var current int64
			if err := q.GetContext(ctx, &current,
				`SELECT COALESCE(MAX(last_value), 0) FROM document_sequences WHERE tenant_id = $1 AND kind = $2`,
				tenantID, t.kind); err != nil {
				return fmt.Errorf("failed to read counter %s: %w", t.kind, err)
			}

			highest := highestNumber(numbers, t.prefix)
			result := SequenceSyncResult{
				TenantID:     tenantID,
				Kind:         t.kind,
				Prefix:       t.prefix,
				Current:      current,
				HighestTaken: highest,
				WouldRaise:   highest > current,
			}
			results = append(results, result)

			if !result.WouldRaise || dryRun {
				continue
			}

			_, err := q.ExecContext(ctx, `
				INSERT INTO document_sequences (tenant_id, kind, last_value, created_at, updated_at)
				VALUES ($1, $2, $3, NOW(), NOW())
				ON CONFLICT (tenant_id, kind) DO UPDATE
				SET last_value = GREATEST(document_sequences.last_value, EXCLUDED.last_value),
					updated_at = NOW()`,
				tenantID, t.kind, highest)
			if err != nil {
				return fmt.Errorf("failed to raise counter %s: %w", t.kind, err)
			}
			env.logger.Infow("raised document counter", "tenant_id", tenantID, "kind", t.kind, "from", current, "to", highest)
		}
		return nil
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// highestNumber returns the largest counter value among numbers of the form <prefix><n>
func highestNumber(numbers []string, prefix string) int64 {
	values := lo.FilterMap(numbers, func(number string, _ int) (int64, bool) {
		n, err := strconv.ParseInt(strings.TrimPrefix(number, prefix), 10, 64)
		return n, err == nil && n > 0 && strings.HasPrefix(number, prefix)
	})
	return lo.Max(values)
}
