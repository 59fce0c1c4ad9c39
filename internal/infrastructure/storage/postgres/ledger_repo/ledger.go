// Package ledger_repo provides the PostgreSQL implementation of the
// valuation ledger repository.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
	"kardex/internal/infrastructure/storage/postgres"
)

const (
	entriesTable  = "reg_valuation_entries"
	balancesTable = "reg_valuation_balances"
)

var entryColumns = []string{
	"id", "movement_type", "store_id", "product_id", "period",
	"quantity_delta", "quantity_before", "quantity_after",
	"cost_after", "amount", "reason", "parent_entry_id",
	"causation_id", "batch_id", "recorder_id", "recorder_type",
	"created_at",
}

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetAggregate returns the current aggregate, zero-valued when missing.
func (r *LedgerRepo) GetAggregate(ctx context.Context, storeID, productID id.ID) (ledger.StockAggregate, error) {
	return r.getAggregate(ctx, storeID, productID, false)
}

// GetAggregateForUpdate returns the aggregate with a pessimistic row lock.
func (r *LedgerRepo) GetAggregateForUpdate(ctx context.Context, storeID, productID id.ID) (ledger.StockAggregate, error) {
	return r.getAggregate(ctx, storeID, productID, true)
}

func (r *LedgerRepo) getAggregate(ctx context.Context, storeID, productID id.ID, forUpdate bool) (ledger.StockAggregate, error) {
	agg := ledger.StockAggregate{
		StoreID:     storeID,
		ProductID:   productID,
		Quantity:    types.Zero(),
		AverageCost: types.Zero(),
	}

	sql := `
		SELECT store_id, product_id, quantity, average_cost, last_movement_at, updated_at
		FROM reg_valuation_balances
		WHERE store_id = $1 AND product_id = $2
	`
	if forUpdate {
		sql += " FOR UPDATE"
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &agg, sql, storeID, productID); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.StockAggregate{
				StoreID:     storeID,
				ProductID:   productID,
				Quantity:    types.Zero(),
				AverageCost: types.Zero(),
			}, nil
		}
		return agg, fmt.Errorf("get aggregate: %w", err)
	}

	return agg, nil
}

// UpsertAggregate inserts or replaces the aggregate for its key.
func (r *LedgerRepo) UpsertAggregate(ctx context.Context, agg ledger.StockAggregate) error {
	sql := `
		INSERT INTO reg_valuation_balances
			(store_id, product_id, quantity, average_cost, last_movement_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (store_id, product_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			average_cost = EXCLUDED.average_cost,
			last_movement_at = EXCLUDED.last_movement_at,
			updated_at = EXCLUDED.updated_at
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		agg.StoreID, agg.ProductID, agg.Quantity, agg.AverageCost,
		agg.LastMovementAt, agg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert aggregate: %w", err)
	}
	return nil
}

// AppendEntries appends immutable ledger entries in order.
// Uses COPY when inside a transaction, which is the normal path.
func (r *LedgerRepo) AppendEntries(ctx context.Context, entries []ledger.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	if t := r.txManager.GetTx(ctx); t != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(entries))
		for _, en := range entries {
			rows = append(rows, []any{
				en.ID, en.MovementType, en.StoreID, en.ProductID, en.Period,
				en.QuantityDelta, en.QuantityBefore, en.QuantityAfter,
				en.CostAfter, en.Amount, en.Reason, en.ParentEntryID,
				en.CausationID, en.BatchID, en.RecorderID, en.RecorderType,
				en.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, entriesTable, entryColumns, rows); err != nil {
			return fmt.Errorf("copy entries: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(entriesTable).Columns(entryColumns...)
	for _, en := range entries {
		q = q.Values(
			en.ID, en.MovementType, en.StoreID, en.ProductID, en.Period,
			en.QuantityDelta, en.QuantityBefore, en.QuantityAfter,
			en.CostAfter, en.Amount, en.Reason, en.ParentEntryID,
			en.CausationID, en.BatchID, en.RecorderID, en.RecorderType,
			en.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert entries: %w", err)
	}
	return nil
}

// NetRecordedDelta sums quantity deltas for the idempotency guard.
func (r *LedgerRepo) NetRecordedDelta(ctx context.Context, batchID, storeID, productID id.ID, movementType ledger.MovementType) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(quantity_delta), 0)
		FROM reg_valuation_entries
		WHERE batch_id = $1 AND store_id = $2 AND product_id = $3 AND movement_type = $4
	`

	var net decimal.Decimal
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, batchID, storeID, productID, movementType).Scan(&net); err != nil {
		return types.Zero(), fmt.Errorf("net recorded delta: %w", err)
	}
	return net, nil
}

// EntriesByBatch returns all entries recorded for a causing document.
func (r *LedgerRepo) EntriesByBatch(ctx context.Context, batchID id.ID) ([]ledger.LedgerEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []ledger.LedgerEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries by batch: %w", err)
	}
	return entries, nil
}

// LatestEntryBefore returns the last entry dated strictly before the
// given time, or nil if none exists.
func (r *LedgerRepo) LatestEntryBefore(ctx context.Context, storeID, productID id.ID, before time.Time) (*ledger.LedgerEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"store_id": storeID, "product_id": productID}).
		Where(squirrel.Lt{"period": before}).
		OrderBy("period DESC", "created_at DESC", "id DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entry ledger.LedgerEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &entry, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest entry before: %w", err)
	}
	return &entry, nil
}

// EntriesFrom returns all entries for the key with period >= from.
func (r *LedgerRepo) EntriesFrom(ctx context.Context, storeID, productID id.ID, from time.Time) ([]ledger.LedgerEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"store_id": storeID, "product_id": productID}).
		Where(squirrel.GtOrEq{"period": from}).
		OrderBy("period", "created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []ledger.LedgerEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries from: %w", err)
	}
	return entries, nil
}

// HasEntriesAfter reports whether any entry is dated strictly after the
// given time.
func (r *LedgerRepo) HasEntriesAfter(ctx context.Context, storeID, productID id.ID, after time.Time) (bool, error) {
	sql := `
		SELECT EXISTS(
			SELECT 1 FROM reg_valuation_entries
			WHERE store_id = $1 AND product_id = $2 AND period > $3
		)
	`

	var exists bool
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, storeID, productID, after).Scan(&exists); err != nil {
		return false, fmt.Errorf("has entries after: %w", err)
	}
	return exists, nil
}

// AcquireKeyLock takes the transaction-scoped advisory lock for the key.
// The lock is released automatically on commit or rollback.
func (r *LedgerRepo) AcquireKeyLock(ctx context.Context, storeID, productID id.ID) error {
	sql := `SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::text, 0))`

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, storeID, productID); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// ListEntries queries entries for the read-only reporting surface.
func (r *LedgerRepo) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]ledger.LedgerEntry, error) {
	q := r.builder.Select(entryColumns...).From(entriesTable)

	if filter.StoreID != nil {
		q = q.Where(squirrel.Eq{"store_id": *filter.StoreID})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.MovementType != nil {
		q = q.Where(squirrel.Eq{"movement_type": *filter.MovementType})
	}
	if filter.Reason != nil {
		q = q.Where(squirrel.Eq{"reason": *filter.Reason})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"period": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"period": *filter.ToDate})
	}

	q = q.OrderBy("period DESC", "created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []ledger.LedgerEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return entries, nil
}

// ListAggregates queries aggregates for the read-only reporting surface.
func (r *LedgerRepo) ListAggregates(ctx context.Context, filter ledger.AggregateFilter) ([]ledger.StockAggregate, error) {
	q := r.builder.Select(
		"store_id", "product_id", "quantity", "average_cost",
		"last_movement_at", "updated_at",
	).From(balancesTable)

	if filter.StoreID != nil {
		q = q.Where(squirrel.Eq{"store_id": *filter.StoreID})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"quantity": 0})
	}

	q = q.OrderBy("store_id", "product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var aggs []ledger.StockAggregate
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &aggs, sql, args...); err != nil {
		return nil, fmt.Errorf("select aggregates: %w", err)
	}
	return aggs, nil
}

var _ ledger.Repository = (*LedgerRepo)(nil)
