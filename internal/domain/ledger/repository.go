package ledger

import (
	"context"
	"time"

	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// Repository defines persistence operations for ledger entries and stock
// aggregates. Implementations must honor the transaction carried in ctx.
type Repository interface {
	// GetAggregate returns the current aggregate for the key, or a
	// zero-valued aggregate if none has been recorded yet.
	GetAggregate(ctx context.Context, storeID, productID id.ID) (StockAggregate, error)

	// GetAggregateForUpdate returns the aggregate with a pessimistic row
	// lock (FOR UPDATE). Missing rows yield a zero-valued aggregate.
	GetAggregateForUpdate(ctx context.Context, storeID, productID id.ID) (StockAggregate, error)

	// UpsertAggregate inserts or replaces the aggregate for its key.
	UpsertAggregate(ctx context.Context, agg StockAggregate) error

	// AppendEntries appends immutable ledger entries in order.
	AppendEntries(ctx context.Context, entries []LedgerEntry) error

	// NetRecordedDelta sums the quantity deltas already recorded for the
	// (batch, store, product, movement type) tuple. Used as the
	// idempotency guard against re-applying the same document.
	NetRecordedDelta(ctx context.Context, batchID, storeID, productID id.ID, movementType MovementType) (types.Quantity, error)

	// EntriesByBatch returns every entry recorded for the causing
	// document, ordered by insertion time.
	EntriesByBatch(ctx context.Context, batchID id.ID) ([]LedgerEntry, error)

	// LatestEntryBefore returns the most recent entry for the key dated
	// strictly before the given time, or nil if none exists.
	LatestEntryBefore(ctx context.Context, storeID, productID id.ID, before time.Time) (*LedgerEntry, error)

	// EntriesFrom returns all entries for the key with period >= from,
	// ordered by (period, created_at, id).
	EntriesFrom(ctx context.Context, storeID, productID id.ID, from time.Time) ([]LedgerEntry, error)

	// HasEntriesAfter reports whether any entry for the key is dated
	// strictly after the given time.
	HasEntriesAfter(ctx context.Context, storeID, productID id.ID, after time.Time) (bool, error)

	// AcquireKeyLock takes the transaction-scoped advisory lock for the
	// (store, product) key. Released automatically on commit/rollback.
	AcquireKeyLock(ctx context.Context, storeID, productID id.ID) error

	// ListEntries queries entries for the read-only reporting surface.
	ListEntries(ctx context.Context, filter EntryFilter) ([]LedgerEntry, error)

	// ListAggregates queries aggregates for the read-only reporting surface.
	ListAggregates(ctx context.Context, filter AggregateFilter) ([]StockAggregate, error)
}

// CausingDocument is the status-bearing capability the reprocessing
// engine needs from any of the five concrete document kinds. Modeling
// the document polymorphically avoids duplicating the engine per type.
type CausingDocument struct {
	ID     id.ID
	Type   string
	Status entity.Status
	Lines  []DocumentLine
}

// Effective reports whether the document's movements should currently
// contribute to stock.
func (d *CausingDocument) Effective() bool {
	return d.Status == entity.StatusCompleted
}

// Line returns the line for a product, or nil if the document has none.
func (d *CausingDocument) Line(productID id.ID) *DocumentLine {
	for i := range d.Lines {
		if d.Lines[i].ProductID == productID {
			return &d.Lines[i]
		}
	}
	return nil
}

// DocumentLine is one product line of a causing document.
type DocumentLine struct {
	ProductID id.ID
	Quantity  types.Quantity
	// UnitPrice is the authoritative line price: purchase price for
	// purchases, unit cost for returns. Zero when the kind carries none.
	UnitPrice types.Money
}

// DocumentResolver loads causing documents by their polymorphic
// reference, and writes back derived per-line values.
type DocumentResolver interface {
	// Resolve loads the causing document for a ledger entry.
	Resolve(ctx context.Context, docType string, docID id.ID) (*CausingDocument, error)

	// UpdateCostAtSale records the rolling average cost on a sale line.
	// The value is historical: after reprocessing it must be correct
	// relative to the healed ledger, not the state at original sale time.
	UpdateCostAtSale(ctx context.Context, saleID, productID id.ID, cost types.Money) error
}
