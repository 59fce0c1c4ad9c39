package ledger

import (
	"bytes"
	"context"
	"sort"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// In-memory fakes shared by the writer, guard and reprocessing tests.

type aggKey [2]id.ID

type fakeRepo struct {
	entries []LedgerEntry
	aggs    map[aggKey]StockAggregate
	locks   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{aggs: make(map[aggKey]StockAggregate)}
}

func (r *fakeRepo) key(storeID, productID id.ID) aggKey {
	return aggKey{storeID, productID}
}

func (r *fakeRepo) GetAggregate(_ context.Context, storeID, productID id.ID) (StockAggregate, error) {
	if agg, ok := r.aggs[r.key(storeID, productID)]; ok {
		return agg, nil
	}
	return StockAggregate{
		StoreID:     storeID,
		ProductID:   productID,
		Quantity:    types.Zero(),
		AverageCost: types.Zero(),
	}, nil
}

func (r *fakeRepo) GetAggregateForUpdate(ctx context.Context, storeID, productID id.ID) (StockAggregate, error) {
	return r.GetAggregate(ctx, storeID, productID)
}

func (r *fakeRepo) UpsertAggregate(_ context.Context, agg StockAggregate) error {
	r.aggs[r.key(agg.StoreID, agg.ProductID)] = agg
	return nil
}

func (r *fakeRepo) AppendEntries(_ context.Context, entries []LedgerEntry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeRepo) NetRecordedDelta(_ context.Context, batchID, storeID, productID id.ID, movementType MovementType) (types.Quantity, error) {
	sum := types.Zero()
	for _, en := range r.entries {
		if en.BatchID == batchID && en.StoreID == storeID &&
			en.ProductID == productID && en.MovementType == movementType {
			sum = sum.Add(en.QuantityDelta)
		}
	}
	return sum, nil
}

func (r *fakeRepo) EntriesByBatch(_ context.Context, batchID id.ID) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, en := range r.entries {
		if en.BatchID == batchID {
			out = append(out, en)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (r *fakeRepo) LatestEntryBefore(_ context.Context, storeID, productID id.ID, before time.Time) (*LedgerEntry, error) {
	var best *LedgerEntry
	for i := range r.entries {
		en := &r.entries[i]
		if en.StoreID != storeID || en.ProductID != productID || !en.Period.Before(before) {
			continue
		}
		if best == nil ||
			en.Period.After(best.Period) ||
			(en.Period.Equal(best.Period) && en.CreatedAt.After(best.CreatedAt)) {
			best = en
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r *fakeRepo) EntriesFrom(_ context.Context, storeID, productID id.ID, from time.Time) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, en := range r.entries {
		if en.StoreID == storeID && en.ProductID == productID && !en.Period.Before(from) {
			out = append(out, en)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Period.Equal(out[j].Period) {
			return out[i].Period.Before(out[j].Period)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (r *fakeRepo) HasEntriesAfter(_ context.Context, storeID, productID id.ID, after time.Time) (bool, error) {
	for _, en := range r.entries {
		if en.StoreID == storeID && en.ProductID == productID && en.Period.After(after) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) AcquireKeyLock(_ context.Context, _, _ id.ID) error {
	r.locks++
	return nil
}

func (r *fakeRepo) ListEntries(_ context.Context, filter EntryFilter) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, en := range r.entries {
		if filter.StoreID != nil && en.StoreID != *filter.StoreID {
			continue
		}
		if filter.ProductID != nil && en.ProductID != *filter.ProductID {
			continue
		}
		out = append(out, en)
	}
	return out, nil
}

func (r *fakeRepo) ListAggregates(_ context.Context, filter AggregateFilter) ([]StockAggregate, error) {
	var out []StockAggregate
	for _, agg := range r.aggs {
		if filter.StoreID != nil && agg.StoreID != *filter.StoreID {
			continue
		}
		if filter.ProductID != nil && agg.ProductID != *filter.ProductID {
			continue
		}
		if filter.ExcludeZero && agg.Quantity.IsZero() {
			continue
		}
		out = append(out, agg)
	}
	return out, nil
}

var _ Repository = (*fakeRepo)(nil)

type saleCostKey struct {
	saleID    id.ID
	productID id.ID
}

type fakeResolver struct {
	docs      map[id.ID]*CausingDocument
	saleCosts map[saleCostKey]types.Money
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		docs:      make(map[id.ID]*CausingDocument),
		saleCosts: make(map[saleCostKey]types.Money),
	}
}

func (r *fakeResolver) add(doc *CausingDocument) {
	r.docs[doc.ID] = doc
}

func (r *fakeResolver) Resolve(_ context.Context, _ string, docID id.ID) (*CausingDocument, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID)
	}
	return doc, nil
}

func (r *fakeResolver) UpdateCostAtSale(_ context.Context, saleID, productID id.ID, cost types.Money) error {
	r.saleCosts[saleCostKey{saleID, productID}] = cost
	return nil
}

var _ DocumentResolver = (*fakeResolver)(nil)

type fakeTxManager struct{}

func (m fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m fakeTxManager) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func qty(s string) types.Quantity { return types.MustDecimal(s) }
func money(s string) types.Money  { return types.MustDecimal(s) }

func day(n int) time.Time {
	return time.Date(2026, time.March, n, 12, 0, 0, 0, time.UTC)
}
