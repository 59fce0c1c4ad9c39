package posting

import (
	"bytes"
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
)

// memRepo is an in-memory ledger.Repository for engine tests.
type memRepo struct {
	entries []ledger.LedgerEntry
	aggs    map[[2]id.ID]ledger.StockAggregate
}

func newMemRepo() *memRepo {
	return &memRepo{aggs: make(map[[2]id.ID]ledger.StockAggregate)}
}

func (r *memRepo) GetAggregate(_ context.Context, storeID, productID id.ID) (ledger.StockAggregate, error) {
	if agg, ok := r.aggs[[2]id.ID{storeID, productID}]; ok {
		return agg, nil
	}
	return ledger.StockAggregate{
		StoreID:     storeID,
		ProductID:   productID,
		Quantity:    types.Zero(),
		AverageCost: types.Zero(),
	}, nil
}

func (r *memRepo) GetAggregateForUpdate(ctx context.Context, storeID, productID id.ID) (ledger.StockAggregate, error) {
	return r.GetAggregate(ctx, storeID, productID)
}

func (r *memRepo) UpsertAggregate(_ context.Context, agg ledger.StockAggregate) error {
	r.aggs[[2]id.ID{agg.StoreID, agg.ProductID}] = agg
	return nil
}

func (r *memRepo) AppendEntries(_ context.Context, entries []ledger.LedgerEntry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memRepo) NetRecordedDelta(_ context.Context, batchID, storeID, productID id.ID, movementType ledger.MovementType) (types.Quantity, error) {
	sum := types.Zero()
	for _, en := range r.entries {
		if en.BatchID == batchID && en.StoreID == storeID &&
			en.ProductID == productID && en.MovementType == movementType {
			sum = sum.Add(en.QuantityDelta)
		}
	}
	return sum, nil
}

func (r *memRepo) EntriesByBatch(_ context.Context, batchID id.ID) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
	for _, en := range r.entries {
		if en.BatchID == batchID {
			out = append(out, en)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memRepo) LatestEntryBefore(_ context.Context, storeID, productID id.ID, before time.Time) (*ledger.LedgerEntry, error) {
	var best *ledger.LedgerEntry
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

func (r *memRepo) EntriesFrom(_ context.Context, storeID, productID id.ID, from time.Time) ([]ledger.LedgerEntry, error) {
	var out []ledger.LedgerEntry
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

func (r *memRepo) HasEntriesAfter(_ context.Context, storeID, productID id.ID, after time.Time) (bool, error) {
	for _, en := range r.entries {
		if en.StoreID == storeID && en.ProductID == productID && en.Period.After(after) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) AcquireKeyLock(_ context.Context, _, _ id.ID) error { return nil }

func (r *memRepo) ListEntries(_ context.Context, _ ledger.EntryFilter) ([]ledger.LedgerEntry, error) {
	return r.entries, nil
}

func (r *memRepo) ListAggregates(_ context.Context, _ ledger.AggregateFilter) ([]ledger.StockAggregate, error) {
	out := make([]ledger.StockAggregate, 0, len(r.aggs))
	for _, agg := range r.aggs {
		out = append(out, agg)
	}
	return out, nil
}

var _ ledger.Repository = (*memRepo)(nil)

// memResolver projects live testDoc state so status changes made by the
// engine are visible to reprocessing.
type memResolver struct {
	docs      map[id.ID]*testDoc
	saleCosts map[id.ID]types.Money
}

func newMemResolver() *memResolver {
	return &memResolver{
		docs:      make(map[id.ID]*testDoc),
		saleCosts: make(map[id.ID]types.Money),
	}
}

func (r *memResolver) add(doc *testDoc) {
	r.docs[doc.ID] = doc
}

func (r *memResolver) Resolve(_ context.Context, _ string, docID id.ID) (*ledger.CausingDocument, error) {
	if doc, ok := r.docs[docID]; ok {
		return doc.causing(), nil
	}
	return nil, apperror.NewNotFound("document", docID)
}

func (r *memResolver) UpdateCostAtSale(_ context.Context, saleID, _ id.ID, cost types.Money) error {
	r.saleCosts[saleID] = cost
	return nil
}

type passthroughTxm struct{}

func (passthroughTxm) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughTxm) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// testDoc is a minimal Postable moving one product in one store.
type testDoc struct {
	entity.Document
	docType   string
	storeID   id.ID
	productID id.ID
	quantity  types.Quantity
	unitPrice types.Money
	direction ledger.Direction
	movement  ledger.MovementType
}

func (d *testDoc) GetDocumentType() string { return d.docType }

func (d *testDoc) GenerateApplications(_ context.Context) ([]ledger.ApplyRequest, error) {
	return []ledger.ApplyRequest{{
		DocumentID:   d.ID,
		DocumentType: d.docType,
		Period:       d.Date,
		Direction:    d.direction,
		Items: []ledger.ApplyItem{{
			StoreID:   d.storeID,
			ProductID: d.productID,
			Type:      d.movement,
			Quantity:  d.quantity,
			UnitPrice: d.unitPrice,
		}},
	}}, nil
}

func (d *testDoc) causing() *ledger.CausingDocument {
	return &ledger.CausingDocument{
		ID:     d.ID,
		Type:   d.docType,
		Status: d.Status,
		Lines: []ledger.DocumentLine{{
			ProductID: d.productID,
			Quantity:  d.quantity,
			UnitPrice: d.unitPrice,
		}},
	}
}

func newTestPurchase(storeID, productID id.ID, quantity, price string, date time.Time) *testDoc {
	doc := &testDoc{
		Document:  entity.NewDocument(),
		docType:   "Purchase",
		storeID:   storeID,
		productID: productID,
		quantity:  types.MustDecimal(quantity),
		unitPrice: types.MustDecimal(price),
		direction: ledger.DirectionIn,
		movement:  ledger.MovementPurchase,
	}
	doc.Date = date
	return doc
}

func newTestSale(storeID, productID id.ID, quantity string, date time.Time) *testDoc {
	doc := &testDoc{
		Document:  entity.NewDocument(),
		docType:   "Sale",
		storeID:   storeID,
		productID: productID,
		quantity:  types.MustDecimal(quantity),
		unitPrice: types.Zero(),
		direction: ledger.DirectionOut,
		movement:  ledger.MovementSale,
	}
	doc.Date = date
	return doc
}

func newTestEngine(repo *memRepo, resolver *memResolver) *Engine {
	writer := ledger.NewWriter(repo, resolver)
	guard := ledger.NewGuard(repo)
	processor := ledger.NewEngine(repo, resolver, passthroughTxm{})
	return NewEngine(writer, guard, processor, passthroughTxm{})
}

func noUpdate(_ context.Context) error { return nil }

func date(n int) time.Time {
	return time.Date(2026, time.April, n, 9, 0, 0, 0, time.UTC)
}

func TestEngine_CompleteRecordsMovements(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	resolver := newMemResolver()
	engine := newTestEngine(repo, resolver)
	storeID, productID := id.New(), id.New()

	doc := newTestPurchase(storeID, productID, "10", "10.00", date(1))
	resolver.add(doc)

	updated := false
	err := engine.Complete(ctx, doc, func(_ context.Context) error {
		updated = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, entity.StatusCompleted, doc.Status)

	agg, _ := repo.GetAggregate(ctx, storeID, productID)
	assert.True(t, agg.Quantity.Equal(types.MustDecimal("10")))
	assert.True(t, agg.AverageCost.Equal(types.MustDecimal("10.00")))
	assert.Len(t, repo.entries, 1)
}

func TestEngine_CompleteTwiceFails(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	resolver := newMemResolver()
	engine := newTestEngine(repo, resolver)
	storeID, productID := id.New(), id.New()

	doc := newTestPurchase(storeID, productID, "10", "10.00", date(1))
	resolver.add(doc)

	require.NoError(t, engine.Complete(ctx, doc, noUpdate))
	err := engine.Complete(ctx, doc, noUpdate)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidStatusTransition))
}

func TestEngine_CancelRevertsMovements(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	resolver := newMemResolver()
	engine := newTestEngine(repo, resolver)
	storeID, productID := id.New(), id.New()

	doc := newTestPurchase(storeID, productID, "10", "10.00", date(1))
	resolver.add(doc)
	require.NoError(t, engine.Complete(ctx, doc, noUpdate))

	err := engine.Cancel(ctx, doc, noUpdate)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, doc.Status)

	agg, _ := repo.GetAggregate(ctx, storeID, productID)
	assert.True(t, agg.Quantity.IsZero())
	assert.Len(t, repo.entries, 2)
	assert.Equal(t, ledger.ReasonReversal, repo.entries[1].Reason)
}

func TestEngine_CancelBlockedByConsumedStock(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	resolver := newMemResolver()
	engine := newTestEngine(repo, resolver)
	storeID, productID := id.New(), id.New()

	receipt := newTestPurchase(storeID, productID, "10", "10.00", date(1))
	resolver.add(receipt)
	require.NoError(t, engine.Complete(ctx, receipt, noUpdate))

	sold := newTestSale(storeID, productID, "8", date(2))
	resolver.add(sold)
	require.NoError(t, engine.Complete(ctx, sold, noUpdate))

	err := engine.Cancel(ctx, receipt, noUpdate)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStockRevert))
}

func TestEngine_RetroactiveCompletionReprocessesDownstream(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	resolver := newMemResolver()
	engine := newTestEngine(repo, resolver)
	storeID, productID := id.New(), id.New()

	first := newTestPurchase(storeID, productID, "10", "10.00", date(1))
	resolver.add(first)
	require.NoError(t, engine.Complete(ctx, first, noUpdate))

	sold := newTestSale(storeID, productID, "5", date(3))
	resolver.add(sold)
	require.NoError(t, engine.Complete(ctx, sold, noUpdate))

	// Back-dated purchase: completing it must heal the sale recorded
	// after its business date.
	retro := newTestPurchase(storeID, productID, "10", "20.00", date(2))
	resolver.add(retro)
	require.NoError(t, engine.Complete(ctx, retro, noUpdate))

	agg, _ := repo.GetAggregate(ctx, storeID, productID)
	assert.True(t, agg.Quantity.Equal(types.MustDecimal("15")), "qty %s", agg.Quantity)
	assert.True(t, agg.AverageCost.Equal(types.MustDecimal("15.00")), "cost %s", agg.AverageCost)

	cost, ok := resolver.saleCosts[sold.ID]
	require.True(t, ok)
	assert.True(t, cost.Equal(types.MustDecimal("15.00")), "cost at sale %s", cost)
}
