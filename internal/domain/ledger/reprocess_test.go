package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
)

func completedDoc(docID id.ID, docType string, productID id.ID, quantity, price string) *CausingDocument {
	return &CausingDocument{
		ID:     docID,
		Type:   docType,
		Status: entity.StatusCompleted,
		Lines: []DocumentLine{{
			ProductID: productID,
			Quantity:  qty(quantity),
			UnitPrice: money(price),
		}},
	}
}

func countByReason(entries []LedgerEntry, reason EntryReason) int {
	n := 0
	for _, en := range entries {
		if en.Reason == reason {
			n++
		}
	}
	return n
}

func TestEngine_RetroactiveInsertHealsDownstream(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := newFakeResolver()
	w := NewWriter(repo, resolver)
	engine := NewEngine(repo, resolver, fakeTxManager{})
	storeID, productID := id.New(), id.New()

	p1 := applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	resolver.add(completedDoc(p1, "Purchase", productID, "10", "10.00"))

	saleID, err := applySale(w, storeID, productID, "5", 3)
	require.NoError(t, err)
	resolver.add(completedDoc(saleID, "Sale", productID, "5", "0"))

	// A purchase lands retroactively between the first receipt and the
	// sale; the writer applies it at the tail, leaving the sale's recorded
	// snapshots stale.
	p2 := applyPurchase(t, w, storeID, productID, "10", "20.00", 2)
	resolver.add(completedDoc(p2, "Purchase", productID, "10", "20.00"))

	err = engine.ReprocessIfNeeded(ctx, ReprocessKey{StoreID: storeID, ProductID: productID, From: day(2)}, id.New())
	require.NoError(t, err)

	agg, _ := repo.GetAggregate(ctx, storeID, productID)
	assert.True(t, agg.Quantity.Equal(qty("15.000")), "qty %s", agg.Quantity)
	// 10 @ 10.00 blended with 10 @ 20.00 gives 15.00; the sale leaves it
	// unchanged.
	assert.True(t, agg.AverageCost.Equal(money("15.00")), "cost %s", agg.AverageCost)

	// The retro purchase and the sale were both repaired in place.
	assert.Equal(t, 2, countByReason(repo.entries, ReasonReversal))
	assert.Equal(t, 2, countByReason(repo.entries, ReasonCorrection))

	// The healed cost at sale time was written back to the sale line.
	cost, ok := resolver.saleCosts[saleCostKey{saleID, productID}]
	require.True(t, ok)
	assert.True(t, cost.Equal(money("15.00")), "cost at sale %s", cost)
}

func TestEngine_ReprocessIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := newFakeResolver()
	w := NewWriter(repo, resolver)
	engine := NewEngine(repo, resolver, fakeTxManager{})
	storeID, productID := id.New(), id.New()

	p1 := applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	resolver.add(completedDoc(p1, "Purchase", productID, "10", "10.00"))
	saleID, err := applySale(w, storeID, productID, "5", 3)
	require.NoError(t, err)
	resolver.add(completedDoc(saleID, "Sale", productID, "5", "0"))
	p2 := applyPurchase(t, w, storeID, productID, "10", "20.00", 2)
	resolver.add(completedDoc(p2, "Purchase", productID, "10", "20.00"))

	require.NoError(t, engine.Reprocess(ctx, storeID, productID, day(1), id.New()))
	healed := len(repo.entries)

	// A history at its fixed point must not grow on re-run.
	require.NoError(t, engine.Reprocess(ctx, storeID, productID, day(1), id.New()))
	assert.Equal(t, healed, len(repo.entries))
}

func TestEngine_PriceEditHealsHistory(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := newFakeResolver()
	w := NewWriter(repo, resolver)
	engine := NewEngine(repo, resolver, fakeTxManager{})
	storeID, productID := id.New(), id.New()

	p1 := applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	saleID, err := applySale(w, storeID, productID, "5", 2)
	require.NoError(t, err)
	resolver.add(completedDoc(saleID, "Sale", productID, "5", "0"))

	// The purchase price was edited after completion; the document is the
	// authority, the recorded entry is now stale.
	resolver.add(completedDoc(p1, "Purchase", productID, "10", "12.00"))

	require.NoError(t, engine.Reprocess(ctx, storeID, productID, day(1), id.New()))

	agg, _ := repo.GetAggregate(ctx, storeID, productID)
	assert.True(t, agg.Quantity.Equal(qty("5.000")))
	assert.True(t, agg.AverageCost.Equal(money("12.00")), "cost %s", agg.AverageCost)

	cost := resolver.saleCosts[saleCostKey{saleID, productID}]
	assert.True(t, cost.Equal(money("12.00")), "cost at sale %s", cost)

	// The corrected purchase entry carries the edited valuation.
	var corrected *LedgerEntry
	for i := range repo.entries {
		if repo.entries[i].Reason == ReasonCorrection && repo.entries[i].RecorderID == p1 {
			corrected = &repo.entries[i]
		}
	}
	require.NotNil(t, corrected)
	assert.True(t, corrected.Amount.Equal(money("120.00")), "amount %s", corrected.Amount)
}

func TestEngine_ReversesEntriesOfCancelledDocument(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := newFakeResolver()
	w := NewWriter(repo, resolver)
	engine := NewEngine(repo, resolver, fakeTxManager{})
	storeID, productID := id.New(), id.New()

	p1 := applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	resolver.add(completedDoc(p1, "Purchase", productID, "10", "10.00"))
	p2 := applyPurchase(t, w, storeID, productID, "5", "20.00", 2)
	saleID, err := applySale(w, storeID, productID, "4", 3)
	require.NoError(t, err)
	resolver.add(completedDoc(saleID, "Sale", productID, "4", "0"))

	// The second purchase was cancelled without its entries being
	// reverted; reprocessing must stop it contributing.
	cancelled := completedDoc(p2, "Purchase", productID, "5", "20.00")
	cancelled.Status = entity.StatusCancelled
	resolver.add(cancelled)

	require.NoError(t, engine.Reprocess(ctx, storeID, productID, day(1), id.New()))

	agg, _ := repo.GetAggregate(ctx, storeID, productID)
	assert.True(t, agg.Quantity.Equal(qty("6.000")), "qty %s", agg.Quantity)
	assert.True(t, agg.AverageCost.Equal(money("10.00")), "cost %s", agg.AverageCost)

	// The cancelled purchase got a reversal; the stale sale got repaired.
	cost := resolver.saleCosts[saleCostKey{saleID, productID}]
	assert.True(t, cost.Equal(money("10.00")))
}

func TestEngine_CancellingFirstPurchaseRepricesEverything(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := newFakeResolver()
	w := NewWriter(repo, resolver)
	engine := NewEngine(repo, resolver, fakeTxManager{})
	storeID, productID := id.New(), id.New()

	pa := applyPurchase(t, w, storeID, productID, "10", "100.00", 1)
	pb := applyPurchase(t, w, storeID, productID, "10", "200.00", 2)
	resolver.add(completedDoc(pb, "Purchase", productID, "10", "200.00"))
	saleID, err := applySale(w, storeID, productID, "1", 3)
	require.NoError(t, err)
	resolver.add(completedDoc(saleID, "Sale", productID, "1", "0"))

	// The sale went out at the blended 150.00.
	cost := resolver.saleCosts[saleCostKey{saleID, productID}]
	require.True(t, cost.Equal(money("150.00")))

	cancelled := completedDoc(pa, "Purchase", productID, "10", "100.00")
	cancelled.Status = entity.StatusCancelled
	resolver.add(cancelled)

	require.NoError(t, engine.Reprocess(ctx, storeID, productID, day(1), id.New()))

	agg, _ := repo.GetAggregate(ctx, storeID, productID)
	assert.True(t, agg.Quantity.Equal(qty("9.000")), "qty %s", agg.Quantity)
	assert.True(t, agg.AverageCost.Equal(money("200.00")), "cost %s", agg.AverageCost)

	// With the first receipt gone, the sale's unit cost is the second
	// receipt's price.
	cost = resolver.saleCosts[saleCostKey{saleID, productID}]
	assert.True(t, cost.Equal(money("200.00")), "cost at sale %s", cost)
}

func TestEngine_ReprocessIfNeeded_SkipsTailAppends(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := newFakeResolver()
	w := NewWriter(repo, resolver)
	engine := NewEngine(repo, resolver, fakeTxManager{})
	storeID, productID := id.New(), id.New()

	applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	before := len(repo.entries)

	// Nothing is dated after day 1, so the writer-maintained aggregate is
	// already correct and no replay happens.
	err := engine.ReprocessIfNeeded(ctx, ReprocessKey{StoreID: storeID, ProductID: productID, From: day(1)}, id.New())
	require.NoError(t, err)
	assert.Equal(t, before, len(repo.entries))
}

// discardingRepo simulates a store that silently loses appended repair
// entries, so every pass sees the same drift.
type discardingRepo struct {
	*fakeRepo
}

func (r *discardingRepo) AppendEntries(_ context.Context, _ []LedgerEntry) error {
	return nil
}

func TestEngine_NonConvergenceReportedAfterPassBudget(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := newFakeResolver()
	w := NewWriter(repo, resolver)
	storeID, productID := id.New(), id.New()

	p1 := applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	saleID, err := applySale(w, storeID, productID, "5", 2)
	require.NoError(t, err)
	resolver.add(completedDoc(saleID, "Sale", productID, "5", "0"))
	// Price edit introduces drift that the discarding repo can never heal.
	resolver.add(completedDoc(p1, "Purchase", productID, "10", "12.00"))

	engine := NewEngine(&discardingRepo{repo}, resolver, fakeTxManager{})
	err = engine.Reprocess(ctx, storeID, productID, day(1), id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeReprocessNonConvergence))
}

func TestSortCanonical_RepairPairKeepsOriginalSlot(t *testing.T) {
	base := day(1)
	orig := LedgerEntry{ID: id.New(), Period: base, CreatedAt: base}
	later := LedgerEntry{ID: id.New(), Period: base, CreatedAt: base.Add(time.Hour)}

	// Repair pair created long after both originals, parented on orig.
	rev := LedgerEntry{
		ID:            id.New(),
		Period:        base,
		CreatedAt:     base.Add(48 * time.Hour),
		Reason:        ReasonReversal,
		ParentEntryID: ptrID(orig.ID),
	}
	corr := LedgerEntry{
		ID:            id.New(),
		Period:        base,
		CreatedAt:     base.Add(48*time.Hour + time.Microsecond),
		Reason:        ReasonCorrection,
		ParentEntryID: ptrID(orig.ID),
	}

	entries := []LedgerEntry{later, corr, orig, rev}
	sortCanonical(entries)

	// The pair inherits the original's creation slot, sorting before the
	// later entry despite being created after it.
	assert.Equal(t, orig.ID, entries[0].ID)
	assert.Equal(t, rev.ID, entries[1].ID)
	assert.Equal(t, corr.ID, entries[2].ID)
	assert.Equal(t, later.ID, entries[3].ID)
}

func TestEngine_BaselineFromEarlierSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	resolver := newFakeResolver()
	w := NewWriter(repo, resolver)
	engine := NewEngine(repo, resolver, fakeTxManager{})
	storeID, productID := id.New(), id.New()

	p1 := applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	resolver.add(completedDoc(p1, "Purchase", productID, "10", "10.00"))
	saleID, err := applySale(w, storeID, productID, "5", 3)
	require.NoError(t, err)
	resolver.add(completedDoc(saleID, "Sale", productID, "5", "0"))

	// Replaying only from day 2 must pick up day 1's snapshot as baseline
	// and leave the consistent window untouched.
	before := len(repo.entries)
	require.NoError(t, engine.Reprocess(ctx, storeID, productID, day(2), id.New()))
	assert.Equal(t, before, len(repo.entries))

	agg, _ := repo.GetAggregate(ctx, storeID, productID)
	assert.True(t, agg.Quantity.Equal(qty("5.000")))
	assert.True(t, agg.AverageCost.Equal(money("10.00")))
}
