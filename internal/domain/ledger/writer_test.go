package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
)

func applyPurchase(t *testing.T, w *Writer, storeID, productID id.ID, quantity, price string, dayN int) id.ID {
	t.Helper()
	docID := id.New()
	_, err := w.Apply(context.Background(), ApplyRequest{
		DocumentID:   docID,
		DocumentType: "Purchase",
		Period:       day(dayN),
		Direction:    DirectionIn,
		Items: []ApplyItem{{
			StoreID:   storeID,
			ProductID: productID,
			Type:      MovementPurchase,
			Quantity:  qty(quantity),
			UnitPrice: money(price),
		}},
	})
	require.NoError(t, err)
	return docID
}

func applySale(w *Writer, storeID, productID id.ID, quantity string, dayN int) (id.ID, error) {
	docID := id.New()
	_, err := w.Apply(context.Background(), ApplyRequest{
		DocumentID:   docID,
		DocumentType: "Sale",
		Period:       day(dayN),
		Direction:    DirectionOut,
		Items: []ApplyItem{{
			StoreID:   storeID,
			ProductID: productID,
			Type:      MovementSale,
			Quantity:  qty(quantity),
		}},
	})
	return docID, err
}

func TestWriter_ApplyPurchase_RecordsEntryAndAggregate(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)
	storeID, productID := id.New(), id.New()

	docID := applyPurchase(t, w, storeID, productID, "10", "10.00", 1)

	agg, err := repo.GetAggregate(context.Background(), storeID, productID)
	require.NoError(t, err)
	assert.True(t, agg.Quantity.Equal(qty("10.000")), "qty %s", agg.Quantity)
	assert.True(t, agg.AverageCost.Equal(money("10.00")), "cost %s", agg.AverageCost)

	require.Len(t, repo.entries, 1)
	en := repo.entries[0]
	assert.Equal(t, ReasonInitial, en.Reason)
	assert.Equal(t, MovementPurchase, en.MovementType)
	assert.Equal(t, docID, en.BatchID)
	assert.True(t, en.QuantityBefore.IsZero())
	assert.True(t, en.QuantityAfter.Equal(qty("10.000")))
	assert.True(t, en.Amount.Equal(money("100.00")), "amount %s", en.Amount)
	assert.Nil(t, en.ParentEntryID)
}

func TestWriter_ApplyBlendsAverageCost(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)
	storeID, productID := id.New(), id.New()

	applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	applyPurchase(t, w, storeID, productID, "10", "20.00", 2)

	agg, _ := repo.GetAggregate(context.Background(), storeID, productID)
	assert.True(t, agg.Quantity.Equal(qty("20.000")))
	assert.True(t, agg.AverageCost.Equal(money("15.00")), "cost %s", agg.AverageCost)
}

func TestWriter_SaleCarriesCostAndReducesQuantity(t *testing.T) {
	repo := newFakeRepo()
	resolver := newFakeResolver()
	w := NewWriter(repo, resolver)
	storeID, productID := id.New(), id.New()

	applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	applyPurchase(t, w, storeID, productID, "10", "20.00", 2)

	saleID, err := applySale(w, storeID, productID, "5", 3)
	require.NoError(t, err)

	agg, _ := repo.GetAggregate(context.Background(), storeID, productID)
	assert.True(t, agg.Quantity.Equal(qty("15.000")))
	// Outgoing movements never change the average cost.
	assert.True(t, agg.AverageCost.Equal(money("15.00")))

	en := repo.entries[len(repo.entries)-1]
	assert.True(t, en.QuantityDelta.Equal(qty("-5.000")))
	assert.True(t, en.Amount.Equal(money("-75.00")), "amount %s", en.Amount)

	// The rolling average at sale time is written back to the sale line.
	cost, ok := resolver.saleCosts[saleCostKey{saleID, productID}]
	require.True(t, ok)
	assert.True(t, cost.Equal(money("15.00")))
}

func TestWriter_SaleBelowZeroFails(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)
	storeID, productID := id.New(), id.New()

	applyPurchase(t, w, storeID, productID, "3", "10.00", 1)

	_, err := applySale(w, storeID, productID, "5", 2)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	// Nothing was recorded for the failed sale.
	require.Len(t, repo.entries, 1)
}

func TestWriter_ReapplyIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)
	storeID, productID := id.New(), id.New()
	docID := id.New()

	req := ApplyRequest{
		DocumentID:   docID,
		DocumentType: "Purchase",
		Period:       day(1),
		Direction:    DirectionIn,
		Items: []ApplyItem{{
			StoreID:   storeID,
			ProductID: productID,
			Type:      MovementPurchase,
			Quantity:  qty("10"),
			UnitPrice: money("10.00"),
		}},
	}

	_, err := w.Apply(context.Background(), req)
	require.NoError(t, err)
	_, err = w.Apply(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	agg, _ := repo.GetAggregate(context.Background(), storeID, productID)
	assert.True(t, agg.Quantity.Equal(qty("10.000")))
}

func TestWriter_TransferInInheritsSourceCost(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)
	source, dest, productID := id.New(), id.New(), id.New()

	applyPurchase(t, w, source, productID, "10", "12.00", 1)

	docID := id.New()
	_, err := w.Apply(context.Background(), ApplyRequest{
		DocumentID:   docID,
		DocumentType: "Transfer",
		Period:       day(2),
		Direction:    DirectionOut,
		Items: []ApplyItem{{
			StoreID:   source,
			ProductID: productID,
			Type:      MovementTransferOut,
			Quantity:  qty("4"),
		}},
	})
	require.NoError(t, err)

	_, err = w.Apply(context.Background(), ApplyRequest{
		DocumentID:   docID,
		DocumentType: "Transfer",
		Period:       day(2),
		Direction:    DirectionIn,
		Items: []ApplyItem{{
			StoreID:       dest,
			ProductID:     productID,
			Type:          MovementTransferIn,
			Quantity:      qty("4"),
			CostFromStore: &source,
		}},
	})
	require.NoError(t, err)

	srcAgg, _ := repo.GetAggregate(context.Background(), source, productID)
	destAgg, _ := repo.GetAggregate(context.Background(), dest, productID)
	assert.True(t, srcAgg.Quantity.Equal(qty("6.000")))
	assert.True(t, destAgg.Quantity.Equal(qty("4.000")))
	assert.True(t, destAgg.AverageCost.Equal(money("12.00")), "dest cost %s", destAgg.AverageCost)
}

func TestWriter_RejectsInvalidInput(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)

	_, err := w.Apply(context.Background(), ApplyRequest{Direction: "sideways"})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = w.Apply(context.Background(), ApplyRequest{
		Direction: DirectionIn,
		Items:     []ApplyItem{{Quantity: qty("0")}},
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestWriter_RevertReceiptRestoresState(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)
	storeID, productID := id.New(), id.New()

	docID := applyPurchase(t, w, storeID, productID, "10", "10.00", 1)

	keys, err := w.Revert(context.Background(), docID, id.New())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, storeID, keys[0].StoreID)
	assert.Equal(t, day(1), keys[0].From)

	agg, _ := repo.GetAggregate(context.Background(), storeID, productID)
	assert.True(t, agg.Quantity.IsZero(), "qty %s", agg.Quantity)

	require.Len(t, repo.entries, 2)
	rev := repo.entries[1]
	assert.Equal(t, ReasonReversal, rev.Reason)
	require.NotNil(t, rev.ParentEntryID)
	assert.Equal(t, repo.entries[0].ID, *rev.ParentEntryID)
	assert.True(t, rev.QuantityDelta.Equal(qty("-10.000")))
	assert.True(t, rev.Amount.Equal(money("-100.00")))
	// Dated at the original entry's period, not at revert time.
	assert.Equal(t, day(1), rev.Period)
}

func TestWriter_ReapplyAfterRevertRecordsAgain(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)
	storeID, productID := id.New(), id.New()
	docID := id.New()

	req := ApplyRequest{
		DocumentID:   docID,
		DocumentType: "Purchase",
		Period:       day(1),
		Direction:    DirectionIn,
		Items: []ApplyItem{{
			StoreID:   storeID,
			ProductID: productID,
			Type:      MovementPurchase,
			Quantity:  qty("10"),
			UnitPrice: money("10.00"),
		}},
	}

	_, err := w.Apply(context.Background(), req)
	require.NoError(t, err)
	_, err = w.Revert(context.Background(), docID, id.New())
	require.NoError(t, err)

	// The reversal zeroed the net recorded delta, so the guard lets the
	// document through again.
	_, err = w.Apply(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, repo.entries, 3)
	assert.Equal(t, ReasonInitial, repo.entries[2].Reason)
	agg, _ := repo.GetAggregate(context.Background(), storeID, productID)
	assert.True(t, agg.Quantity.Equal(qty("10.000")))
	assert.True(t, agg.AverageCost.Equal(money("10.00")))
}

func TestWriter_RevertIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)
	storeID, productID := id.New(), id.New()

	docID := applyPurchase(t, w, storeID, productID, "10", "10.00", 1)

	_, err := w.Revert(context.Background(), docID, id.New())
	require.NoError(t, err)
	keys, err := w.Revert(context.Background(), docID, id.New())
	require.NoError(t, err)

	assert.Empty(t, keys)
	assert.Len(t, repo.entries, 2)
}

func TestWriter_RevertReceiptBlockedByLaterSale(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)
	storeID, productID := id.New(), id.New()

	docID := applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	_, err := applySale(w, storeID, productID, "8", 2)
	require.NoError(t, err)

	_, err = w.Revert(context.Background(), docID, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStockRevert))
}

func TestWriter_RevertSaleReentersAtOriginalCost(t *testing.T) {
	repo := newFakeRepo()
	w := NewWriter(repo, nil)
	storeID, productID := id.New(), id.New()

	applyPurchase(t, w, storeID, productID, "10", "10.00", 1)
	saleID, err := applySale(w, storeID, productID, "4", 2)
	require.NoError(t, err)
	// A pricier receipt after the sale shifts the current average up.
	applyPurchase(t, w, storeID, productID, "6", "20.00", 3)

	_, err = w.Revert(context.Background(), saleID, id.New())
	require.NoError(t, err)

	agg, _ := repo.GetAggregate(context.Background(), storeID, productID)
	assert.True(t, agg.Quantity.Equal(qty("16.000")))
	// 12 @ 15.00 + 4 re-entering @ 10.00 = 220 / 16 = 13.75
	assert.True(t, agg.AverageCost.Equal(money("13.75")), "cost %s", agg.AverageCost)
}
