package ledger

import (
	"context"
	"fmt"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// RevertItem is one stock-decreasing line a pending revert would remove.
type RevertItem struct {
	ProductID id.ID
	Quantity  types.Quantity
	UnitCost  types.Money
}

// Guard validates that reverting a document cannot push a (store, product)
// key into negative quantity or negative valuation. It is a pre-flight
// check for the cancel flow; the writer re-checks inside the transaction.
type Guard struct {
	repo Repository
}

// NewGuard creates a revert guard.
func NewGuard(repo Repository) *Guard {
	return &Guard{repo: repo}
}

// ValidateRevert checks every stock-decreasing line against the current
// aggregate. Only incoming movements need guarding: reverting an outgoing
// movement adds stock back and is always safe.
func (g *Guard) ValidateRevert(ctx context.Context, storeID id.ID, items []RevertItem) error {
	for _, item := range items {
		agg, err := g.repo.GetAggregateForUpdate(ctx, storeID, item.ProductID)
		if err != nil {
			return fmt.Errorf("get aggregate: %w", err)
		}

		if agg.Quantity.LessThan(item.Quantity) {
			return apperror.NewInsufficientStockToRevert(
				item.ProductID.String(),
				item.Quantity.String(),
				agg.Quantity.String(),
			)
		}

		removed := item.Quantity.Mul(item.UnitCost)
		if agg.Value().LessThan(removed) {
			return apperror.NewNegativeValuationOnRevert(
				item.ProductID.String(),
				removed.String(),
				agg.Value().String(),
			)
		}
	}
	return nil
}

// RevertItemsForBatch derives the guard input from a document's
// still-effective incoming entries.
func (g *Guard) RevertItemsForBatch(ctx context.Context, batchID id.ID) (map[id.ID][]RevertItem, error) {
	entries, err := g.repo.EntriesByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("entries by batch: %w", err)
	}

	reversed := make(map[id.ID]bool)
	for _, en := range entries {
		if en.Reason == ReasonReversal && en.ParentEntryID != nil {
			reversed[*en.ParentEntryID] = true
		}
	}

	byStore := make(map[id.ID][]RevertItem)
	for _, en := range entries {
		if en.Reason == ReasonReversal || reversed[en.ID] {
			continue
		}
		if en.QuantityDelta.Sign() <= 0 {
			continue
		}
		byStore[en.StoreID] = append(byStore[en.StoreID], RevertItem{
			ProductID: en.ProductID,
			Quantity:  en.QuantityDelta,
			UnitCost:  en.Amount.Div(en.QuantityDelta),
		})
	}
	return byStore, nil
}
