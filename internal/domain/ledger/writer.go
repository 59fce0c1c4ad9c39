package ledger

import (
	"context"
	"fmt"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/pkg/logger"
)

// ApplyItem is one product movement to record.
type ApplyItem struct {
	StoreID   id.ID
	ProductID id.ID
	Type      MovementType

	// Quantity is always positive; the sign comes from the direction.
	Quantity types.Quantity

	// UnitPrice is the incoming unit price (ignored for OUT movements).
	UnitPrice types.Money

	// CostFromStore, when set, prices the item at that store's current
	// average cost instead of UnitPrice. Used by transfer-in lines so the
	// destination inherits the source store's valuation.
	CostFromStore *id.ID
}

// ApplyRequest records the movements of one document in one direction.
type ApplyRequest struct {
	DocumentID   id.ID
	DocumentType string
	Period       time.Time
	Direction    Direction
	Items        []ApplyItem
}

// ReprocessKey identifies a (store, product) pair whose history must be
// re-derived from a given date.
type ReprocessKey struct {
	StoreID   id.ID
	ProductID id.ID
	From      time.Time
}

// Writer appends ledger entries and maintains the stock aggregates.
// All methods run inside the caller's transaction.
type Writer struct {
	repo     Repository
	resolver DocumentResolver
}

// NewWriter creates a ledger writer. The resolver is used to write the
// derived cost-at-sale back to sale lines; pass nil to skip write-back.
func NewWriter(repo Repository, resolver DocumentResolver) *Writer {
	return &Writer{repo: repo, resolver: resolver}
}

// Apply records the movements of a completed document and returns the
// updated aggregates. Re-applying the same document is a no-op per item
// (idempotency guard), which makes re-completion after a revert safe.
func (w *Writer) Apply(ctx context.Context, req ApplyRequest) ([]StockAggregate, error) {
	if req.Direction != DirectionIn && req.Direction != DirectionOut {
		return nil, apperror.NewValidation("direction must be in or out")
	}

	updated := make([]StockAggregate, 0, len(req.Items))
	now := time.Now().UTC()

	for i, item := range req.Items {
		if item.Quantity.Sign() <= 0 {
			return nil, apperror.NewValidation(fmt.Sprintf("item %d: quantity must be positive", i))
		}

		delta := types.NormalizeQuantity(item.Quantity)
		if req.Direction == DirectionOut {
			delta = delta.Neg()
		}

		// Serializes against concurrent reprocessing of the same key.
		if err := w.repo.AcquireKeyLock(ctx, item.StoreID, item.ProductID); err != nil {
			return nil, fmt.Errorf("acquire key lock: %w", err)
		}

		// Idempotency guard: skip if the net recorded delta for this
		// (document, store, product, type) already equals the intended one.
		net, err := w.repo.NetRecordedDelta(ctx, req.DocumentID, item.StoreID, item.ProductID, item.Type)
		if err != nil {
			return nil, fmt.Errorf("net recorded delta: %w", err)
		}
		if net.Equal(delta) {
			logger.Debug(ctx, "movement already recorded, skipping",
				"document_id", req.DocumentID,
				"product_id", item.ProductID,
			)
			continue
		}

		agg, err := w.repo.GetAggregateForUpdate(ctx, item.StoreID, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get aggregate: %w", err)
		}

		newQty := types.NormalizeQuantity(agg.Quantity.Add(delta))
		if newQty.Sign() < 0 {
			return nil, apperror.NewInsufficientStock(
				item.ProductID.String(),
				item.Quantity.String(),
				agg.Quantity.String(),
			)
		}

		price := item.UnitPrice
		if item.CostFromStore != nil {
			src, err := w.repo.GetAggregate(ctx, *item.CostFromStore, item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("get source aggregate: %w", err)
			}
			price = src.AverageCost
		}

		cost := agg.AverageCost
		var amount types.Money
		if req.Direction == DirectionIn {
			cost = NewCost(agg.Quantity, agg.AverageCost, delta, price)
			amount = types.NormalizeMoney(delta.Mul(price))
		} else {
			// Outgoing movements carry the average cost over unchanged.
			amount = types.NormalizeMoney(delta.Mul(agg.AverageCost))
		}

		if item.Type == MovementSale && w.resolver != nil {
			if err := w.resolver.UpdateCostAtSale(ctx, req.DocumentID, item.ProductID, agg.AverageCost); err != nil {
				return nil, fmt.Errorf("update cost at sale: %w", err)
			}
		}

		entry := LedgerEntry{
			ID:             id.New(),
			MovementType:   item.Type,
			StoreID:        item.StoreID,
			ProductID:      item.ProductID,
			Period:         req.Period,
			QuantityDelta:  delta,
			QuantityBefore: agg.Quantity,
			QuantityAfter:  newQty,
			CostAfter:      cost,
			Amount:         amount,
			Reason:         ReasonInitial,
			CausationID:    req.DocumentID,
			BatchID:        req.DocumentID,
			RecorderID:     req.DocumentID,
			RecorderType:   req.DocumentType,
			CreatedAt:      now.Add(time.Duration(i) * time.Microsecond),
		}

		if err := w.repo.AppendEntries(ctx, []LedgerEntry{entry}); err != nil {
			return nil, fmt.Errorf("append entry: %w", err)
		}

		agg.StoreID = item.StoreID
		agg.ProductID = item.ProductID
		agg.Quantity = newQty
		agg.AverageCost = cost
		agg.LastMovementAt = req.Period
		agg.UpdatedAt = time.Now().UTC()

		if err := w.repo.UpsertAggregate(ctx, agg); err != nil {
			return nil, fmt.Errorf("upsert aggregate: %w", err)
		}
		updated = append(updated, agg)
	}

	logger.Info(ctx, "ledger movements recorded",
		"document_id", req.DocumentID,
		"document_type", req.DocumentType,
		"direction", req.Direction,
		"items", len(req.Items),
	)

	return updated, nil
}

// Revert negates every still-effective entry of a document with reversal
// entries, dated at the original entries' periods so point-in-time
// ordering is preserved. Returns the keys (with the earliest affected
// date each) that need reprocessing once the transaction commits.
func (w *Writer) Revert(ctx context.Context, documentID, causationID id.ID) ([]ReprocessKey, error) {
	entries, err := w.repo.EntriesByBatch(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("entries by batch: %w", err)
	}

	reversed := make(map[id.ID]bool)
	for _, en := range entries {
		if en.Reason == ReasonReversal && en.ParentEntryID != nil {
			reversed[*en.ParentEntryID] = true
		}
	}

	keys := make(map[[2]id.ID]ReprocessKey)
	seq := 0
	now := time.Now().UTC()

	for _, en := range entries {
		if en.Reason == ReasonReversal || reversed[en.ID] {
			continue
		}

		agg, err := w.repo.GetAggregateForUpdate(ctx, en.StoreID, en.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get aggregate: %w", err)
		}

		revDelta := en.QuantityDelta.Neg()
		newQty := types.NormalizeQuantity(agg.Quantity.Add(revDelta))
		if newQty.Sign() < 0 {
			return nil, apperror.NewInsufficientStockToRevert(
				en.ProductID.String(),
				en.QuantityDelta.String(),
				agg.Quantity.String(),
			)
		}

		cost := agg.AverageCost
		if en.QuantityDelta.Sign() > 0 {
			// Removing previously received stock: the value leaves at the
			// original entry's unit cost; remaining value must stay >= 0.
			remaining := agg.Value().Sub(en.Amount)
			if remaining.Sign() < 0 {
				return nil, apperror.NewNegativeValuationOnRevert(
					en.ProductID.String(),
					en.Amount.String(),
					agg.Value().String(),
				)
			}
		} else if revDelta.Sign() > 0 && !en.QuantityDelta.IsZero() {
			// Restoring previously issued stock re-enters at the unit
			// cost it left with.
			unit := en.Amount.Div(en.QuantityDelta)
			cost = NewCost(agg.Quantity, agg.AverageCost, revDelta, unit)
		}

		rev := LedgerEntry{
			ID:             id.New(),
			MovementType:   en.MovementType,
			StoreID:        en.StoreID,
			ProductID:      en.ProductID,
			Period:         en.Period,
			QuantityDelta:  revDelta,
			QuantityBefore: agg.Quantity,
			QuantityAfter:  newQty,
			CostAfter:      cost,
			Amount:         en.Amount.Neg(),
			Reason:         ReasonReversal,
			ParentEntryID:  ptrID(en.ID),
			CausationID:    causationID,
			BatchID:        en.BatchID,
			RecorderID:     en.RecorderID,
			RecorderType:   en.RecorderType,
			CreatedAt:      now.Add(time.Duration(seq) * time.Microsecond),
		}
		seq++

		if err := w.repo.AppendEntries(ctx, []LedgerEntry{rev}); err != nil {
			return nil, fmt.Errorf("append reversal: %w", err)
		}

		agg.Quantity = newQty
		agg.AverageCost = cost
		agg.UpdatedAt = time.Now().UTC()
		if err := w.repo.UpsertAggregate(ctx, agg); err != nil {
			return nil, fmt.Errorf("upsert aggregate: %w", err)
		}

		k := [2]id.ID{en.StoreID, en.ProductID}
		if prev, ok := keys[k]; !ok || en.Period.Before(prev.From) {
			keys[k] = ReprocessKey{StoreID: en.StoreID, ProductID: en.ProductID, From: en.Period}
		}
	}

	out := make([]ReprocessKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, k)
	}

	logger.Info(ctx, "ledger movements reverted",
		"document_id", documentID,
		"causation_id", causationID,
		"affected_keys", len(out),
	)

	return out, nil
}

func ptrID(v id.ID) *id.ID { return &v }
