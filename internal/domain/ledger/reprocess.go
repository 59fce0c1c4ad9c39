package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/core/types"
	"kardex/pkg/logger"
)

// MaxReprocessPasses bounds the repair loop. Each pass either completes
// cleanly or appends compensating entries and restarts; a history that
// still drifts after this many passes is reported instead of retried
// forever.
const MaxReprocessPasses = 5

// Engine re-derives the ledger history of one (store, product) key from a
// given date, healing drift with reversal/correction entries. It is the
// only component allowed to rewrite history, and it does so append-only.
type Engine struct {
	repo     Repository
	resolver DocumentResolver
	txm      tx.Manager
}

// NewEngine creates a reprocessing engine.
func NewEngine(repo Repository, resolver DocumentResolver, txm tx.Manager) *Engine {
	return &Engine{repo: repo, resolver: resolver, txm: txm}
}

// Reprocess replays the key's entries from the given date inside a
// serializable transaction, under the key's advisory lock. Converges when
// a full pass over the window finds every effective entry consistent with
// the recomputed running state.
func (e *Engine) Reprocess(ctx context.Context, storeID, productID id.ID, from time.Time, causationID id.ID) error {
	return e.txm.RunSerializable(ctx, func(ctx context.Context) error {
		if err := e.repo.AcquireKeyLock(ctx, storeID, productID); err != nil {
			return fmt.Errorf("acquire key lock: %w", err)
		}

		run := &reprocessRun{
			engine:      e,
			storeID:     storeID,
			productID:   productID,
			from:        from,
			causationID: causationID,
			docs:        make(map[id.ID]*CausingDocument),
		}

		for pass := 1; pass <= MaxReprocessPasses; pass++ {
			clean, err := run.pass(ctx)
			if err != nil {
				return err
			}
			if clean {
				logger.Info(ctx, "reprocessing converged",
					"store_id", storeID,
					"product_id", productID,
					"from", from,
					"passes", pass,
				)
				return nil
			}
		}

		return apperror.NewReprocessingNonConvergence(
			storeID.String(), productID.String(), MaxReprocessPasses,
		)
	})
}

// ReprocessIfNeeded reprocesses the key only when entries dated after the
// key's from-date exist, i.e. when a document landed in (or left) the
// middle of already-recorded history. Appending at the tail needs no
// replay because the writer maintained the aggregate directly.
func (e *Engine) ReprocessIfNeeded(ctx context.Context, key ReprocessKey, causationID id.ID) error {
	stale, err := e.repo.HasEntriesAfter(ctx, key.StoreID, key.ProductID, key.From)
	if err != nil {
		return fmt.Errorf("has entries after: %w", err)
	}
	if !stale {
		return nil
	}
	return e.Reprocess(ctx, key.StoreID, key.ProductID, key.From, causationID)
}

type reprocessRun struct {
	engine      *Engine
	storeID     id.ID
	productID   id.ID
	from        time.Time
	causationID id.ID

	// docs memoizes resolved causing documents across passes. Safe because
	// document status cannot change under the serializable transaction.
	docs map[id.ID]*CausingDocument
}

type saleCostUpdate struct {
	saleID id.ID
	cost   types.Money
}

// pass walks the window once in canonical order. Returns clean=true when
// no repair was needed, in which case the aggregate has been written.
func (r *reprocessRun) pass(ctx context.Context) (bool, error) {
	repo := r.engine.repo

	qty, cost, err := r.baseline(ctx)
	if err != nil {
		return false, err
	}

	entries, err := repo.EntriesFrom(ctx, r.storeID, r.productID, r.from)
	if err != nil {
		return false, fmt.Errorf("entries from: %w", err)
	}
	sortCanonical(entries)

	reversed := make(map[id.ID]bool)
	for i := range entries {
		if entries[i].Reason == ReasonReversal && entries[i].ParentEntryID != nil {
			reversed[*entries[i].ParentEntryID] = true
		}
	}

	var saleUpdates []saleCostUpdate
	lastPeriod := r.from

	for i := range entries {
		en := &entries[i]

		// Reversal entries and the entries they negate cancel out; neither
		// contributes to the recomputed state.
		if en.Reason == ReasonReversal || reversed[en.ID] {
			continue
		}

		doc, err := r.resolveDoc(ctx, en)
		if err != nil {
			return false, err
		}

		if !doc.Effective() {
			// The causing document was cancelled or reverted out of order;
			// its entry must stop contributing.
			if err := r.appendReversal(ctx, en, cost); err != nil {
				return false, err
			}
			return false, nil
		}

		expBefore := qty
		expAfter := types.NormalizeQuantity(qty.Add(en.QuantityDelta))
		expCost := cost
		var expAmount types.Money

		switch {
		case en.QuantityDelta.Sign() > 0:
			unit := r.unitPrice(en, doc)
			expCost = NewCost(qty, cost, en.QuantityDelta, unit)
			expAmount = types.NormalizeMoney(en.QuantityDelta.Mul(unit))
		case en.QuantityDelta.Sign() < 0:
			expAmount = types.NormalizeMoney(en.QuantityDelta.Mul(cost))
		default:
			expAmount = types.Zero()
		}

		if r.drifted(en, expBefore, expAfter, expCost, expAmount) {
			if err := r.appendRepairPair(ctx, en, cost, expBefore, expAfter, expCost, expAmount); err != nil {
				return false, err
			}
			return false, nil
		}

		if en.MovementType == MovementSale {
			saleUpdates = append(saleUpdates, saleCostUpdate{saleID: en.RecorderID, cost: cost})
		}

		qty = expAfter
		cost = expCost
		if en.Period.After(lastPeriod) {
			lastPeriod = en.Period
		}
	}

	for _, u := range saleUpdates {
		if err := r.engine.resolver.UpdateCostAtSale(ctx, u.saleID, r.productID, u.cost); err != nil {
			return false, fmt.Errorf("update cost at sale: %w", err)
		}
	}

	agg := StockAggregate{
		StoreID:        r.storeID,
		ProductID:      r.productID,
		Quantity:       qty,
		AverageCost:    cost,
		LastMovementAt: lastPeriod,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := repo.UpsertAggregate(ctx, agg); err != nil {
		return false, fmt.Errorf("upsert aggregate: %w", err)
	}
	return true, nil
}

// baseline loads the running state just before the window: the snapshot
// of the latest earlier entry, or zero state for a fresh key.
func (r *reprocessRun) baseline(ctx context.Context) (types.Quantity, types.Money, error) {
	prev, err := r.engine.repo.LatestEntryBefore(ctx, r.storeID, r.productID, r.from)
	if err != nil {
		return types.Zero(), types.Zero(), fmt.Errorf("latest entry before: %w", err)
	}
	if prev == nil {
		return types.Zero(), types.Zero(), nil
	}
	return prev.QuantityAfter, prev.CostAfter, nil
}

func (r *reprocessRun) resolveDoc(ctx context.Context, en *LedgerEntry) (*CausingDocument, error) {
	if doc, ok := r.docs[en.RecorderID]; ok {
		return doc, nil
	}
	doc, err := r.engine.resolver.Resolve(ctx, en.RecorderType, en.RecorderID)
	if err != nil {
		return nil, fmt.Errorf("resolve document %s/%s: %w", en.RecorderType, en.RecorderID, err)
	}
	r.docs[en.RecorderID] = doc
	return doc, nil
}

// unitPrice returns the price an incoming entry blends in at. Purchases
// and returns re-read the authoritative line price from the document, so
// price edits are picked up; everything else (corrections, transfers,
// adjustments) replays the recorded amount.
func (r *reprocessRun) unitPrice(en *LedgerEntry, doc *CausingDocument) types.Money {
	if en.Reason == ReasonInitial &&
		(en.MovementType == MovementPurchase || en.MovementType == MovementReturn) {
		if line := doc.Line(en.ProductID); line != nil {
			return line.UnitPrice
		}
	}
	if en.QuantityDelta.IsZero() {
		return types.Zero()
	}
	return en.Amount.Div(en.QuantityDelta)
}

// drifted compares the stored snapshots against the recomputed ones at
// storage precision.
func (r *reprocessRun) drifted(en *LedgerEntry, before, after types.Quantity, cost, amount types.Money) bool {
	return !types.NormalizeQuantity(en.QuantityBefore).Equal(types.NormalizeQuantity(before)) ||
		!types.NormalizeQuantity(en.QuantityAfter).Equal(types.NormalizeQuantity(after)) ||
		!types.NormalizeMoney(en.CostAfter).Equal(types.NormalizeMoney(cost)) ||
		!types.NormalizeMoney(en.Amount).Equal(types.NormalizeMoney(amount))
}

// appendReversal negates an entry whose document is no longer effective.
func (r *reprocessRun) appendReversal(ctx context.Context, en *LedgerEntry, runningCost types.Money) error {
	rev := LedgerEntry{
		ID:             id.New(),
		MovementType:   en.MovementType,
		StoreID:        en.StoreID,
		ProductID:      en.ProductID,
		Period:         en.Period,
		QuantityDelta:  en.QuantityDelta.Neg(),
		QuantityBefore: en.QuantityAfter,
		QuantityAfter:  en.QuantityBefore,
		CostAfter:      runningCost,
		Amount:         en.Amount.Neg(),
		Reason:         ReasonReversal,
		ParentEntryID:  ptrID(en.ID),
		CausationID:    r.causationID,
		BatchID:        en.BatchID,
		RecorderID:     en.RecorderID,
		RecorderType:   en.RecorderType,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.engine.repo.AppendEntries(ctx, []LedgerEntry{rev}); err != nil {
		return fmt.Errorf("append reversal: %w", err)
	}
	logger.Debug(ctx, "reversed entry of ineffective document",
		"entry_id", en.ID,
		"document_id", en.RecorderID,
	)
	return nil
}

// appendRepairPair replaces a drifted entry with a reversal plus a
// correction carrying the recomputed values. Both are dated at the
// original entry's period; created-at offsets keep the pair ordered.
func (r *reprocessRun) appendRepairPair(ctx context.Context, en *LedgerEntry, runningCost types.Money, before, after types.Quantity, cost, amount types.Money) error {
	now := time.Now().UTC()

	rev := LedgerEntry{
		ID:             id.New(),
		MovementType:   en.MovementType,
		StoreID:        en.StoreID,
		ProductID:      en.ProductID,
		Period:         en.Period,
		QuantityDelta:  en.QuantityDelta.Neg(),
		QuantityBefore: en.QuantityAfter,
		QuantityAfter:  en.QuantityBefore,
		CostAfter:      runningCost,
		Amount:         en.Amount.Neg(),
		Reason:         ReasonReversal,
		ParentEntryID:  ptrID(en.ID),
		CausationID:    r.causationID,
		BatchID:        en.BatchID,
		RecorderID:     en.RecorderID,
		RecorderType:   en.RecorderType,
		CreatedAt:      now,
	}

	corr := LedgerEntry{
		ID:             id.New(),
		MovementType:   en.MovementType,
		StoreID:        en.StoreID,
		ProductID:      en.ProductID,
		Period:         en.Period,
		QuantityDelta:  en.QuantityDelta,
		QuantityBefore: before,
		QuantityAfter:  after,
		CostAfter:      cost,
		Amount:         amount,
		Reason:         ReasonCorrection,
		ParentEntryID:  ptrID(en.ID),
		CausationID:    r.causationID,
		BatchID:        en.BatchID,
		RecorderID:     en.RecorderID,
		RecorderType:   en.RecorderType,
		CreatedAt:      now.Add(time.Microsecond),
	}

	if err := r.engine.repo.AppendEntries(ctx, []LedgerEntry{rev, corr}); err != nil {
		return fmt.Errorf("append repair pair: %w", err)
	}
	logger.Debug(ctx, "repaired drifted entry",
		"entry_id", en.ID,
		"document_id", en.RecorderID,
	)
	return nil
}

// sortCanonical orders entries by business period, then by the creation
// time of their root ancestor so a repair pair sits exactly where the
// entry it replaces sat, then by own creation time, then by id.
func sortCanonical(entries []LedgerEntry) {
	byID := make(map[id.ID]*LedgerEntry, len(entries))
	for i := range entries {
		byID[entries[i].ID] = &entries[i]
	}

	rootCreated := make(map[id.ID]time.Time, len(entries))
	var rootOf func(en *LedgerEntry) time.Time
	rootOf = func(en *LedgerEntry) time.Time {
		if t, ok := rootCreated[en.ID]; ok {
			return t
		}
		t := en.CreatedAt
		if en.ParentEntryID != nil {
			if parent, ok := byID[*en.ParentEntryID]; ok {
				t = rootOf(parent)
			}
		}
		rootCreated[en.ID] = t
		return t
	}
	for i := range entries {
		rootOf(&entries[i])
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		if !a.Period.Equal(b.Period) {
			return a.Period.Before(b.Period)
		}
		ra, rb := rootCreated[a.ID], rootCreated[b.ID]
		if !ra.Equal(rb) {
			return ra.Before(rb)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}
