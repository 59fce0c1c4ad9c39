// Package ledger implements the inventory valuation ledger: a running
// (quantity, weighted-average cost) aggregate per (store, product) key,
// an append-only entry journal with full before/after snapshots, and the
// reprocessing engine that heals historical drift with compensating
// entries when documents are edited or cancelled out of order.
package ledger

import (
	"time"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// MovementType classifies a ledger entry by the kind of document movement
// that produced it.
type MovementType string

const (
	MovementPurchase    MovementType = "purchase"
	MovementSale        MovementType = "sale"
	MovementReturn      MovementType = "return"
	MovementAdjustment  MovementType = "adjustment"
	MovementTransferIn  MovementType = "transfer_in"
	MovementTransferOut MovementType = "transfer_out"
)

// AffectsCost reports whether an incoming movement of this type changes
// the weighted-average cost. Returns are cost-affecting: a returned unit
// re-enters stock at the cost it left with, and is averaged back in.
func (t MovementType) AffectsCost() bool {
	switch t {
	case MovementPurchase, MovementTransferIn, MovementAdjustment, MovementReturn:
		return true
	default:
		return false
	}
}

// EntryReason describes why a ledger entry exists.
type EntryReason string

const (
	// ReasonInitial marks the entry recorded when a document is completed.
	ReasonInitial EntryReason = "initial"
	// ReasonReversal marks an entry that exactly negates a prior entry.
	ReasonReversal EntryReason = "reversal"
	// ReasonCorrection marks a replacement entry carrying recomputed
	// values, issued together with a reversal of the stale entry.
	ReasonCorrection EntryReason = "correction"
)

// Direction is the side of a stock movement.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// LedgerEntry is one immutable record of a quantity/value change for a
// (store, product) key. Entries are never updated or deleted; history is
// healed only by appending reversal/correction entries.
type LedgerEntry struct {
	ID id.ID `db:"id" json:"id"`

	MovementType MovementType `db:"movement_type" json:"movementType"`

	// Dimensions
	StoreID   id.ID `db:"store_id" json:"storeId"`
	ProductID id.ID `db:"product_id" json:"productId"`

	// Period is the business (event-time) date of the movement,
	// distinct from CreatedAt (insertion time).
	Period time.Time `db:"period" json:"period"`

	// Snapshots. Invariant: QuantityAfter = QuantityBefore + QuantityDelta.
	QuantityDelta  types.Quantity `db:"quantity_delta" json:"quantityDelta"`
	QuantityBefore types.Quantity `db:"quantity_before" json:"quantityBefore"`
	QuantityAfter  types.Quantity `db:"quantity_after" json:"quantityAfter"`

	// CostAfter is the weighted-average cost after this entry.
	CostAfter types.Money `db:"cost_after" json:"costAfter"`

	// Amount is the monetary value moved, signed consistently with the delta.
	Amount types.Money `db:"amount" json:"amount"`

	Reason EntryReason `db:"reason" json:"reason"`

	// ParentEntryID points to the entry this one compensates or replaces.
	// Nil for initial entries.
	ParentEntryID *id.ID `db:"parent_entry_id" json:"parentEntryId,omitempty"`

	// CausationID identifies the reprocessing run or originating edit that
	// produced this entry. Initial entries use the causing document's id.
	CausationID id.ID `db:"causation_id" json:"causationId"`

	// BatchID is the causing document's id, used to detect and deduplicate
	// re-application of the same document.
	BatchID id.ID `db:"batch_id" json:"batchId"`

	// RecorderID/RecorderType form the polymorphic reference to the one
	// causing document (purchase/sale/return/adjustment/transfer).
	RecorderID   id.ID  `db:"recorder_id" json:"recorderId"`
	RecorderType string `db:"recorder_type" json:"recorderType"`

	// CreatedAt is the insertion time, strictly increasing; used as a
	// tie-breaker in canonical ordering.
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// StockAggregate is the persisted current state for one (store, product)
// key. Invariant: it equals the fold of all currently effective ledger
// entries for the key in canonical order. Mutated only by the ledger
// writer and the reprocessing engine.
type StockAggregate struct {
	StoreID   id.ID `db:"store_id" json:"storeId"`
	ProductID id.ID `db:"product_id" json:"productId"`

	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	AverageCost types.Money    `db:"average_cost" json:"averageCost"`

	LastMovementAt time.Time `db:"last_movement_at" json:"lastMovementAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Value returns the monetary value of the on-hand stock (qty * cost).
func (a StockAggregate) Value() types.Money {
	return a.Quantity.Mul(a.AverageCost)
}

// EntryFilter narrows ledger entry queries for the read API.
type EntryFilter struct {
	StoreID      *id.ID
	ProductID    *id.ID
	MovementType *MovementType
	Reason       *EntryReason
	FromDate     *time.Time
	ToDate       *time.Time

	Limit  int
	Offset int
}

// AggregateFilter narrows aggregate queries for the read API.
type AggregateFilter struct {
	StoreID     *id.ID
	ProductID   *id.ID
	ExcludeZero bool
}
