package dto

import (
	"time"

	"kardex/internal/domain/ledger"
)

// AggregateResponse is the current state of one (store, product) key.
type AggregateResponse struct {
	StoreID        string    `json:"storeId"`
	ProductID      string    `json:"productId"`
	Quantity       string    `json:"quantity"`
	AverageCost    string    `json:"averageCost"`
	Value          string    `json:"value"`
	LastMovementAt time.Time `json:"lastMovementAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FromAggregate converts a domain aggregate.
func FromAggregate(agg ledger.StockAggregate) AggregateResponse {
	return AggregateResponse{
		StoreID:        agg.StoreID.String(),
		ProductID:      agg.ProductID.String(),
		Quantity:       agg.Quantity.String(),
		AverageCost:    agg.AverageCost.String(),
		Value:          agg.Value().String(),
		LastMovementAt: agg.LastMovementAt,
		UpdatedAt:      agg.UpdatedAt,
	}
}

// EntryResponse is one immutable ledger entry.
type EntryResponse struct {
	ID             string    `json:"id"`
	MovementType   string    `json:"movementType"`
	StoreID        string    `json:"storeId"`
	ProductID      string    `json:"productId"`
	Period         time.Time `json:"period"`
	QuantityDelta  string    `json:"quantityDelta"`
	QuantityBefore string    `json:"quantityBefore"`
	QuantityAfter  string    `json:"quantityAfter"`
	CostAfter      string    `json:"costAfter"`
	Amount         string    `json:"amount"`
	Reason         string    `json:"reason"`
	ParentEntryID  *string   `json:"parentEntryId,omitempty"`
	CausationID    string    `json:"causationId"`
	BatchID        string    `json:"batchId"`
	RecorderID     string    `json:"recorderId"`
	RecorderType   string    `json:"recorderType"`
	CreatedAt      time.Time `json:"createdAt"`
}

// FromEntry converts a domain ledger entry.
func FromEntry(en ledger.LedgerEntry) EntryResponse {
	resp := EntryResponse{
		ID:             en.ID.String(),
		MovementType:   string(en.MovementType),
		StoreID:        en.StoreID.String(),
		ProductID:      en.ProductID.String(),
		Period:         en.Period,
		QuantityDelta:  en.QuantityDelta.String(),
		QuantityBefore: en.QuantityBefore.String(),
		QuantityAfter:  en.QuantityAfter.String(),
		CostAfter:      en.CostAfter.String(),
		Amount:         en.Amount.String(),
		Reason:         string(en.Reason),
		CausationID:    en.CausationID.String(),
		BatchID:        en.BatchID.String(),
		RecorderID:     en.RecorderID.String(),
		RecorderType:   en.RecorderType,
		CreatedAt:      en.CreatedAt,
	}
	if en.ParentEntryID != nil {
		s := en.ParentEntryID.String()
		resp.ParentEntryID = &s
	}
	return resp
}

// ReprocessRequest triggers reprocessing of one key from a date.
type ReprocessRequest struct {
	StoreID   string    `json:"storeId" binding:"required"`
	ProductID string    `json:"productId" binding:"required"`
	From      time.Time `json:"from" binding:"required"`
}
