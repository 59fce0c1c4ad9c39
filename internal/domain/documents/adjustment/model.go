// Package adjustment provides the Adjustment document: inventory count
// corrections, with signed quantity lines.
package adjustment

import (
	"context"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/ledger"
	"kardex/internal/domain/posting"
)

// DocumentType is the polymorphic type name recorded on ledger entries.
const DocumentType = "Adjustment"

// Adjustment represents a stock adjustment document.
type Adjustment struct {
	entity.Document

	StoreID id.ID `db:"store_id" json:"storeId"`

	// Reason is a free-form adjustment reason (count, damage, loss).
	Reason string `db:"reason" json:"reason,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line represents one adjusted product.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`

	// QuantityDelta is signed: positive writes stock on, negative writes
	// it off.
	QuantityDelta types.Quantity `db:"quantity_delta" json:"quantityDelta"`

	// UnitCost prices positive deltas. Write-offs leave at the running
	// average cost and ignore it.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`
}

// NewAdjustment creates a new adjustment document in draft status.
func NewAdjustment(storeID id.ID) *Adjustment {
	return &Adjustment{
		Document: entity.NewDocument(),
		StoreID:  storeID,
		Lines:    make([]Line, 0),
	}
}

// AddLine adds a signed adjustment line.
func (a *Adjustment) AddLine(productID id.ID, quantityDelta types.Quantity, unitCost types.Money) {
	a.Lines = append(a.Lines, Line{
		LineID:        id.New(),
		LineNo:        len(a.Lines) + 1,
		ProductID:     productID,
		QuantityDelta: types.NormalizeQuantity(quantityDelta),
		UnitCost:      types.NormalizeMoney(unitCost),
	})
}

// Validate implements entity.Validatable.
func (a *Adjustment) Validate(ctx context.Context) error {
	if err := a.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(a.StoreID) {
		return apperror.NewValidation("store is required").
			WithDetail("field", "storeId")
	}
	if len(a.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	seen := make(map[id.ID]bool, len(a.Lines))
	for i, line := range a.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		// One line per product, or the ledger's per-document idempotency
		// guard cannot distinguish a re-application from a second line.
		if seen[line.ProductID] {
			return apperror.NewValidation("duplicate product line").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		seen[line.ProductID] = true
		if line.QuantityDelta.IsZero() {
			return apperror.NewValidation("quantity delta must not be zero").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.QuantityDelta.Sign() > 0 && line.UnitCost.Sign() < 0 {
			return apperror.NewValidation("unit cost must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// GetDocumentType returns the document type name.
func (a *Adjustment) GetDocumentType() string {
	return DocumentType
}

// GenerateApplications implements posting.Postable. Positive and negative
// lines become separate in/out requests; write-ons are recorded first so
// a count that both adds and removes cannot transiently underflow.
func (a *Adjustment) GenerateApplications(ctx context.Context) ([]ledger.ApplyRequest, error) {
	var in, out []ledger.ApplyItem
	for _, line := range a.Lines {
		if line.QuantityDelta.Sign() > 0 {
			in = append(in, ledger.ApplyItem{
				StoreID:   a.StoreID,
				ProductID: line.ProductID,
				Type:      ledger.MovementAdjustment,
				Quantity:  line.QuantityDelta,
				UnitPrice: line.UnitCost,
			})
		} else {
			out = append(out, ledger.ApplyItem{
				StoreID:   a.StoreID,
				ProductID: line.ProductID,
				Type:      ledger.MovementAdjustment,
				Quantity:  line.QuantityDelta.Neg(),
			})
		}
	}

	var reqs []ledger.ApplyRequest
	if len(in) > 0 {
		reqs = append(reqs, ledger.ApplyRequest{
			DocumentID:   a.ID,
			DocumentType: DocumentType,
			Period:       a.Date,
			Direction:    ledger.DirectionIn,
			Items:        in,
		})
	}
	if len(out) > 0 {
		reqs = append(reqs, ledger.ApplyRequest{
			DocumentID:   a.ID,
			DocumentType: DocumentType,
			Period:       a.Date,
			Direction:    ledger.DirectionOut,
			Items:        out,
		})
	}
	return reqs, nil
}

var _ posting.Postable = (*Adjustment)(nil)
