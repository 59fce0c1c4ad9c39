// Package salesreturn provides the Return document: goods coming back
// from a customer, re-entering stock at a stated unit cost.
package salesreturn

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
const DocumentType = "SalesReturn"

// Return represents a sales return document.
type Return struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`
	StoreID    id.ID `db:"store_id" json:"storeId"`

	// OriginalSaleID references the sale being returned against, when
	// known. Informational; valuation uses the line unit cost.
	OriginalSaleID *id.ID `db:"original_sale_id" json:"originalSaleId,omitempty"`

	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line represents one returned product.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitCost is the cost the goods re-enter stock at, normally the
	// cost-at-sale of the original issue. It is averaged back into the
	// store's running cost.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	Amount types.Money `db:"amount" json:"amount"`
}

// NewReturn creates a new sales return document in draft status.
func NewReturn(customerID, storeID id.ID) *Return {
	return &Return{
		Document:   entity.NewDocument(),
		CustomerID: customerID,
		StoreID:    storeID,
		Lines:      make([]Line, 0),
	}
}

// AddLine adds a line and recalculates totals.
func (r *Return) AddLine(productID id.ID, quantity types.Quantity, unitCost types.Money) {
	r.Lines = append(r.Lines, Line{
		LineID:    id.New(),
		LineNo:    len(r.Lines) + 1,
		ProductID: productID,
		Quantity:  types.NormalizeQuantity(quantity),
		UnitCost:  types.NormalizeMoney(unitCost),
		Amount:    types.NormalizeMoney(quantity.Mul(unitCost)),
	})
	r.recalculateTotals()
}

func (r *Return) recalculateTotals() {
	r.TotalQuantity = types.Zero()
	r.TotalAmount = types.Zero()
	for _, line := range r.Lines {
		r.TotalQuantity = r.TotalQuantity.Add(line.Quantity)
		r.TotalAmount = r.TotalAmount.Add(line.Amount)
	}
}

// Validate implements entity.Validatable.
func (r *Return) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(r.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}
	if id.IsNil(r.StoreID) {
		return apperror.NewValidation("store is required").
			WithDetail("field", "storeId")
	}
	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range r.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.Quantity.Sign() <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.UnitCost.Sign() < 0 {
			return apperror.NewValidation("unit cost must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// GetDocumentType returns the document type name.
func (r *Return) GetDocumentType() string {
	return DocumentType
}

// GenerateApplications implements posting.Postable.
func (r *Return) GenerateApplications(ctx context.Context) ([]ledger.ApplyRequest, error) {
	items := make([]ledger.ApplyItem, 0, len(r.Lines))
	for _, line := range r.Lines {
		items = append(items, ledger.ApplyItem{
			StoreID:   r.StoreID,
			ProductID: line.ProductID,
			Type:      ledger.MovementReturn,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitCost,
		})
	}

	return []ledger.ApplyRequest{{
		DocumentID:   r.ID,
		DocumentType: DocumentType,
		Period:       r.Date,
		Direction:    ledger.DirectionIn,
		Items:        items,
	}}, nil
}

var _ posting.Postable = (*Return)(nil)
