// Package purchase provides the Purchase document: incoming goods from a
// supplier into a store, the primary source of valuation.
package purchase

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
const DocumentType = "Purchase"

// Purchase represents a purchase document.
type Purchase struct {
	entity.Document

	SupplierID id.ID `db:"supplier_id" json:"supplierId"`
	StoreID    id.ID `db:"store_id" json:"storeId"`

	// Totals (calculated from lines)
	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line represents one purchased product.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitPrice is the authoritative acquisition price per unit. Editing
	// it after completion is what makes reprocessing necessary.
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	Amount types.Money `db:"amount" json:"amount"`
}

// NewPurchase creates a new purchase document in draft status.
func NewPurchase(supplierID, storeID id.ID) *Purchase {
	return &Purchase{
		Document:   entity.NewDocument(),
		SupplierID: supplierID,
		StoreID:    storeID,
		Lines:      make([]Line, 0),
	}
}

// AddLine adds a line and recalculates totals.
func (p *Purchase) AddLine(productID id.ID, quantity types.Quantity, unitPrice types.Money) {
	p.Lines = append(p.Lines, Line{
		LineID:    id.New(),
		LineNo:    len(p.Lines) + 1,
		ProductID: productID,
		Quantity:  types.NormalizeQuantity(quantity),
		UnitPrice: types.NormalizeMoney(unitPrice),
		Amount:    types.NormalizeMoney(quantity.Mul(unitPrice)),
	})
	p.recalculateTotals()
}

func (p *Purchase) recalculateTotals() {
	p.TotalQuantity = types.Zero()
	p.TotalAmount = types.Zero()
	for _, line := range p.Lines {
		p.TotalQuantity = p.TotalQuantity.Add(line.Quantity)
		p.TotalAmount = p.TotalAmount.Add(line.Amount)
	}
}

// Validate implements entity.Validatable.
func (p *Purchase) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(p.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if id.IsNil(p.StoreID) {
		return apperror.NewValidation("store is required").
			WithDetail("field", "storeId")
	}
	if len(p.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range p.Lines {
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
		if line.UnitPrice.Sign() < 0 {
			return apperror.NewValidation("unit price must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// GetDocumentType returns the document type name.
func (p *Purchase) GetDocumentType() string {
	return DocumentType
}

// GenerateApplications implements posting.Postable.
func (p *Purchase) GenerateApplications(ctx context.Context) ([]ledger.ApplyRequest, error) {
	items := make([]ledger.ApplyItem, 0, len(p.Lines))
	for _, line := range p.Lines {
		items = append(items, ledger.ApplyItem{
			StoreID:   p.StoreID,
			ProductID: line.ProductID,
			Type:      ledger.MovementPurchase,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	return []ledger.ApplyRequest{{
		DocumentID:   p.ID,
		DocumentType: DocumentType,
		Period:       p.Date,
		Direction:    ledger.DirectionIn,
		Items:        items,
	}}, nil
}

var _ posting.Postable = (*Purchase)(nil)
