// Package sale provides the Sale document: outgoing goods to a customer,
// issued at the store's weighted-average cost.
package sale

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
const DocumentType = "Sale"

// Sale represents a sale document.
type Sale struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`
	StoreID    id.ID `db:"store_id" json:"storeId"`

	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line represents one sold product.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// SalePrice is the revenue price per unit. It never participates in
	// valuation.
	SalePrice types.Money `db:"sale_price" json:"salePrice"`

	// CostAtSale is the store's average cost at which the goods left.
	// Derived, not entered: written by the ledger and rewritten by
	// reprocessing when earlier history changes.
	CostAtSale types.Money `db:"cost_at_sale" json:"costAtSale"`

	Amount types.Money `db:"amount" json:"amount"`
}

// NewSale creates a new sale document in draft status.
func NewSale(customerID, storeID id.ID) *Sale {
	return &Sale{
		Document:   entity.NewDocument(),
		CustomerID: customerID,
		StoreID:    storeID,
		Lines:      make([]Line, 0),
	}
}

// AddLine adds a line and recalculates totals.
func (s *Sale) AddLine(productID id.ID, quantity types.Quantity, salePrice types.Money) {
	s.Lines = append(s.Lines, Line{
		LineID:    id.New(),
		LineNo:    len(s.Lines) + 1,
		ProductID: productID,
		Quantity:  types.NormalizeQuantity(quantity),
		SalePrice: types.NormalizeMoney(salePrice),
		Amount:    types.NormalizeMoney(quantity.Mul(salePrice)),
	})
	s.recalculateTotals()
}

func (s *Sale) recalculateTotals() {
	s.TotalQuantity = types.Zero()
	s.TotalAmount = types.Zero()
	for _, line := range s.Lines {
		s.TotalQuantity = s.TotalQuantity.Add(line.Quantity)
		s.TotalAmount = s.TotalAmount.Add(line.Amount)
	}
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(s.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}
	if id.IsNil(s.StoreID) {
		return apperror.NewValidation("store is required").
			WithDetail("field", "storeId")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range s.Lines {
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
	}

	return nil
}

// GetDocumentType returns the document type name.
func (s *Sale) GetDocumentType() string {
	return DocumentType
}

// GenerateApplications implements posting.Postable.
func (s *Sale) GenerateApplications(ctx context.Context) ([]ledger.ApplyRequest, error) {
	items := make([]ledger.ApplyItem, 0, len(s.Lines))
	for _, line := range s.Lines {
		items = append(items, ledger.ApplyItem{
			StoreID:   s.StoreID,
			ProductID: line.ProductID,
			Type:      ledger.MovementSale,
			Quantity:  line.Quantity,
		})
	}

	return []ledger.ApplyRequest{{
		DocumentID:   s.ID,
		DocumentType: DocumentType,
		Period:       s.Date,
		Direction:    ledger.DirectionOut,
		Items:        items,
	}}, nil
}

var _ posting.Postable = (*Sale)(nil)
