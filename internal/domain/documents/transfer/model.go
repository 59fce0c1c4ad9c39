// Package transfer provides the Transfer document: goods moving between
// two stores, with the destination inheriting the source's valuation.
package transfer

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
const DocumentType = "Transfer"

// Transfer represents an inter-store transfer document.
type Transfer struct {
	entity.Document

	SourceStoreID id.ID `db:"source_store_id" json:"sourceStoreId"`
	DestStoreID   id.ID `db:"dest_store_id" json:"destStoreId"`

	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`

	Lines []Line `db:"-" json:"lines"`
}

// Line represents one transferred product.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`
}

// NewTransfer creates a new transfer document in draft status.
func NewTransfer(sourceStoreID, destStoreID id.ID) *Transfer {
	return &Transfer{
		Document:      entity.NewDocument(),
		SourceStoreID: sourceStoreID,
		DestStoreID:   destStoreID,
		Lines:         make([]Line, 0),
	}
}

// AddLine adds a line and recalculates totals.
func (t *Transfer) AddLine(productID id.ID, quantity types.Quantity) {
	t.Lines = append(t.Lines, Line{
		LineID:    id.New(),
		LineNo:    len(t.Lines) + 1,
		ProductID: productID,
		Quantity:  types.NormalizeQuantity(quantity),
	})
	t.recalculateTotals()
}

func (t *Transfer) recalculateTotals() {
	t.TotalQuantity = types.Zero()
	for _, line := range t.Lines {
		t.TotalQuantity = t.TotalQuantity.Add(line.Quantity)
	}
}

// Validate implements entity.Validatable.
func (t *Transfer) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(t.SourceStoreID) {
		return apperror.NewValidation("source store is required").
			WithDetail("field", "sourceStoreId")
	}
	if id.IsNil(t.DestStoreID) {
		return apperror.NewValidation("destination store is required").
			WithDetail("field", "destStoreId")
	}
	if t.SourceStoreID == t.DestStoreID {
		return apperror.NewValidation("source and destination stores must differ").
			WithDetail("field", "destStoreId")
	}
	if len(t.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range t.Lines {
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
func (t *Transfer) GetDocumentType() string {
	return DocumentType
}

// GenerateApplications implements posting.Postable. The out leg runs
// first; the in leg then prices each item from the source store's
// average cost at that moment.
func (t *Transfer) GenerateApplications(ctx context.Context) ([]ledger.ApplyRequest, error) {
	out := make([]ledger.ApplyItem, 0, len(t.Lines))
	in := make([]ledger.ApplyItem, 0, len(t.Lines))

	for _, line := range t.Lines {
		out = append(out, ledger.ApplyItem{
			StoreID:   t.SourceStoreID,
			ProductID: line.ProductID,
			Type:      ledger.MovementTransferOut,
			Quantity:  line.Quantity,
		})

		src := t.SourceStoreID
		in = append(in, ledger.ApplyItem{
			StoreID:       t.DestStoreID,
			ProductID:     line.ProductID,
			Type:          ledger.MovementTransferIn,
			Quantity:      line.Quantity,
			CostFromStore: &src,
		})
	}

	return []ledger.ApplyRequest{
		{
			DocumentID:   t.ID,
			DocumentType: DocumentType,
			Period:       t.Date,
			Direction:    ledger.DirectionOut,
			Items:        out,
		},
		{
			DocumentID:   t.ID,
			DocumentType: DocumentType,
			Period:       t.Date,
			Direction:    ledger.DirectionIn,
			Items:        in,
		},
	}, nil
}

var _ posting.Postable = (*Transfer)(nil)
