// Package documents wires the concrete document kinds to the ledger's
// polymorphic document view.
package documents

import (
	"context"
	"fmt"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain/documents/adjustment"
	"kardex/internal/domain/documents/purchase"
	"kardex/internal/domain/documents/sale"
	"kardex/internal/domain/documents/salesreturn"
	"kardex/internal/domain/documents/transfer"
	"kardex/internal/domain/ledger"
)

// Resolver loads causing documents for the reprocessing engine and
// writes derived values back to sale lines. Implements
// ledger.DocumentResolver.
type Resolver struct {
	purchases   purchase.Repository
	sales       sale.Repository
	returns     salesreturn.Repository
	adjustments adjustment.Repository
	transfers   transfer.Repository
}

// NewResolver creates a document resolver over the five document kinds.
func NewResolver(
	purchases purchase.Repository,
	sales sale.Repository,
	returns salesreturn.Repository,
	adjustments adjustment.Repository,
	transfers transfer.Repository,
) *Resolver {
	return &Resolver{
		purchases:   purchases,
		sales:       sales,
		returns:     returns,
		adjustments: adjustments,
		transfers:   transfers,
	}
}

// Resolve loads the document referenced by a ledger entry and projects
// it to the ledger's view: status plus authoritative line prices.
func (r *Resolver) Resolve(ctx context.Context, docType string, docID id.ID) (*ledger.CausingDocument, error) {
	switch docType {
	case purchase.DocumentType:
		doc, err := r.purchases.GetByID(ctx, docID)
		if err != nil {
			return nil, err
		}
		lines, err := r.purchases.GetLines(ctx, docID)
		if err != nil {
			return nil, err
		}
		out := &ledger.CausingDocument{ID: doc.ID, Type: docType, Status: doc.Status}
		for _, line := range lines {
			out.Lines = append(out.Lines, ledger.DocumentLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			})
		}
		return out, nil

	case sale.DocumentType:
		doc, err := r.sales.GetByID(ctx, docID)
		if err != nil {
			return nil, err
		}
		lines, err := r.sales.GetLines(ctx, docID)
		if err != nil {
			return nil, err
		}
		out := &ledger.CausingDocument{ID: doc.ID, Type: docType, Status: doc.Status}
		for _, line := range lines {
			out.Lines = append(out.Lines, ledger.DocumentLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
		}
		return out, nil

	case salesreturn.DocumentType:
		doc, err := r.returns.GetByID(ctx, docID)
		if err != nil {
			return nil, err
		}
		lines, err := r.returns.GetLines(ctx, docID)
		if err != nil {
			return nil, err
		}
		out := &ledger.CausingDocument{ID: doc.ID, Type: docType, Status: doc.Status}
		for _, line := range lines {
			out.Lines = append(out.Lines, ledger.DocumentLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitCost,
			})
		}
		return out, nil

	case adjustment.DocumentType:
		doc, err := r.adjustments.GetByID(ctx, docID)
		if err != nil {
			return nil, err
		}
		lines, err := r.adjustments.GetLines(ctx, docID)
		if err != nil {
			return nil, err
		}
		out := &ledger.CausingDocument{ID: doc.ID, Type: docType, Status: doc.Status}
		for _, line := range lines {
			out.Lines = append(out.Lines, ledger.DocumentLine{
				ProductID: line.ProductID,
				Quantity:  line.QuantityDelta,
				UnitPrice: line.UnitCost,
			})
		}
		return out, nil

	case transfer.DocumentType:
		doc, err := r.transfers.GetByID(ctx, docID)
		if err != nil {
			return nil, err
		}
		lines, err := r.transfers.GetLines(ctx, docID)
		if err != nil {
			return nil, err
		}
		out := &ledger.CausingDocument{ID: doc.ID, Type: docType, Status: doc.Status}
		for _, line := range lines {
			out.Lines = append(out.Lines, ledger.DocumentLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown document type %q", docType)
	}
}

// UpdateCostAtSale implements ledger.DocumentResolver.
func (r *Resolver) UpdateCostAtSale(ctx context.Context, saleID, productID id.ID, cost types.Money) error {
	return r.sales.UpdateLineCost(ctx, saleID, productID, cost)
}

var _ ledger.DocumentResolver = (*Resolver)(nil)
