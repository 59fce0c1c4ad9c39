package sale

import (
	"context"
	"time"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain"
)

// Repository defines persistence operations for sale documents.
type Repository interface {
	Create(ctx context.Context, doc *Sale) error
	GetByID(ctx context.Context, docID id.ID) (*Sale, error)
	Update(ctx context.Context, doc *Sale) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	// UpdateLineCost rewrites the derived cost-at-sale on one line.
	// Called by reprocessing when earlier history changes the average
	// cost the sale was issued at.
	UpdateLineCost(ctx context.Context, docID, productID id.ID, cost types.Money) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}

// ListFilter narrows sale document queries.
type ListFilter struct {
	domain.ListFilter

	CustomerID *id.ID
	StoreID    *id.ID
	Status     *string
	DateFrom   *time.Time
	DateTo     *time.Time
}
