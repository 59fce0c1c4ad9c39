package salesreturn

import (
	"context"
	"time"

	"kardex/internal/core/id"
	"kardex/internal/domain"
)

// Repository defines persistence operations for sales return documents.
type Repository interface {
	Create(ctx context.Context, doc *Return) error
	GetByID(ctx context.Context, docID id.ID) (*Return, error)
	Update(ctx context.Context, doc *Return) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Return], error)
}

// ListFilter narrows sales return document queries.
type ListFilter struct {
	domain.ListFilter

	CustomerID *id.ID
	StoreID    *id.ID
	Status     *string
	DateFrom   *time.Time
	DateTo     *time.Time
}
