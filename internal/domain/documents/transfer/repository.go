package transfer

import (
	"context"
	"time"

	"kardex/internal/core/id"
	"kardex/internal/domain"
)

// Repository defines persistence operations for transfer documents.
type Repository interface {
	Create(ctx context.Context, doc *Transfer) error
	GetByID(ctx context.Context, docID id.ID) (*Transfer, error)
	Update(ctx context.Context, doc *Transfer) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transfer], error)
}

// ListFilter narrows transfer document queries.
type ListFilter struct {
	domain.ListFilter

	SourceStoreID *id.ID
	DestStoreID   *id.ID
	Status        *string
	DateFrom      *time.Time
	DateTo        *time.Time
}
