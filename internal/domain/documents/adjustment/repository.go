package adjustment

import (
	"context"
	"time"

	"kardex/internal/core/id"
	"kardex/internal/domain"
)

// Repository defines persistence operations for adjustment documents.
type Repository interface {
	Create(ctx context.Context, doc *Adjustment) error
	GetByID(ctx context.Context, docID id.ID) (*Adjustment, error)
	Update(ctx context.Context, doc *Adjustment) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Adjustment], error)
}

// ListFilter narrows adjustment document queries.
type ListFilter struct {
	domain.ListFilter

	StoreID  *id.ID
	Status   *string
	DateFrom *time.Time
	DateTo   *time.Time
}
