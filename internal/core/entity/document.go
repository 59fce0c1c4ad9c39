package entity

import (
	"context"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
)

// Status is the lifecycle status of a business document.
// The ledger only considers COMPLETED documents effective; every other
// status means the document's movements must not contribute to stock.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Document is the base type for stock-moving business transactions
// (Purchase, Sale, Return, Adjustment, Transfer).
type Document struct {
	BaseDocument

	// Number is the document number (unique within type)
	Number string `db:"number" json:"number"`

	// Date is the business (event-time) date of the document.
	// Distinct from CreatedAt: documents may be entered or re-dated
	// retroactively, which is what forces ledger reprocessing.
	Date time.Time `db:"date" json:"date"`

	// Status is the lifecycle status
	Status Status `db:"status" json:"status"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID in draft status.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		Status:       StatusDraft,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// CanModify checks if document can be modified.
// Completed documents must be cancelled (reverted) first.
func (d *Document) CanModify() error {
	if d.Status == StatusCompleted {
		return apperror.NewBusinessRule(
			apperror.CodeInvalidStatusTransition,
			"Cannot modify completed document. Cancel it first.",
		).WithDetail("document_id", d.ID.String())
	}
	return nil
}

// IsCompleted reports whether the document's movements are effective.
func (d *Document) IsCompleted() bool {
	return d.Status == StatusCompleted
}

// MarkCompleted flips the document to completed.
func (d *Document) MarkCompleted() error {
	if d.Status == StatusCompleted {
		return apperror.NewBusinessRule(
			apperror.CodeInvalidStatusTransition,
			"Document is already completed",
		).WithDetail("document_id", d.ID.String())
	}
	d.Status = StatusCompleted
	d.Touch()
	return nil
}

// MarkCancelled flips the document to cancelled.
func (d *Document) MarkCancelled() error {
	if d.Status == StatusCancelled {
		return apperror.NewBusinessRule(
			apperror.CodeInvalidStatusTransition,
			"Document is already cancelled",
		).WithDetail("document_id", d.ID.String())
	}
	d.Status = StatusCancelled
	d.Touch()
	return nil
}

// GetID returns the document ID.
func (d *Document) GetID() id.ID {
	return d.ID
}

// GetDate returns the business date.
func (d *Document) GetDate() time.Time {
	return d.Date
}

// GetStatus returns the lifecycle status.
func (d *Document) GetStatus() Status {
	return d.Status
}
