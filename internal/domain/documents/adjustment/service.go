package adjustment

import (
	"context"
	"fmt"

	"kardex/internal/core/id"
	"kardex/internal/core/numbering"
	"kardex/internal/core/tx"
	"kardex/internal/domain"
	"kardex/internal/domain/posting"
	"kardex/pkg/logger"
)

// Service provides business operations for adjustment documents.
type Service struct {
	repo          Repository
	postingEngine *posting.Engine
	txManager     tx.Manager
}

// NewService creates a new adjustment service.
func NewService(repo Repository, postingEngine *posting.Engine, txManager tx.Manager) *Service {
	return &Service{
		repo:          repo,
		postingEngine: postingEngine,
		txManager:     txManager,
	}
}

// Create creates a new adjustment document in draft status.
func (s *Service) Create(ctx context.Context, doc *Adjustment) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		doc.Number = numbering.Next("ADJ")
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "adjustment created", "id", doc.ID, "number", doc.Number)
	return nil
}

// GetByID retrieves an adjustment with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Adjustment, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// Update updates an adjustment document.
func (s *Service) Update(ctx context.Context, doc *Adjustment) error {
	if err := doc.CanModify(); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
}

// Delete soft-deletes a draft or cancelled adjustment.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if err := doc.CanModify(); err != nil {
		return err
	}

	return s.repo.Delete(ctx, docID)
}

// Complete applies the adjustment to stock.
func (s *Service) Complete(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	return s.postingEngine.Complete(ctx, doc, func(ctx context.Context) error {
		return s.repo.Update(ctx, doc)
	})
}

// Cancel reverts the adjustment's movements.
func (s *Service) Cancel(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	return s.postingEngine.Cancel(ctx, doc, func(ctx context.Context) error {
		return s.repo.Update(ctx, doc)
	})
}

// List retrieves adjustments with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Adjustment], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}
