package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/id"
	"kardex/internal/domain"
	"kardex/internal/domain/documents/adjustment"
	"kardex/internal/infrastructure/storage/postgres"
)

const (
	adjustmentsTable     = "doc_adjustments"
	adjustmentLinesTable = "doc_adjustment_lines"
)

// AdjustmentRepo implements adjustment.Repository.
type AdjustmentRepo struct {
	*BaseDocumentRepo[*adjustment.Adjustment]
}

// NewAdjustmentRepo creates a new adjustment repository.
func NewAdjustmentRepo(txManager *postgres.TxManager) *AdjustmentRepo {
	return &AdjustmentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			adjustmentsTable,
			postgres.ExtractDBColumns[adjustment.Adjustment](),
			func() *adjustment.Adjustment { return &adjustment.Adjustment{} },
		),
	}
}

// GetLines retrieves lines for an adjustment.
func (r *AdjustmentRepo) GetLines(ctx context.Context, docID id.ID) ([]adjustment.Line, error) {
	q := r.Builder().
		Select("line_id", "line_no", "product_id", "quantity_delta", "unit_cost").
		From(adjustmentLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []adjustment.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

// SaveLines saves lines for an adjustment (delete existing + insert new).
func (r *AdjustmentRepo) SaveLines(ctx context.Context, docID id.ID, lines []adjustment.Line) error {
	querier := r.Querier(ctx)

	deleteSQL := "DELETE FROM " + adjustmentLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(adjustmentLinesTable).
		Columns("line_id", "document_id", "line_no", "product_id", "quantity_delta", "unit_cost")

	for _, line := range lines {
		q = q.Values(line.LineID, docID, line.LineNo, line.ProductID, line.QuantityDelta, line.UnitCost)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// List retrieves adjustments with filtering.
func (r *AdjustmentRepo) List(ctx context.Context, filter adjustment.ListFilter) (domain.ListResult[*adjustment.Adjustment], error) {
	var result domain.ListResult[*adjustment.Adjustment]

	cond := func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
		if filter.StoreID != nil {
			q = q.Where(squirrel.Eq{"store_id": *filter.StoreID})
		}
		if filter.Status != nil {
			q = q.Where(squirrel.Eq{"status": *filter.Status})
		}
		if filter.DateFrom != nil {
			q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
		}
		if filter.DateTo != nil {
			q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
		}
		return q
	}

	total, err := r.CountWhere(ctx, cond)
	if err != nil {
		return result, err
	}
	result.Total = total

	err = r.SelectWhere(ctx, &result.Items, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		q = cond(q).OrderBy("date DESC", "created_at DESC")
		if filter.Limit > 0 {
			q = q.Limit(uint64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Offset(uint64(filter.Offset))
		}
		return q
	})
	if err != nil {
		return result, err
	}

	return result, nil
}

var _ adjustment.Repository = (*AdjustmentRepo)(nil)
