package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/id"
	"kardex/internal/domain"
	"kardex/internal/domain/documents/salesreturn"
	"kardex/internal/infrastructure/storage/postgres"
)

const (
	salesReturnsTable     = "doc_sales_returns"
	salesReturnLinesTable = "doc_sales_return_lines"
)

// SalesReturnRepo implements salesreturn.Repository.
type SalesReturnRepo struct {
	*BaseDocumentRepo[*salesreturn.Return]
}

// NewSalesReturnRepo creates a new sales return repository.
func NewSalesReturnRepo(txManager *postgres.TxManager) *SalesReturnRepo {
	return &SalesReturnRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			salesReturnsTable,
			postgres.ExtractDBColumns[salesreturn.Return](),
			func() *salesreturn.Return { return &salesreturn.Return{} },
		),
	}
}

// GetLines retrieves lines for a sales return.
func (r *SalesReturnRepo) GetLines(ctx context.Context, docID id.ID) ([]salesreturn.Line, error) {
	q := r.Builder().
		Select("line_id", "line_no", "product_id", "quantity", "unit_cost", "amount").
		From(salesReturnLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []salesreturn.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

// SaveLines saves lines for a sales return (delete existing + insert new).
func (r *SalesReturnRepo) SaveLines(ctx context.Context, docID id.ID, lines []salesreturn.Line) error {
	querier := r.Querier(ctx)

	deleteSQL := "DELETE FROM " + salesReturnLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(salesReturnLinesTable).
		Columns("line_id", "document_id", "line_no", "product_id", "quantity", "unit_cost", "amount")

	for _, line := range lines {
		q = q.Values(line.LineID, docID, line.LineNo, line.ProductID, line.Quantity, line.UnitCost, line.Amount)
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

// List retrieves sales returns with filtering.
func (r *SalesReturnRepo) List(ctx context.Context, filter salesreturn.ListFilter) (domain.ListResult[*salesreturn.Return], error) {
	var result domain.ListResult[*salesreturn.Return]

	cond := func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
		if filter.CustomerID != nil {
			q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
		}
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

var _ salesreturn.Repository = (*SalesReturnRepo)(nil)
