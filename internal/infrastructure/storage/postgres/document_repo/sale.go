package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kardex/internal/core/id"
	"kardex/internal/core/types"
	"kardex/internal/domain"
	"kardex/internal/domain/documents/sale"
	"kardex/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			salesTable,
			postgres.ExtractDBColumns[sale.Sale](),
			func() *sale.Sale { return &sale.Sale{} },
		),
	}
}

// GetLines retrieves lines for a sale.
func (r *SaleRepo) GetLines(ctx context.Context, docID id.ID) ([]sale.Line, error) {
	q := r.Builder().
		Select("line_id", "line_no", "product_id", "quantity", "sale_price", "cost_at_sale", "amount").
		From(saleLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sale.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

// SaveLines saves lines for a sale (delete existing + insert new).
func (r *SaleRepo) SaveLines(ctx context.Context, docID id.ID, lines []sale.Line) error {
	querier := r.Querier(ctx)

	deleteSQL := "DELETE FROM " + saleLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(saleLinesTable).
		Columns("line_id", "document_id", "line_no", "product_id", "quantity", "sale_price", "cost_at_sale", "amount")

	for _, line := range lines {
		q = q.Values(line.LineID, docID, line.LineNo, line.ProductID, line.Quantity, line.SalePrice, line.CostAtSale, line.Amount)
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

// UpdateLineCost rewrites the derived cost-at-sale on one line.
func (r *SaleRepo) UpdateLineCost(ctx context.Context, docID, productID id.ID, cost types.Money) error {
	q := r.Builder().
		Update(saleLinesTable).
		Set("cost_at_sale", cost).
		Where(squirrel.Eq{"document_id": docID, "product_id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update line cost: %w", err)
	}
	return nil
}

// List retrieves sales with filtering.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	var result domain.ListResult[*sale.Sale]

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

var _ sale.Repository = (*SaleRepo)(nil)
