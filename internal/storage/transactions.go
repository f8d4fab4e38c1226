package storage

import (
	"context"
	"fmt"

	"finanze/internal/core"
	"finanze/internal/query"
)

// QueryTransactions runs the union transaction view for one page.
func (r *SQLiteRepository) QueryTransactions(ctx context.Context, userID int64, f query.Filter, s query.Sort, p query.Page) (query.Result, error) {
	list, count, err := query.Build(userID, f, s, p)
	if err != nil {
		return query.Result{}, fmt.Errorf("build transaction query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, count.SQL, count.Args...).Scan(&total); err != nil {
		return query.Result{}, core.Persistence("count transactions", err)
	}

	rows, err := r.ledgerRows(ctx, list)
	if err != nil {
		return query.Result{}, err
	}

	res := query.Result{
		Rows:         rows,
		TotalRecords: total,
		Page:         p.Number,
		PageSize:     p.Size,
	}
	if p.Size > 0 {
		res.TotalPages = query.TotalPages(total, p.Size)
	} else if total > 0 {
		res.TotalPages = 1
	}
	return res, nil
}

// RecentTransactions returns the newest n rows across both ledgers.
func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID int64, n int) ([]core.LedgerRow, error) {
	list, _, err := query.Build(userID, query.Filter{}, query.DefaultSort, query.Page{Number: 1, Size: n})
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}
	return r.ledgerRows(ctx, list)
}

// AllTransactions returns every row matching f, unpaged.
func (r *SQLiteRepository) AllTransactions(ctx context.Context, userID int64, f query.Filter, s query.Sort) ([]core.LedgerRow, error) {
	list, _, err := query.Build(userID, f, s, query.Page{})
	if err != nil {
		return nil, fmt.Errorf("build transaction query: %w", err)
	}
	return r.ledgerRows(ctx, list)
}

func (r *SQLiteRepository) ledgerRows(ctx context.Context, st query.Statement) ([]core.LedgerRow, error) {
	rows, err := r.db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, core.Persistence("query transactions", err)
	}
	defer rows.Close()

	out := []core.LedgerRow{}
	for rows.Next() {
		var (
			row  core.LedgerRow
			kind string
			date string
		)
		if err := rows.Scan(&row.ID, &kind, &row.Amount.Cents, &row.Description, &date, &row.Category); err != nil {
			return nil, core.Persistence("scan transaction", err)
		}
		row.Kind = core.Kind(kind)
		if row.Date, err = scanDate(date); err != nil {
			return nil, core.Persistence("scan transaction", err)
		}
		out = append(out, row)
	}
	return out, core.Persistence("query transactions", rows.Err())
}
