package storage

import (
	"context"

	"finanze/internal/core"
)

// Totals sums income and expenses of userID between start and end inclusive.
func (r *SQLiteRepository) Totals(ctx context.Context, userID int64, start, end core.Date) (core.Summary, error) {
	var s core.Summary
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE((SELECT SUM(amount_cents) FROM income WHERE user_id = ? AND income_date BETWEEN ? AND ?), 0),
		   COALESCE((SELECT SUM(amount_cents) FROM expenses WHERE user_id = ? AND expense_date BETWEEN ? AND ?), 0)`,
		userID, start.String(), end.String(), userID, start.String(), end.String(),
	).Scan(&s.Income.Cents, &s.Expenses.Cents)
	return s, core.Persistence("totals", err)
}

// CategoryTotals groups one ledger by category name for the window,
// largest first. Categories with nothing recorded are left out.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID int64, kind core.Kind, start, end core.Date) ([]core.CategoryAmount, error) {
	t := tablesFor(kind)
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, SUM(l.amount_cents) AS total
		   FROM `+t.ledger+` l JOIN `+t.category+` c ON c.id = l.category_id
		  WHERE l.user_id = ? AND l.`+t.date+` BETWEEN ? AND ?
		  GROUP BY c.id, c.name
		 HAVING total > 0
		  ORDER BY total DESC, c.name`,
		userID, start.String(), end.String())
	if err != nil {
		return nil, core.Persistence("category totals", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return nil, core.Persistence("scan category total", err)
		}
		out = append(out, ca)
	}
	return out, core.Persistence("category totals", rows.Err())
}
