package storage

import (
	"context"
	"database/sql"
	"fmt"

	"finanze/internal/core"
)

// spentExpr sums the owner's expenses in the budget's own category and period.
const spentExpr = `COALESCE((SELECT SUM(x.amount_cents) FROM expenses x
	WHERE x.user_id = b.user_id AND x.category_id = b.category_id
	  AND x.expense_date BETWEEN b.period_start AND b.period_end), 0)`

const budgetSelect = `SELECT b.id, b.user_id, b.category_id, c.name, b.amount_cents, b.period_start, b.period_end, ` + spentExpr + `
	FROM budgets b JOIN expense_categories c ON c.id = b.category_id`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b          core.Budget
		start, end string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Category, &b.Amount.Cents, &start, &end, &b.Spent.Cents); err != nil {
		return core.Budget{}, err
	}
	var err error
	if b.PeriodStart, err = scanDate(start); err != nil {
		return core.Budget{}, err
	}
	if b.PeriodEnd, err = scanDate(end); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// CreateBudget inserts a budget unless another budget of the same user and
// category shares at least one day with its period.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.visibleCategory(ctx, tx, b.UserID, core.KindExpense, "c.id = ?", b.CategoryID); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM budgets
			  WHERE user_id = ? AND category_id = ? AND period_start <= ? AND period_end >= ?`,
			b.UserID, b.CategoryID, b.PeriodEnd.String(), b.PeriodStart.String()).Scan(&n); err != nil {
			return fmt.Errorf("check budget overlap: %w", err)
		}
		if n > 0 {
			return core.ErrOverlap
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO budgets (user_id, category_id, amount_cents, period_start, period_end, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			b.UserID, b.CategoryID, b.Amount.Cents, b.PeriodStart.String(), b.PeriodEnd.String(), r.timestamp())
		if err != nil {
			return fmt.Errorf("insert budget: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, core.Persistence("create budget", err)
}

// UpdateBudget replaces the fields of a budget owned by b.UserID. Overlaps are not re-checked.
func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.visibleCategory(ctx, tx, b.UserID, core.KindExpense, "c.id = ?", b.CategoryID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE budgets SET category_id = ?, amount_cents = ?, period_start = ?, period_end = ? WHERE id = ? AND user_id = ?",
			b.CategoryID, b.Amount.Cents, b.PeriodStart.String(), b.PeriodEnd.String(), b.ID, b.UserID)
		if err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		return expectAffected(res)
	})
	return core.Persistence("update budget", err)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return core.Persistence("delete budget", err)
	}
	return core.Persistence("delete budget", expectAffected(res))
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	b, err := scanBudget(r.db.QueryRowContext(ctx, budgetSelect+" WHERE b.id = ? AND b.user_id = ?", id, userID))
	return b, core.Persistence("get budget", notFound(err))
}

// ListBudgets returns every budget of the user, newest period first.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	return r.queryBudgets(ctx, budgetSelect+" WHERE b.user_id = ? ORDER BY b.period_start DESC, c.name COLLATE NOCASE, b.id", userID)
}

// BudgetStatus returns spent-vs-budget for every budget intersecting [start, end].
func (r *SQLiteRepository) BudgetStatus(ctx context.Context, userID int64, start, end core.Date) ([]core.BudgetStatus, error) {
	budgets, err := r.queryBudgets(ctx,
		budgetSelect+" WHERE b.user_id = ? AND b.period_start <= ? AND b.period_end >= ? ORDER BY c.name COLLATE NOCASE, b.period_start, b.id",
		userID, end.String(), start.String())
	if err != nil {
		return nil, err
	}
	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, core.BudgetStatus{
			BudgetID:    b.ID,
			Category:    b.Category,
			Budget:      b.Amount,
			Spent:       b.Spent,
			PeriodStart: b.PeriodStart,
			PeriodEnd:   b.PeriodEnd,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.Persistence("list budgets", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, core.Persistence("scan budget", err)
		}
		out = append(out, b)
	}
	return out, core.Persistence("list budgets", rows.Err())
}
