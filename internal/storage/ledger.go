package storage

import (
	"context"
	"database/sql"
	"fmt"

	"finanze/internal/core"
)

// CreateTransaction inserts an income or expense row after checking that the
// category is visible to the owner.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = r.insertTransaction(ctx, tx, t)
		return err
	})
	return id, core.Persistence("create transaction", err)
}

// ImportTransactions inserts every row in one transaction; any failure rolls all of them back.
func (r *SQLiteRepository) ImportTransactions(ctx context.Context, rows []core.Transaction) (int, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for i, t := range rows {
			if _, err := r.insertTransaction(ctx, tx, t); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, core.Persistence("import transactions", err)
	}
	return len(rows), nil
}

func (r *SQLiteRepository) insertTransaction(ctx context.Context, tx *sql.Tx, t core.Transaction) (int64, error) {
	if _, err := r.visibleCategory(ctx, tx, t.UserID, t.Kind, "c.id = ?", t.CategoryID); err != nil {
		return 0, err
	}
	tb := tablesFor(t.Kind)
	res, err := tx.ExecContext(ctx,
		"INSERT INTO "+tb.ledger+" (user_id, category_id, amount_cents, description, "+tb.date+", created_at) VALUES (?, ?, ?, ?, ?, ?)",
		t.UserID, t.CategoryID, t.Amount.Cents, nullString(t.Description), t.Date.String(), r.timestamp())
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", t.Kind, err)
	}
	return res.LastInsertId()
}

// UpdateTransaction replaces category, amount, description and date of a row owned by t.UserID.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	tb := tablesFor(t.Kind)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.visibleCategory(ctx, tx, t.UserID, t.Kind, "c.id = ?", t.CategoryID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE "+tb.ledger+" SET category_id = ?, amount_cents = ?, description = ?, "+tb.date+" = ? WHERE id = ? AND user_id = ?",
			t.CategoryID, t.Amount.Cents, nullString(t.Description), t.Date.String(), t.ID, t.UserID)
		if err != nil {
			return fmt.Errorf("update %s: %w", t.Kind, err)
		}
		return expectAffected(res)
	})
	return core.Persistence("update transaction", err)
}

// DeleteTransaction removes a row owned by userID.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID int64, kind core.Kind, id int64) error {
	tb := tablesFor(kind)
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+tb.ledger+" WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return core.Persistence("delete transaction", err)
	}
	return core.Persistence("delete transaction", expectAffected(res))
}

// GetTransaction loads a row owned by userID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID int64, kind core.Kind, id int64) (core.Transaction, error) {
	tb := tablesFor(kind)
	t := core.Transaction{Kind: kind}
	var date string
	err := r.db.QueryRowContext(ctx,
		"SELECT l.id, l.user_id, l.category_id, c.name, l.amount_cents, COALESCE(l.description, ''), l."+tb.date+
			" FROM "+tb.ledger+" l JOIN "+tb.category+" c ON c.id = l.category_id WHERE l.id = ? AND l.user_id = ?",
		id, userID).Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Category, &t.Amount.Cents, &t.Description, &date)
	if err != nil {
		return core.Transaction{}, core.Persistence("get transaction", notFound(err))
	}
	if t.Date, err = scanDate(date); err != nil {
		return core.Transaction{}, core.Persistence("get transaction", err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
