package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"finanze/internal/core"
)

// ListCategories returns the categories visible to userID (owned or system),
// ordered by name, each with the number of the user's ledger rows using it.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64, kind core.Kind) ([]core.Category, error) {
	t := tablesFor(kind)
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.name, c.description,
		        (SELECT COUNT(*) FROM `+t.ledger+` l WHERE l.category_id = c.id AND l.user_id = ?) AS usage_count
		   FROM `+t.category+` c
		  WHERE c.user_id = ? OR c.user_id IS NULL
		  ORDER BY c.name COLLATE NOCASE, c.id`,
		userID, userID)
	if err != nil {
		return nil, core.Persistence("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c := core.Category{Kind: kind}
		var owner sql.NullInt64
		if err := rows.Scan(&c.ID, &owner, &c.Name, &c.Description, &c.UsageCount); err != nil {
			return nil, core.Persistence("scan category", err)
		}
		if owner.Valid {
			id := owner.Int64
			c.OwnerID = &id
		}
		out = append(out, c)
	}
	return out, core.Persistence("list categories", rows.Err())
}

// GetVisibleCategory loads a category the user may attach ledger rows to.
func (r *SQLiteRepository) GetVisibleCategory(ctx context.Context, userID int64, kind core.Kind, id int64) (core.Category, error) {
	return r.visibleCategory(ctx, r.db, userID, kind, "c.id = ?", id)
}

// FindVisibleCategoryByName looks a category up by case-insensitive name.
func (r *SQLiteRepository) FindVisibleCategoryByName(ctx context.Context, userID int64, kind core.Kind, name string) (core.Category, error) {
	return r.visibleCategory(ctx, r.db, userID, kind, "c.name = ? COLLATE NOCASE", strings.TrimSpace(name))
}

func (r *SQLiteRepository) visibleCategory(ctx context.Context, q queryer, userID int64, kind core.Kind, cond string, arg any) (core.Category, error) {
	t := tablesFor(kind)
	c := core.Category{Kind: kind}
	var owner sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT c.id, c.user_id, c.name, c.description FROM `+t.category+` c
		  WHERE (c.user_id = ? OR c.user_id IS NULL) AND `+cond+`
		  ORDER BY c.user_id IS NULL, c.id LIMIT 1`,
		userID, arg).Scan(&c.ID, &owner, &c.Name, &c.Description)
	if err != nil {
		return core.Category{}, core.Persistence("get category", notFound(err))
	}
	if owner.Valid {
		id := owner.Int64
		c.OwnerID = &id
	}
	return c, nil
}

// CreateCategory inserts a user-owned category unless the name is already
// visible to that user.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID int64, c core.Category) (int64, error) {
	t := tablesFor(c.Kind)
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkDuplicateName(ctx, tx, t, userID, c.Name, 0); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO "+t.category+" (user_id, name, description, created_at) VALUES (?, ?, ?, ?)",
			userID, c.Name, c.Description, r.timestamp())
		if err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, core.Persistence("create category", err)
}

// UpdateCategory renames a category owned by userID.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID int64, c core.Category) error {
	t := tablesFor(c.Kind)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwnership(ctx, tx, t, userID, c.ID); err != nil {
			return err
		}
		if err := checkDuplicateName(ctx, tx, t, userID, c.Name, c.ID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE "+t.category+" SET name = ?, description = ? WHERE id = ? AND user_id = ?",
			c.Name, c.Description, c.ID, userID)
		if err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		return expectAffected(res)
	})
	return core.Persistence("update category", err)
}

// DeleteCategory removes a category owned by userID that no ledger row references.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID int64, kind core.Kind, id int64) error {
	t := tablesFor(kind)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkOwnership(ctx, tx, t, userID, id); err != nil {
			return err
		}
		var used int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+t.ledger+" WHERE category_id = ?", id).Scan(&used); err != nil {
			return fmt.Errorf("count category usage: %w", err)
		}
		if used > 0 {
			return core.ErrInUse
		}
		if kind == core.KindExpense {
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM budgets WHERE category_id = ?", id).Scan(&used); err != nil {
				return fmt.Errorf("count category budgets: %w", err)
			}
			if used > 0 {
				return core.ErrInUse
			}
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM "+t.category+" WHERE id = ? AND user_id = ?", id, userID)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return expectAffected(res)
	})
	return core.Persistence("delete category", err)
}

// checkOwnership returns ErrNotFound for a missing row and ErrForbidden for
// a system category or one owned by another user.
func checkOwnership(ctx context.Context, q queryer, t tables, userID, id int64) error {
	var owner sql.NullInt64
	err := q.QueryRowContext(ctx, "SELECT user_id FROM "+t.category+" WHERE id = ?", id).Scan(&owner)
	if err != nil {
		return notFound(err)
	}
	if !owner.Valid || owner.Int64 != userID {
		return core.ErrForbidden
	}
	return nil
}

func checkDuplicateName(ctx context.Context, q queryer, t tables, userID int64, name string, exceptID int64) error {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+t.category+
			" WHERE (user_id = ? OR user_id IS NULL) AND name = ? COLLATE NOCASE AND id <> ?",
		userID, strings.TrimSpace(name), exceptID).Scan(&n)
	if err != nil {
		return fmt.Errorf("check duplicate category: %w", err)
	}
	if n > 0 {
		return core.ErrDuplicateName
	}
	return nil
}

// InsertSystemCategory adds a shared category if no system category of that name exists.
func (r *SQLiteRepository) InsertSystemCategory(ctx context.Context, c core.Category) (bool, error) {
	t := tablesFor(c.Kind)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO "+t.category+" (user_id, name, description, created_at) "+
			"SELECT NULL, ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM "+t.category+" WHERE user_id IS NULL AND name = ? COLLATE NOCASE)",
		c.Name, c.Description, r.timestamp(), c.Name)
	if err != nil {
		return false, core.Persistence("insert system category", err)
	}
	n, err := res.RowsAffected()
	return n > 0, core.Persistence("insert system category", err)
}
