package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"finanze/internal/core"
)

const userColumns = "id, username, email, password_hash, first_name, last_name, is_admin, created_at"

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u       core.User
		admin   int64
		created string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &admin, &created); err != nil {
		return core.User{}, err
	}
	u.IsAdmin = admin != 0
	u.CreatedAt = parseTimestamp(created)
	return u, nil
}

// CreateUser inserts u together with its default categories in one transaction.
// Username and email uniqueness is checked inside the same transaction.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User, defaults []core.Category) (int64, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := usernameOrEmailTaken(ctx, tx, u.Username, u.Email, 0)
		if err != nil {
			return err
		}
		if taken != "" {
			return core.NewValidationError(taken, taken+" is already registered")
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, email, password_hash, first_name, last_name, is_admin, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, boolInt(u.IsAdmin), r.timestamp())
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("user id: %w", err)
		}

		for _, c := range defaults {
			t := tablesFor(c.Kind)
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO "+t.category+" (user_id, name, description, created_at) VALUES (?, ?, ?, ?)",
				id, c.Name, c.Description, r.timestamp()); err != nil {
				return fmt.Errorf("seed %s category %q: %w", c.Kind, c.Name, err)
			}
		}
		return nil
	})
	return id, core.Persistence("create user", err)
}

// usernameOrEmailTaken returns the name of the colliding field, or "" when both are free.
func usernameOrEmailTaken(ctx context.Context, q queryer, username, email string, exceptID int64) (string, error) {
	var n int
	if username != "" {
		if err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM users WHERE username = ? AND id <> ?", username, exceptID).Scan(&n); err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if n > 0 {
			return "username", nil
		}
	}
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = ? COLLATE NOCASE AND id <> ?", email, exceptID).Scan(&n); err != nil {
		return "", fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return "email", nil
	}
	return "", nil
}

// GetUser loads a user by id.
func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	return u, core.Persistence("get user", notFound(err))
}

// FindUserByLogin loads a user whose username or email equals login.
func (r *SQLiteRepository) FindUserByLogin(ctx context.Context, login string) (core.User, error) {
	login = strings.TrimSpace(login)
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ? OR email = ? COLLATE NOCASE LIMIT 1", login, login))
	return u, core.Persistence("find user", notFound(err))
}

// UpdateProfile changes email and names, rejecting an email used by someone else.
func (r *SQLiteRepository) UpdateProfile(ctx context.Context, u core.User) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := usernameOrEmailTaken(ctx, tx, "", u.Email, u.ID)
		if err != nil {
			return err
		}
		if taken != "" {
			return core.NewValidationError("email", "email is already used by another account")
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE users SET email = ?, first_name = ?, last_name = ? WHERE id = ?",
			u.Email, u.FirstName, u.LastName, u.ID)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return expectAffected(res)
	})
	return core.Persistence("update profile", err)
}

// UpdatePasswordHash stores a new password hash.
func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, userID)
	if err != nil {
		return core.Persistence("update password", err)
	}
	return core.Persistence("update password", expectAffected(res))
}

// CountUsers returns the number of registered accounts.
func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, core.Persistence("count users", err)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
