package storage

import (
	"context"
	"time"

	"finanze/internal/core"
)

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token_hash, user_id, created_at, expires_at, last_seen_at) VALUES (?, ?, ?, ?, ?)",
		s.TokenHash, s.UserID, formatTime(s.CreatedAt), formatTime(s.ExpiresAt), formatTime(s.LastSeenAt))
	return core.Persistence("create session", err)
}

// GetSession returns an unexpired session by token hash.
func (r *SQLiteRepository) GetSession(ctx context.Context, tokenHash string, now time.Time) (core.Session, error) {
	var (
		s                       core.Session
		created, expires, since string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT token_hash, user_id, created_at, expires_at, last_seen_at FROM sessions WHERE token_hash = ? AND expires_at > ?",
		tokenHash, formatTime(now)).Scan(&s.TokenHash, &s.UserID, &created, &expires, &since)
	if err != nil {
		return core.Session{}, core.Persistence("get session", notFound(err))
	}
	s.CreatedAt = parseTimestamp(created)
	s.ExpiresAt = parseTimestamp(expires)
	s.LastSeenAt = parseTimestamp(since)
	return s, nil
}

func (r *SQLiteRepository) TouchSession(ctx context.Context, tokenHash string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE sessions SET last_seen_at = ? WHERE token_hash = ?", formatTime(now), tokenHash)
	return core.Persistence("touch session", err)
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash = ?", tokenHash)
	return core.Persistence("delete session", err)
}

// DeleteUserSessions ends every session of a user except keepHash.
func (r *SQLiteRepository) DeleteUserSessions(ctx context.Context, userID int64, keepHash string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ? AND token_hash <> ?", userID, keepHash)
	return core.Persistence("delete user sessions", err)
}

// PurgeExpiredSessions removes sessions past their expiry and reports how many were removed.
func (r *SQLiteRepository) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", formatTime(now))
	if err != nil {
		return 0, core.Persistence("purge sessions", err)
	}
	n, err := res.RowsAffected()
	return n, core.Persistence("purge sessions", err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
