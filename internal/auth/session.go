package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"finanze/internal/core"
	"finanze/internal/log"
)

// CookieName is the session cookie.
const CookieName = "finanze_session"

// SessionStore persists sessions by token hash.
type SessionStore interface {
	CreateSession(ctx context.Context, s core.Session) error
	GetSession(ctx context.Context, tokenHash string, now time.Time) (core.Session, error)
	TouchSession(ctx context.Context, tokenHash string, now time.Time) error
	DeleteSession(ctx context.Context, tokenHash string) error
}

// UserLookup loads the user behind a session.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
}

// SessionConfig controls cookie lifetime and flags.
type SessionConfig struct {
	TTL         time.Duration
	RememberTTL time.Duration
	Secure      bool
}

// Sessions issues and resolves cookie sessions.
type Sessions struct {
	store  SessionStore
	users  UserLookup
	config SessionConfig
	now    func() time.Time
}

func NewSessions(store SessionStore, users UserLookup, config SessionConfig) *Sessions {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if config.RememberTTL <= 0 {
		config.RememberTTL = 30 * 24 * time.Hour
	}
	return &Sessions{store: store, users: users, config: config, now: time.Now}
}

// HashToken returns the stored form of a session token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Start creates a session for userID and sets the cookie on w.
func (s *Sessions) Start(ctx context.Context, w http.ResponseWriter, userID int64, remember bool) error {
	token := uuid.NewString()
	now := s.now()
	ttl := s.config.TTL
	if remember {
		ttl = s.config.RememberTTL
	}
	sess := core.Session{
		TokenHash:  HashToken(token),
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastSeenAt: now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	// without remember-me the cookie lives for the browser session only
	if remember {
		cookie.Expires = sess.ExpiresAt
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

// End deletes the session behind the request cookie and clears it.
func (s *Sessions) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := r.Cookie(CookieName)
	if err == nil && c.Value != "" {
		if err := s.store.DeleteSession(ctx, HashToken(c.Value)); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Resolve returns the identity for the request cookie. A missing, unknown
// or expired session yields ErrNotFound.
func (s *Sessions) Resolve(ctx context.Context, r *http.Request) (Identity, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return Identity{}, core.ErrNotFound
	}
	hash := HashToken(c.Value)
	now := s.now()

	sess, err := s.store.GetSession(ctx, hash, now)
	if err != nil {
		return Identity{}, err
	}
	user, err := s.users.GetUser(ctx, sess.UserID)
	if err != nil {
		return Identity{}, err
	}
	// coarse last-seen updates
	if now.Sub(sess.LastSeenAt) > 5*time.Minute {
		_ = s.store.TouchSession(ctx, hash, now)
	}
	return Identity{
		UserID:    user.ID,
		Username:  user.Username,
		FullName:  user.FullName(),
		IsAdmin:   user.IsAdmin,
		TokenHash: hash,
	}, nil
}

// Middleware resolves the session cookie and stores the identity on the
// request context. Requests without a valid session pass through anonymous.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.Resolve(r.Context(), r)
		if err == nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		} else if !errors.Is(err, core.ErrNotFound) {
			log.FromContext(r.Context()).WithComponent(log.ComponentAuth).
				WarnContext(r.Context(), "Session lookup failed", log.FieldError, err)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth redirects anonymous requests to the login page. HTMX requests
// get an HX-Redirect header instead of a 303.
func RequireAuth(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", loginPath)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
		})
	}
}
