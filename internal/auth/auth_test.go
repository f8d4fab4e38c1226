package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/core"
)

type memStore struct {
	sessions map[string]core.Session
	touched  int
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]core.Session{}}
}

func (m *memStore) CreateSession(_ context.Context, s core.Session) error {
	m.sessions[s.TokenHash] = s
	return nil
}

func (m *memStore) GetSession(_ context.Context, hash string, now time.Time) (core.Session, error) {
	s, ok := m.sessions[hash]
	if !ok || !s.ExpiresAt.After(now) {
		return core.Session{}, core.ErrNotFound
	}
	return s, nil
}

func (m *memStore) TouchSession(_ context.Context, hash string, now time.Time) error {
	m.touched++
	s := m.sessions[hash]
	s.LastSeenAt = now
	m.sessions[hash] = s
	return nil
}

func (m *memStore) DeleteSession(_ context.Context, hash string) error {
	delete(m.sessions, hash)
	return nil
}

type memUsers map[int64]core.User

func (u memUsers) GetUser(_ context.Context, id int64) (core.User, error) {
	user, ok := u[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return user, nil
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"", false},
		{"abc123", false},
		{"abcdefgh", false},
		{"12345678", false},
		{"abcd1234", true},
		{"P@ssw0rd!", true},
		{"with space1", false},
		{"unicodé123", false},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePassword("password", tt.password)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, core.ErrValidation)
			}
		})
	}
}

func TestHasher(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash("abcd1234")
	require.NoError(t, err)
	assert.NotEqual(t, "abcd1234", hash)

	assert.NoError(t, h.Verify(hash, "abcd1234"))
	assert.ErrorIs(t, h.Verify(hash, "wrong123"), core.ErrInvalidCredentials)

	assert.Equal(t, DefaultCost, NewHasher(99).Cost)
}

func TestSessions_StartResolveEnd(t *testing.T) {
	store := newMemStore()
	users := memUsers{1: {ID: 1, Username: "alice", FirstName: "Alice"}}
	s := NewSessions(store, users, SessionConfig{TTL: time.Hour, RememberTTL: 48 * time.Hour})
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	rec := httptest.NewRecorder()
	require.NoError(t, s.Start(ctx, rec, 1, false))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Zero(t, c.MaxAge)

	// only the hash is stored
	_, raw := store.sessions[c.Value]
	assert.False(t, raw)
	_, hashed := store.sessions[HashToken(c.Value)]
	assert.True(t, hashed)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	id, err := s.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.UserID)
	assert.Equal(t, "Alice", id.FullName)

	now = now.Add(2 * time.Hour)
	_, err = s.Resolve(ctx, req)
	assert.ErrorIs(t, err, core.ErrNotFound)

	now = now.Add(-2 * time.Hour)
	require.NoError(t, s.End(ctx, httptest.NewRecorder(), req))
	_, err = s.Resolve(ctx, req)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSessions_RememberMe(t *testing.T) {
	store := newMemStore()
	s := NewSessions(store, memUsers{}, SessionConfig{TTL: time.Hour, RememberTTL: 30 * 24 * time.Hour})

	rec := httptest.NewRecorder()
	require.NoError(t, s.Start(context.Background(), rec, 1, true))
	c := rec.Result().Cookies()[0]
	assert.Equal(t, 30*24*3600, c.MaxAge)

	sess := store.sessions[HashToken(c.Value)]
	assert.InDelta(t, (30 * 24 * time.Hour).Seconds(), sess.ExpiresAt.Sub(sess.CreatedAt).Seconds(), 1)
}

func TestMiddleware_AndRequireAuth(t *testing.T) {
	store := newMemStore()
	s := NewSessions(store, memUsers{5: {ID: 5, Username: "bob"}}, SessionConfig{})

	var seen Identity
	protected := s.Middleware(RequireAuth("/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ui/dashboard/summary", nil)
	req.Header.Set("HX-Request", "true")
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))

	login := httptest.NewRecorder()
	require.NoError(t, s.Start(context.Background(), login, 5, false))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(login.Result().Cookies()[0])
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), seen.UserID)
	assert.Equal(t, "bob", seen.Username)
}

func TestFromContext_Empty(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(WithIdentity(context.Background(), Identity{}))
	assert.False(t, ok)
}
