package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"finanze/internal/auth"
	"finanze/internal/core"
	"finanze/internal/storage"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func fastHasher() *auth.Hasher {
	return auth.NewHasher(bcrypt.MinCost)
}

func newUser(t *testing.T, repo *storage.SQLiteRepository, username string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), core.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     username,
	}, nil)
	require.NoError(t, err)
	return id
}

func newCategory(t *testing.T, repo *storage.SQLiteRepository, userID int64, kind core.Kind, name string) int64 {
	t.Helper()
	id, err := repo.CreateCategory(context.Background(), userID, core.Category{Kind: kind, Name: name})
	require.NoError(t, err)
	return id
}

func date(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls map[int64]int
}

func (c *countingInvalidator) Invalidate(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[int64]int{}
	}
	c.calls[userID]++
}

func (c *countingInvalidator) count(userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[userID]
}
