package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/core"
	"finanze/internal/storage"
)

func runAdmin(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCategoryAddSystem(t *testing.T) {
	db := filepath.Join(t.TempDir(), "admin.db")

	out, err := runAdmin(t, "--db", db, "category", "add-system", "--kind", "expense", "--name", "Taxes")
	require.NoError(t, err)
	assert.Contains(t, out, `added system expense category "Taxes"`)

	out, err = runAdmin(t, "--db", db, "category", "add-system", "--kind", "expense", "--name", "taxes")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	_, err = runAdmin(t, "--db", db, "category", "add-system", "--kind", "savings", "--name", "Taxes")
	assert.ErrorIs(t, err, core.ErrValidation)

	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	user, err := repo.CreateUser(ctx, core.User{
		Username: "viewer", Email: "viewer@example.com", PasswordHash: "x", FirstName: "View", LastName: "Er",
	}, nil)
	require.NoError(t, err)
	cats, err := repo.ListCategories(ctx, user, core.KindExpense)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Taxes", cats[0].Name)
	assert.Equal(t, core.OriginSystem, cats[0].Origin())
}
