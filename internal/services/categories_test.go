package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/cache"
	"finanze/internal/core"
)

func TestCategoryService_Lifecycle(t *testing.T) {
	repo := newRepo(t)
	inv := &countingInvalidator{}
	svc := NewCategoryService(repo, inv)
	ctx := context.Background()
	user := newUser(t, repo, "cats")

	id, err := svc.Create(ctx, user, core.KindExpense, "  Groceries ", "weekly shop")
	require.NoError(t, err)

	_, err = svc.Create(ctx, user, core.KindExpense, "groceries", "")
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	_, err = svc.Create(ctx, user, core.KindExpense, "", "")
	assert.ErrorIs(t, err, core.ErrValidation)

	require.NoError(t, svc.Update(ctx, user, core.KindExpense, id, "Supermarket", ""))
	assert.Equal(t, 1, inv.count(user))

	list, err := svc.List(ctx, user, core.KindExpense)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Supermarket", list[0].Name)
	assert.Equal(t, core.OriginUser, list[0].Origin())

	other := newUser(t, repo, "intruder")
	assert.Error(t, svc.Delete(ctx, other, core.KindExpense, id))

	require.NoError(t, svc.Delete(ctx, user, core.KindExpense, id))
	assert.Equal(t, 2, inv.count(user))
	assert.Equal(t, 0, inv.count(other))
	list, err = svc.List(ctx, user, core.KindExpense)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCategoryService_RenameRefreshesCachedDashboard(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	dash := NewDashboardService(repo, cache.NewLRUCache[*Dashboard](10, time.Hour))
	cats := NewCategoryService(repo, dash)
	ledger := NewLedgerService(repo, repo, dash)
	user := newUser(t, repo, "renamer")

	id, err := cats.Create(ctx, user, core.KindExpense, "Food", "")
	require.NoError(t, err)
	today := core.DateOf(time.Now())
	_, err = ledger.Create(ctx, user, core.KindExpense, TransactionInput{CategoryID: id, Amount: core.Money{Cents: 1200}, Date: today})
	require.NoError(t, err)

	d, err := dash.Current(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, d.Recent)
	assert.Equal(t, "Food", d.Recent[0].Category)

	require.NoError(t, cats.Update(ctx, user, core.KindExpense, id, "Groceries", ""))

	d, err = dash.Current(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", d.Recent[0].Category)
}

func TestCategoryService_AddSystem(t *testing.T) {
	repo := newRepo(t)
	svc := NewCategoryService(repo, nil)
	ctx := context.Background()
	user := newUser(t, repo, "shared")

	inserted, err := svc.AddSystem(ctx, core.KindIncome, " Pension ", "")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = svc.AddSystem(ctx, core.KindIncome, "pension", "")
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = svc.AddSystem(ctx, core.Kind("savings"), "Pension", "")
	assert.ErrorIs(t, err, core.ErrValidation)

	list, err := svc.List(ctx, user, core.KindIncome)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pension", list[0].Name)
	assert.Equal(t, core.OriginSystem, list[0].Origin())

	_, err = svc.Create(ctx, user, core.KindIncome, "PENSION", "")
	assert.ErrorIs(t, err, core.ErrDuplicateName)
	assert.ErrorIs(t, svc.Update(ctx, user, core.KindIncome, list[0].ID, "Wages", ""), core.ErrForbidden)
}

func TestCategoryService_RejectsUnknownKind(t *testing.T) {
	svc := NewCategoryService(nil, nil)
	_, err := svc.List(context.Background(), 1, core.Kind("savings"))
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.ErrorIs(t, svc.Delete(context.Background(), 1, core.Kind(""), 1), core.ErrValidation)
}
