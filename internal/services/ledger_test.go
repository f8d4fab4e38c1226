package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"finanze/internal/core"
	"finanze/internal/query"
)

func TestLedgerService_CRUD(t *testing.T) {
	repo := newRepo(t)
	inv := &countingInvalidator{}
	svc := NewLedgerService(repo, repo, inv)
	ctx := context.Background()
	user := newUser(t, repo, "ledger")
	salary := newCategory(t, repo, user, core.KindIncome, "Salary")

	_, err := svc.Create(ctx, user, core.KindIncome, TransactionInput{CategoryID: salary, Date: date(t, "2024-03-01")})
	assert.ErrorIs(t, err, core.ErrValidation)

	id, err := svc.Create(ctx, user, core.KindIncome, TransactionInput{
		CategoryID: salary, Amount: core.Money{Cents: 250000}, Description: " March ", Date: date(t, "2024-03-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.count(user))

	got, err := svc.Get(ctx, user, core.KindIncome, id)
	require.NoError(t, err)
	assert.Equal(t, "March", got.Description)
	assert.Equal(t, int64(250000), got.Amount.Cents)

	require.NoError(t, svc.Update(ctx, user, core.KindIncome, id, TransactionInput{
		CategoryID: salary, Amount: core.Money{Cents: 260000}, Date: date(t, "2024-03-02"),
	}))
	got, err = svc.Get(ctx, user, core.KindIncome, id)
	require.NoError(t, err)
	assert.Equal(t, "", got.Description)
	assert.Equal(t, "2024-03-02", got.Date.String())

	other := newUser(t, repo, "other")
	assert.ErrorIs(t, svc.Delete(ctx, other, core.KindIncome, id), core.ErrNotFound)
	assert.Equal(t, 0, inv.count(other))

	require.NoError(t, svc.Delete(ctx, user, core.KindIncome, id))
	assert.Equal(t, 3, inv.count(user))
	_, err = svc.Get(ctx, user, core.KindIncome, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedgerService_CategoryMustBeVisible(t *testing.T) {
	repo := newRepo(t)
	svc := NewLedgerService(repo, repo, nil)
	ctx := context.Background()
	owner := newUser(t, repo, "owner")
	other := newUser(t, repo, "other")
	private := newCategory(t, repo, owner, core.KindExpense, "Private")

	_, err := svc.Create(ctx, other, core.KindExpense, TransactionInput{
		CategoryID: private, Amount: core.Money{Cents: 100}, Date: date(t, "2024-03-01"),
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedgerService_ListFixesType(t *testing.T) {
	repo := newRepo(t)
	svc := NewLedgerService(repo, repo, nil)
	ctx := context.Background()
	user := newUser(t, repo, "lister")
	inc := newCategory(t, repo, user, core.KindIncome, "Salary")
	exp := newCategory(t, repo, user, core.KindExpense, "Food")

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, user, core.KindIncome, TransactionInput{CategoryID: inc, Amount: core.Money{Cents: 1000}, Date: date(t, "2024-03-01")})
		require.NoError(t, err)
		_, err = svc.Create(ctx, user, core.KindExpense, TransactionInput{CategoryID: exp, Amount: core.Money{Cents: 500}, Date: date(t, "2024-03-02")})
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, user, core.KindExpense, query.Filter{Type: query.TypeIncome}, query.DefaultSort, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRecords)
	for _, r := range res.Rows {
		assert.Equal(t, core.KindExpense, r.Kind)
	}

	all, err := svc.Query(ctx, user, query.Filter{}, query.DefaultSort, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, all.TotalRecords)
	assert.Equal(t, 1, all.Page)
}

func importFile(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func TestLedgerService_Import(t *testing.T) {
	repo := newRepo(t)
	inv := &countingInvalidator{}
	svc := NewLedgerService(repo, repo, inv)
	ctx := context.Background()
	user := newUser(t, repo, "importer")
	newCategory(t, repo, user, core.KindExpense, "Food")
	newCategory(t, repo, user, core.KindExpense, "Transport")

	file := importFile(t, [][]any{
		{"Date", "Category", "Amount", "Description"},
		{"2024-03-01", "Food", "12.50", "Lunch"},
		{45352, "transport", 3.2, "Bus"},
		{"yesterday", "Food", "5", ""},
		{"2024-03-02", "Fuel", "40", ""},
		{"2024-03-03", "Food", "-1", ""},
		{},
		{"04/03/2024", "Food", "7,25", strings.Repeat("x", 10)},
	})

	res, err := svc.Import(ctx, user, core.KindExpense, file)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 4, res.Errors[0].Row)
	assert.Equal(t, 5, res.Errors[1].Row)
	assert.Contains(t, res.Errors[1].Error(), "unknown category")
	assert.Equal(t, 6, res.Errors[2].Row)
	assert.Equal(t, 1, inv.count(user))

	rows, err := repo.AllTransactions(ctx, user, query.Filter{}, query.Sort{By: query.SortDate, Order: query.Asc})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-03-01", rows[0].Date.String())
	assert.Equal(t, int64(1250), rows[0].Amount.Cents)
	assert.Equal(t, "Transport", rows[1].Category)
	assert.Equal(t, "2024-03-01", rows[1].Date.String())
	assert.Equal(t, int64(320), rows[1].Amount.Cents)
	assert.Equal(t, "2024-03-04", rows[2].Date.String())
	assert.Equal(t, int64(725), rows[2].Amount.Cents)
}

func TestLedgerService_ImportRejectsGarbage(t *testing.T) {
	repo := newRepo(t)
	svc := NewLedgerService(repo, repo, nil)
	user := newUser(t, repo, "garbage")

	_, err := svc.Import(context.Background(), user, core.KindIncome, strings.NewReader("not a spreadsheet"))
	assert.ErrorIs(t, err, core.ErrValidation)

	res, err := svc.Import(context.Background(), user, core.KindIncome, importFile(t, [][]any{{"date", "category", "amount"}}))
	require.NoError(t, err)
	assert.Zero(t, res.Imported)
	assert.Empty(t, res.Errors)
}

func TestParseCellDate(t *testing.T) {
	for in, want := range map[string]string{
		"2024-02-29": "2024-02-29",
		"29/02/2024": "2024-02-29",
		"2024/02/29": "2024-02-29",
		"29.02.2024": "2024-02-29",
		"45351":      "2024-02-29",
	} {
		d, err := parseCellDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}
	_, err := parseCellDate("2024-13-01")
	assert.Error(t, err)
}
