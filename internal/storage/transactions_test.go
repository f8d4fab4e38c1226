package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/core"
	"finanze/internal/query"
)

type fixtureRow struct {
	kind     core.Kind
	category string
	cents    int64
	date     string
	desc     string
}

var fixture = []fixtureRow{
	{core.KindIncome, "Salary", 300000, "2024-03-01", "March salary"},
	{core.KindIncome, "Salary", 300000, "2024-04-01", "April salary"},
	{core.KindIncome, "Other", 2500, "2024-03-15", "Sold old bike"},
	{core.KindIncome, "Food", 1200, "2024-03-20", "Refund for dinner"},
	{core.KindExpense, "Food", 5000, "2024-03-01", "Groceries"},
	{core.KindExpense, "Food", 3000, "2024-03-15", "Dinner out"},
	{core.KindExpense, "Transport", 2000, "2024-03-10", "Train ticket"},
	{core.KindExpense, "Transport", 2000, "2024-03-10", "Bus pass"},
	{core.KindExpense, "Rent", 90000, "2024-03-05", "March rent"},
	{core.KindExpense, "Rent", 90000, "2024-04-05", "April rent"},
	{core.KindExpense, "Food", 1500, "2024-02-28", "Snacks 100%"},
	{core.KindExpense, "Other", 700, "2024-04-12", ""},
	{core.KindExpense, "Food", 1800, "2024-03-22", "Café Élan"},
}

// seedFixture loads the fixture for a fresh user plus noise for a second user.
func seedFixture(t *testing.T, repo *SQLiteRepository) int64 {
	t.Helper()
	user := createUser(t, repo, "owner")
	stranger := createUser(t, repo, "stranger")

	cats := map[string]int64{}
	for _, r := range fixture {
		key := string(r.kind) + "/" + r.category
		id, ok := cats[key]
		if !ok {
			id = createCategory(t, repo, user, r.kind, r.category)
			cats[key] = id
		}
		addTx(t, repo, user, r.kind, id, r.cents, r.date, r.desc)
	}

	noise := createCategory(t, repo, stranger, core.KindExpense, "Food")
	addTx(t, repo, stranger, core.KindExpense, noise, 5000, "2024-03-01", "Groceries")
	return user
}

func (r fixtureRow) matches(f query.Filter) bool {
	if f.Type != "" && f.Type != query.TypeAll && f.Type != query.TypeFor(r.kind) {
		return false
	}
	if f.DateStart != nil && r.date < f.DateStart.String() {
		return false
	}
	if f.DateEnd != nil && r.date > f.DateEnd.String() {
		return false
	}
	if f.Category != nil && r.category != *f.Category {
		return false
	}
	if f.MinAmount != nil && r.cents < f.MinAmount.Cents {
		return false
	}
	if f.MaxAmount != nil && r.cents > f.MaxAmount.Cents {
		return false
	}
	if f.Search != nil && *f.Search != "" && !strings.Contains(strings.ToLower(r.desc), strings.ToLower(*f.Search)) {
		return false
	}
	return true
}

func ptr[T any](v T) *T { return &v }

func TestQueryTransactions_CountMatchesInMemoryFilter(t *testing.T) {
	repo := newTestRepo(t)
	user := seedFixture(t, repo)
	ctx := context.Background()

	types := []query.Type{query.TypeAll, query.TypeIncome, query.TypeExpense}
	starts := []*core.Date{nil, ptr(core.NewDate(2024, 3, 1))}
	ends := []*core.Date{nil, ptr(core.NewDate(2024, 3, 31))}
	categories := []*string{nil, ptr("Food"), ptr("Nope")}
	mins := []*core.Money{nil, {Cents: 2000}}
	maxes := []*core.Money{nil, {Cents: 5000}}
	searches := []*string{nil, ptr(""), ptr("RENT"), ptr("100%"), ptr("_"), ptr("CAFÉ"), ptr("élan"), ptr("cafÉ")}

	for _, typ := range types {
		for _, ds := range starts {
			for _, de := range ends {
				for _, cat := range categories {
					for _, mn := range mins {
						for _, mx := range maxes {
							for _, s := range searches {
								f := query.Filter{Type: typ, DateStart: ds, DateEnd: de, Category: cat, MinAmount: mn, MaxAmount: mx, Search: s}

								want := 0
								for _, r := range fixture {
									if r.matches(f) {
										want++
									}
								}

								res, err := repo.QueryTransactions(ctx, user, f, query.DefaultSort, query.NewPage(1))
								require.NoError(t, err)
								assert.Equal(t, want, res.TotalRecords, "filter %+v", describe(f))
								assert.Equal(t, query.TotalPages(want, query.PageSize), res.TotalPages)
							}
						}
					}
				}
			}
		}
	}
}

func describe(f query.Filter) string {
	var parts []string
	parts = append(parts, "type="+string(f.Type))
	if f.DateStart != nil {
		parts = append(parts, "start="+f.DateStart.String())
	}
	if f.DateEnd != nil {
		parts = append(parts, "end="+f.DateEnd.String())
	}
	if f.Category != nil {
		parts = append(parts, "category="+*f.Category)
	}
	if f.MinAmount != nil {
		parts = append(parts, fmt.Sprintf("min=%d", f.MinAmount.Cents))
	}
	if f.MaxAmount != nil {
		parts = append(parts, fmt.Sprintf("max=%d", f.MaxAmount.Cents))
	}
	if f.Search != nil {
		parts = append(parts, "search="+*f.Search)
	}
	return strings.Join(parts, " ")
}

func TestQueryTransactions_PagesReproduceSortedSet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createUser(t, repo, "pager")
	inc := createCategory(t, repo, user, core.KindIncome, "Salary")
	exp := createCategory(t, repo, user, core.KindExpense, "Food")

	// many ties on date and amount across both ledgers
	for i := 0; i < 23; i++ {
		day := fmt.Sprintf("2024-05-%02d", i%4+1)
		addTx(t, repo, user, core.KindIncome, inc, int64(100*(i%3+1)), day, "")
		addTx(t, repo, user, core.KindExpense, exp, int64(100*(i%3+1)), day, "")
	}

	for _, s := range []query.Sort{
		query.DefaultSort,
		{By: query.SortAmount, Order: query.Asc},
		{By: query.SortCategory, Order: query.Desc},
	} {
		all, err := repo.AllTransactions(ctx, user, query.Filter{}, s)
		require.NoError(t, err)
		require.Len(t, all, 46)

		first, err := repo.QueryTransactions(ctx, user, query.Filter{}, s, query.NewPage(1))
		require.NoError(t, err)
		require.Equal(t, 3, first.TotalPages)

		var paged []core.LedgerRow
		for p := 1; p <= first.TotalPages; p++ {
			res, err := repo.QueryTransactions(ctx, user, query.Filter{}, s, query.NewPage(p))
			require.NoError(t, err)
			paged = append(paged, res.Rows...)
		}
		assert.Equal(t, all, paged, "sort %+v", s)

		seen := map[string]bool{}
		for _, r := range paged {
			key := fmt.Sprintf("%s-%d", r.Kind, r.ID)
			assert.False(t, seen[key], "duplicate row %s", key)
			seen[key] = true
		}

		beyond, err := repo.QueryTransactions(ctx, user, query.Filter{}, s, query.NewPage(4))
		require.NoError(t, err)
		assert.Empty(t, beyond.Rows)
		assert.Equal(t, 46, beyond.TotalRecords)

		far, err := repo.QueryTransactions(ctx, user, query.Filter{}, s, query.NewPage(1<<62))
		require.NoError(t, err)
		assert.Empty(t, far.Rows)
		assert.Equal(t, 3, far.TotalPages)
	}
}

func TestQueryTransactions_SortOrder(t *testing.T) {
	repo := newTestRepo(t)
	user := seedFixture(t, repo)

	rows, err := repo.AllTransactions(context.Background(), user, query.Filter{}, query.Sort{By: query.SortAmount, Order: query.Asc})
	require.NoError(t, err)
	require.Len(t, rows, len(fixture))
	assert.True(t, sort.SliceIsSorted(rows, func(i, j int) bool { return rows[i].Amount.Cents < rows[j].Amount.Cents }))

	rows, err = repo.AllTransactions(context.Background(), user, query.Filter{}, query.DefaultSort)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-12", rows[0].Date.String())
	assert.Equal(t, "2024-02-28", rows[len(rows)-1].Date.String())
}

func TestQueryTransactions_FoodExample(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createUser(t, repo, "example")
	food := createCategory(t, repo, user, core.KindExpense, "Food")
	transport := createCategory(t, repo, user, core.KindExpense, "Transport")
	addTx(t, repo, user, core.KindExpense, food, 5000, "2024-03-01", "")
	addTx(t, repo, user, core.KindExpense, food, 3000, "2024-03-15", "")
	addTx(t, repo, user, core.KindExpense, transport, 2000, "2024-03-10", "")

	res, err := repo.QueryTransactions(ctx, user, query.Filter{
		Category:  ptr("Food"),
		DateStart: ptr(core.NewDate(2024, 3, 1)),
		DateEnd:   ptr(core.NewDate(2024, 3, 31)),
	}, query.ParseSort("", ""), query.NewPage(1))
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalRecords)
	assert.Equal(t, 1, res.TotalPages)
	require.Len(t, res.Rows, 2)
	var total core.Money
	for _, r := range res.Rows {
		total = total.Add(r.Amount)
		assert.Equal(t, "Food", r.Category)
		assert.Equal(t, core.KindExpense, r.Kind)
	}
	assert.Equal(t, int64(8000), total.Cents)
	assert.Equal(t, "2024-03-15", res.Rows[0].Date.String())
}

func TestRecentTransactions(t *testing.T) {
	repo := newTestRepo(t)
	user := seedFixture(t, repo)

	rows, err := repo.RecentTransactions(context.Background(), user, 5)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "2024-04-12", rows[0].Date.String())
	assert.Equal(t, "", rows[0].Description)
}

func TestQueryTransactions_EmptyForUnknownUser(t *testing.T) {
	repo := newTestRepo(t)
	seedFixture(t, repo)

	res, err := repo.QueryTransactions(context.Background(), 999, query.Filter{}, query.DefaultSort, query.NewPage(1))
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalRecords)
	assert.Equal(t, 0, res.TotalPages)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestQueryTransactions_SearchFoldsUnicodeCase(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createUser(t, repo, "unicode")
	food := createCategory(t, repo, user, core.KindExpense, "Food")
	addTx(t, repo, user, core.KindExpense, food, 450, "2024-03-02", "Café Élan")
	addTx(t, repo, user, core.KindExpense, food, 300, "2024-03-03", "Bakery")

	for _, term := range []string{"café", "CAFÉ", "cafÉ", "élan", "ÉLAN", "é e"} {
		res, err := repo.QueryTransactions(ctx, user, query.Filter{Search: ptr(term)}, query.DefaultSort, query.NewPage(1))
		require.NoError(t, err)
		want := 1
		if term == "é e" {
			want = 0
		}
		assert.Equal(t, want, res.TotalRecords, "search %q", term)
	}
}
