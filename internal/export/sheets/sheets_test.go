package sheets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/core"
	"finanze/internal/report"
)

func detailed() report.Data {
	return report.Data{
		Type:        core.ReportDetailed,
		Start:       core.NewDate(2024, 1, 1),
		End:         core.NewDate(2024, 1, 31),
		GeneratedAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		User:        core.User{Username: "ann", FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"},
		Summary:     core.Summary{Income: core.Money{Cents: 100000}, Expenses: core.Money{Cents: 25050}},
		Transactions: []core.LedgerRow{
			{ID: 2, Kind: core.KindExpense, Amount: core.Money{Cents: 25050}, Date: core.NewDate(2024, 1, 20), Category: "Food", Description: "Groceries"},
			{ID: 1, Kind: core.KindIncome, Amount: core.Money{Cents: 100000}, Date: core.NewDate(2024, 1, 1), Category: "Salary"},
		},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(detailed())
	require.Len(t, rows, 12)
	assert.Equal(t, []any{"Detailed Financial Report"}, rows[0])
	assert.Equal(t, []any{"Client", "Ann Lee", "ann@example.com"}, rows[2])
	assert.Equal(t, []any{"Net savings", 749.5}, rows[6])
	assert.Equal(t, []any{"Date", "Type", "Category", "Description", "Amount"}, rows[9])
	assert.Equal(t, []any{"2024-01-20", "Expense", "Food", "Groceries", 250.5}, rows[10])
	assert.Equal(t, []any{"2024-01-01", "Income", "Salary", "", 1000.0}, rows[11])
}

func TestTabTitle(t *testing.T) {
	assert.Equal(t, "Job 7 detailed 2024-01-01..2024-01-31", TabTitle(7, detailed()))
}

func TestMemory_AppendReport(t *testing.T) {
	m := NewMemory()
	ref, err := m.AppendReport(context.Background(), 3, detailed())
	require.NoError(t, err)
	assert.Equal(t, "mem:Job 3 detailed 2024-01-01..2024-01-31", ref)
	assert.Len(t, m.Tab("Job 3 detailed 2024-01-01..2024-01-31"), 12)
}

func TestNew_RequiresSpreadsheet(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.EqualError(t, err, "missing GOOGLE_SPREADSHEET_ID")
}

func TestCredentials(t *testing.T) {
	b, err := credentials(Config{ServiceAccountJSON: ` {"type":"service_account"} `})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(b))

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err = credentials(Config{SpreadsheetID: "x"})
	assert.Error(t, err)

	_, err = credentials(Config{ServiceAccountFile: "/does/not/exist.json"})
	assert.ErrorContains(t, err, "read service account file")
}
