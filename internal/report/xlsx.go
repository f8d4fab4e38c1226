package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"finanze/internal/core"
)

// numFmtAmount is the built-in "#,##0.00" format.
const numFmtAmount = 4

// XLSX renders one worksheet per report section.
type XLSX struct{}

func (XLSX) Extension() string { return "xlsx" }
func (XLSX) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

type sheetWriter struct {
	f      *excelize.File
	bold   int
	amount int
	pct    int
}

func (XLSX) Render(w io.Writer, d Data) error {
	f := excelize.NewFile()
	defer f.Close()

	sw := &sheetWriter{f: f}
	var err error
	if sw.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if sw.amount, err = f.NewStyle(&excelize.Style{NumFmt: numFmtAmount}); err != nil {
		return fmt.Errorf("create amount style: %w", err)
	}
	if sw.pct, err = f.NewStyle(&excelize.Style{NumFmt: 10}); err != nil {
		return fmt.Errorf("create percent style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := sw.summary(d); err != nil {
		return err
	}
	if d.WithBreakdown() {
		if err := sw.categories("Income", d.IncomeByCategory); err != nil {
			return err
		}
		if err := sw.categories("Expenses", d.ExpenseByCategory); err != nil {
			return err
		}
		if err := sw.budgets(d.Budgets); err != nil {
			return err
		}
	}
	if d.Type == core.ReportDetailed {
		if err := sw.transactions(d.Transactions); err != nil {
			return err
		}
	}
	if d.Type == core.ReportTrend {
		if err := sw.trend(d.Trend); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func (sw *sheetWriter) newSheet(name string, header []any, widths ...float64) error {
	if _, err := sw.f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	if err := sw.row(name, 1, header); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	if err := sw.f.SetCellStyle(name, "A1", last+"1", sw.bold); err != nil {
		return fmt.Errorf("style header %s: %w", name, err)
	}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := sw.f.SetColWidth(name, col, col, width); err != nil {
			return fmt.Errorf("set width %s: %w", name, err)
		}
	}
	return nil
}

func (sw *sheetWriter) row(sheet string, n int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := sw.f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
	return nil
}

func (sw *sheetWriter) styleColumn(sheet, col string, from, to, style int) error {
	if to < from {
		return nil
	}
	return sw.f.SetCellStyle(sheet, fmt.Sprintf("%s%d", col, from), fmt.Sprintf("%s%d", col, to), style)
}

func amount(m core.Money) float64 {
	return m.Decimal().InexactFloat64()
}

func (sw *sheetWriter) summary(d Data) error {
	const sheet = "Summary"
	rows := [][]any{
		{d.Title()},
		{"Period", d.Period()},
		{"Generated", d.GeneratedAt.Format("2006-01-02 15:04")},
		{"Name", d.User.FullName()},
		{"Email", d.User.Email},
		{},
		{"Total Income", amount(d.Summary.Income)},
		{"Total Expenses", amount(d.Summary.Expenses)},
		{"Net Savings", amount(d.Summary.Savings())},
		{"Savings Rate", d.Summary.SavingsPercent() / 100},
	}
	for i, r := range rows {
		if err := sw.row(sheet, i+1, r); err != nil {
			return err
		}
	}
	if err := sw.f.SetCellStyle(sheet, "A1", "A1", sw.bold); err != nil {
		return err
	}
	if err := sw.styleColumn(sheet, "B", 7, 9, sw.amount); err != nil {
		return err
	}
	if err := sw.styleColumn(sheet, "B", 10, 10, sw.pct); err != nil {
		return err
	}
	return sw.f.SetColWidth(sheet, "A", "B", 24)
}

func (sw *sheetWriter) categories(sheet string, rows []core.CategoryAmount) error {
	if err := sw.newSheet(sheet, []any{"Category", "Amount"}, 30, 16); err != nil {
		return err
	}
	for i, r := range rows {
		if err := sw.row(sheet, i+2, []any{r.Name, amount(r.Amount)}); err != nil {
			return err
		}
	}
	return sw.styleColumn(sheet, "B", 2, len(rows)+1, sw.amount)
}

func (sw *sheetWriter) budgets(rows []core.BudgetStatus) error {
	const sheet = "Budgets"
	if err := sw.newSheet(sheet, []any{"Category", "Period Start", "Period End", "Budget", "Spent", "Remaining", "Used", "Status"},
		24, 14, 14, 14, 14, 14, 10, 10); err != nil {
		return err
	}
	for i, b := range rows {
		values := []any{
			b.Category, b.PeriodStart.String(), b.PeriodEnd.String(),
			amount(b.Budget), amount(b.Spent), amount(b.Remaining()),
			b.Percentage() / 100, string(b.Level()),
		}
		if err := sw.row(sheet, i+2, values); err != nil {
			return err
		}
	}
	n := len(rows) + 1
	for _, col := range []string{"D", "E", "F"} {
		if err := sw.styleColumn(sheet, col, 2, n, sw.amount); err != nil {
			return err
		}
	}
	return sw.styleColumn(sheet, "G", 2, n, sw.pct)
}

func (sw *sheetWriter) transactions(rows []core.LedgerRow) error {
	const sheet = "Transactions"
	if err := sw.newSheet(sheet, []any{"Date", "Type", "Category", "Description", "Amount"}, 12, 10, 20, 40, 14); err != nil {
		return err
	}
	for i, t := range rows {
		if err := sw.row(sheet, i+2, []any{t.Date.String(), kindLabel(t.Kind), t.Category, t.Description, amount(t.Amount)}); err != nil {
			return err
		}
	}
	return sw.styleColumn(sheet, "E", 2, len(rows)+1, sw.amount)
}

func (sw *sheetWriter) trend(rows []core.MonthPoint) error {
	const sheet = "Trend"
	if err := sw.newSheet(sheet, []any{"Month", "Income", "Expenses", "Savings"}, 12, 14, 14, 14); err != nil {
		return err
	}
	for i, m := range rows {
		if err := sw.row(sheet, i+2, []any{m.Label(), amount(m.Income), amount(m.Expenses), amount(m.Savings())}); err != nil {
			return err
		}
	}
	for _, col := range []string{"B", "C", "D"} {
		if err := sw.styleColumn(sheet, col, 2, len(rows)+1, sw.amount); err != nil {
			return err
		}
	}
	return nil
}
