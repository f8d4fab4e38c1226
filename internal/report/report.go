// Package report renders financial reports for a date window.
package report

import (
	"fmt"
	"io"
	"time"

	"finanze/internal/core"
)

// TrendLimit caps the number of months in a trend report.
const TrendLimit = 12

// Data is everything a renderer needs. Sections a report type does not
// use are left empty.
type Data struct {
	Type        core.ReportType
	Start       core.Date
	End         core.Date
	GeneratedAt time.Time
	AppName     string
	Currency    string
	User        core.User

	Summary           core.Summary
	IncomeByCategory  []core.CategoryAmount
	ExpenseByCategory []core.CategoryAmount
	Budgets           []core.BudgetStatus
	Transactions      []core.LedgerRow
	Trend             []core.MonthPoint
}

// Title is the heading used by every format.
func (d Data) Title() string {
	switch d.Type {
	case core.ReportDetailed:
		return "Detailed Financial Report"
	case core.ReportTrend:
		return "Financial Trend Report"
	}
	return "Financial Summary Report"
}

// Period renders the window as "2024-01-01 to 2024-01-31".
func (d Data) Period() string {
	return d.Start.String() + " to " + d.End.String()
}

// WithBreakdown reports whether the category and budget sections are included.
func (d Data) WithBreakdown() bool {
	return d.Type == core.ReportSummary || d.Type == core.ReportDetailed
}

// Renderer encodes Data into one output format.
type Renderer interface {
	Render(w io.Writer, d Data) error
	Extension() string
	ContentType() string
}

// ForFormat returns the file renderer for f.
func ForFormat(f core.Format) (Renderer, error) {
	switch f {
	case core.FormatPDF:
		return PDF{}, nil
	case core.FormatXLSX:
		return XLSX{}, nil
	}
	return nil, core.NewValidationError("format", fmt.Sprintf("format %q cannot be downloaded", f))
}

// FileName is the download name of a report.
func FileName(t core.ReportType, start, end core.Date, ext string) string {
	return fmt.Sprintf("financial_report_%s_%s_%s.%s", t, start, end, ext)
}

func money(currency string, m core.Money) string {
	if currency == "" {
		return m.String()
	}
	return currency + " " + m.String()
}
