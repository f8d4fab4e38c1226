package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"finanze/internal/core"
)

type rgb struct{ r, g, b int }

var (
	colorHeader  = rgb{41, 128, 185}
	colorText    = rgb{44, 62, 80}
	colorIncome  = rgb{39, 174, 96}
	colorExpense = rgb{231, 76, 60}
	colorWarning = rgb{243, 156, 18}
	colorStripe  = rgb{240, 240, 240}
)

// PDF renders A4 portrait reports with a page footer.
type PDF struct{}

func (PDF) Extension() string   { return "pdf" }
func (PDF) ContentType() string { return "application/pdf" }

type pdfDoc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	d   Data
}

func (PDF) Render(w io.Writer, d Data) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	doc := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), d: d}

	pdf.SetTitle(d.Title(), true)
	pdf.SetAuthor(d.AppName, true)
	pdf.SetSubject("Financial Report: "+d.Period(), true)
	pdf.SetCreationDate(d.GeneratedAt)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	doc.header()
	doc.summary()
	if d.WithBreakdown() {
		doc.categoryTable("Income by Category", d.IncomeByCategory, colorIncome)
		doc.categoryTable("Expenses by Category", d.ExpenseByCategory, colorExpense)
		doc.budgets()
	}
	if d.Type == core.ReportDetailed {
		doc.transactions()
	}
	if d.Type == core.ReportTrend {
		doc.trend()
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (doc *pdfDoc) color(c rgb)     { doc.pdf.SetTextColor(c.r, c.g, c.b) }
func (doc *pdfDoc) fillColor(c rgb) { doc.pdf.SetFillColor(c.r, c.g, c.b) }

func (doc *pdfDoc) cell(w, h float64, s, border string, ln int, align string, fill bool) {
	doc.pdf.CellFormat(w, h, doc.tr(s), border, ln, align, fill, 0, "")
}

func (doc *pdfDoc) section(title string) {
	p := doc.pdf
	p.Ln(6)
	p.SetFont("Helvetica", "B", 14)
	doc.fillColor(colorHeader)
	p.SetTextColor(255, 255, 255)
	doc.cell(0, 10, title, "", 1, "L", true)
	doc.color(colorText)
	p.Ln(3)
}

func (doc *pdfDoc) header() {
	p, d := doc.pdf, doc.d
	p.SetFont("Helvetica", "B", 20)
	doc.color(colorHeader)
	doc.cell(0, 12, d.Title(), "", 1, "C", false)

	p.SetFont("Helvetica", "", 11)
	doc.color(colorText)
	doc.cell(0, 7, "Period: "+d.Period(), "", 1, "C", false)
	doc.cell(0, 7, "Generated: "+d.GeneratedAt.Format("2006-01-02 15:04"), "", 1, "C", false)

	doc.section("Client Information")
	p.SetFont("Helvetica", "", 11)
	doc.cell(40, 7, "Name:", "", 0, "L", false)
	doc.cell(0, 7, d.User.FullName(), "", 1, "L", false)
	doc.cell(40, 7, "Email:", "", 0, "L", false)
	doc.cell(0, 7, d.User.Email, "", 1, "L", false)
}

func (doc *pdfDoc) summary() {
	p, d := doc.pdf, doc.d
	doc.section("Financial Summary")

	row := func(label, value string, c rgb) {
		p.SetFont("Helvetica", "B", 11)
		doc.color(colorText)
		doc.cell(80, 8, label, "1", 0, "L", false)
		p.SetFont("Helvetica", "", 11)
		doc.color(c)
		doc.cell(0, 8, value, "1", 1, "R", false)
	}
	s := d.Summary
	savingsColor := colorIncome
	if s.Savings().Cents < 0 {
		savingsColor = colorExpense
	}
	row("Total Income", money(d.Currency, s.Income), colorIncome)
	row("Total Expenses", money(d.Currency, s.Expenses), colorExpense)
	row("Net Savings", money(d.Currency, s.Savings()), savingsColor)
	row("Savings Rate", fmt.Sprintf("%.1f%%", s.SavingsPercent()), savingsColor)
	doc.color(colorText)
}

func (doc *pdfDoc) categoryTable(title string, rows []core.CategoryAmount, c rgb) {
	p, d := doc.pdf, doc.d
	doc.section(title)
	if len(rows) == 0 {
		p.SetFont("Helvetica", "I", 10)
		doc.cell(0, 8, "No records for this period.", "", 1, "L", false)
		return
	}

	var total core.Money
	for _, r := range rows {
		total = total.Add(r.Amount)
	}

	p.SetFont("Helvetica", "B", 11)
	doc.fillColor(colorStripe)
	doc.cell(90, 8, "Category", "1", 0, "L", true)
	doc.cell(55, 8, "Amount", "1", 0, "R", true)
	doc.cell(0, 8, "Share", "1", 1, "R", true)

	p.SetFont("Helvetica", "", 10)
	for i, r := range rows {
		fill := i%2 == 1
		doc.color(colorText)
		doc.cell(90, 7, r.Name, "1", 0, "L", fill)
		doc.color(c)
		doc.cell(55, 7, money(d.Currency, r.Amount), "1", 0, "R", fill)
		doc.color(colorText)
		doc.cell(0, 7, fmt.Sprintf("%.1f%%", core.Percent(r.Amount, total)), "1", 1, "R", fill)
	}
}

func (doc *pdfDoc) budgets() {
	p, d := doc.pdf, doc.d
	doc.section("Budget Status")
	if len(d.Budgets) == 0 {
		p.SetFont("Helvetica", "I", 10)
		doc.cell(0, 8, "No budgets for this period.", "", 1, "L", false)
		return
	}

	p.SetFont("Helvetica", "B", 10)
	doc.fillColor(colorStripe)
	doc.cell(45, 8, "Category", "1", 0, "L", true)
	doc.cell(35, 8, "Budget", "1", 0, "R", true)
	doc.cell(35, 8, "Spent", "1", 0, "R", true)
	doc.cell(35, 8, "Remaining", "1", 0, "R", true)
	doc.cell(0, 8, "Used", "1", 1, "R", true)

	p.SetFont("Helvetica", "", 10)
	for _, b := range d.Budgets {
		doc.color(colorText)
		doc.cell(45, 7, b.Category, "1", 0, "L", false)
		doc.cell(35, 7, money(d.Currency, b.Budget), "1", 0, "R", false)
		doc.cell(35, 7, money(d.Currency, b.Spent), "1", 0, "R", false)
		doc.cell(35, 7, money(d.Currency, b.Remaining()), "1", 0, "R", false)
		doc.color(levelColor(b.Level()))
		doc.cell(0, 7, fmt.Sprintf("%.1f%%", b.Percentage()), "1", 1, "R", false)
	}
	doc.color(colorText)
}

func levelColor(l core.BudgetLevel) rgb {
	switch l {
	case core.BudgetDanger:
		return colorExpense
	case core.BudgetWarning:
		return colorWarning
	}
	return colorIncome
}

func (doc *pdfDoc) transactions() {
	p, d := doc.pdf, doc.d
	p.AddPage()
	doc.section("Transactions")
	if len(d.Transactions) == 0 {
		p.SetFont("Helvetica", "I", 10)
		doc.cell(0, 8, "No transactions for this period.", "", 1, "L", false)
		return
	}

	head := func() {
		p.SetFont("Helvetica", "B", 10)
		doc.fillColor(colorStripe)
		doc.color(colorText)
		doc.cell(25, 8, "Date", "1", 0, "L", true)
		doc.cell(20, 8, "Type", "1", 0, "L", true)
		doc.cell(40, 8, "Category", "1", 0, "L", true)
		doc.cell(65, 8, "Description", "1", 0, "L", true)
		doc.cell(0, 8, "Amount", "1", 1, "R", true)
		p.SetFont("Helvetica", "", 9)
	}
	head()
	_, pageH := p.GetPageSize()
	_, _, _, bottom := p.GetMargins()
	for _, t := range d.Transactions {
		if p.GetY()+7 > pageH-bottom {
			p.AddPage()
			head()
		}
		doc.color(colorText)
		doc.cell(25, 7, t.Date.String(), "1", 0, "L", false)
		doc.cell(20, 7, kindLabel(t.Kind), "1", 0, "L", false)
		doc.cell(40, 7, truncate(t.Category, 22), "1", 0, "L", false)
		doc.cell(65, 7, truncate(t.Description, 38), "1", 0, "L", false)
		c, sign := colorIncome, ""
		if t.Kind == core.KindExpense {
			c, sign = colorExpense, "-"
		}
		doc.color(c)
		doc.cell(0, 7, sign+money(d.Currency, t.Amount), "1", 1, "R", false)
	}
	doc.color(colorText)
}

func (doc *pdfDoc) trend() {
	p, d := doc.pdf, doc.d
	doc.section("Monthly Financial Trends")
	if len(d.Trend) == 0 {
		p.SetFont("Helvetica", "I", 10)
		doc.cell(0, 8, "No data for this period.", "", 1, "L", false)
		return
	}

	p.SetFont("Helvetica", "B", 11)
	doc.fillColor(colorStripe)
	doc.cell(40, 10, "Month", "1", 0, "L", true)
	doc.cell(47, 10, "Income", "1", 0, "R", true)
	doc.cell(47, 10, "Expenses", "1", 0, "R", true)
	doc.cell(0, 10, "Savings", "1", 1, "R", true)

	p.SetFont("Helvetica", "", 10)
	for i, m := range d.Trend {
		fill := i%2 == 1
		doc.color(colorText)
		doc.cell(40, 8, m.Label(), "1", 0, "L", fill)
		doc.color(colorIncome)
		doc.cell(47, 8, money(d.Currency, m.Income), "1", 0, "R", fill)
		doc.color(colorExpense)
		doc.cell(47, 8, money(d.Currency, m.Expenses), "1", 0, "R", fill)
		if m.Savings().Cents >= 0 {
			doc.color(colorIncome)
		} else {
			doc.color(colorExpense)
		}
		doc.cell(0, 8, money(d.Currency, m.Savings()), "1", 1, "R", fill)
	}
	doc.color(colorText)
}

func kindLabel(k core.Kind) string {
	if k == core.KindIncome {
		return "Income"
	}
	return "Expense"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
