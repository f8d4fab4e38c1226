package core

import "time"

// CategoryAmount is one row of a per-category breakdown.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Summary holds the headline figures for a date window.
type Summary struct {
	Income   Money
	Expenses Money
}

func (s Summary) Savings() Money {
	return s.Income.Sub(s.Expenses)
}

// SavingsPercent is savings as a share of income, 0 when there is no income.
func (s Summary) SavingsPercent() float64 {
	return Percent(s.Savings(), s.Income)
}

// MonthPoint is one month of a trend series.
type MonthPoint struct {
	Month    Date // first day of the month
	Income   Money
	Expenses Money
}

func (p MonthPoint) Savings() Money {
	return p.Income.Sub(p.Expenses)
}

func (p MonthPoint) Label() string {
	return p.Month.Format("Jan 2006")
}

// BudgetLevel buckets budget usage for colouring.
type BudgetLevel string

const (
	BudgetOK      BudgetLevel = "ok"
	BudgetWarning BudgetLevel = "warning"
	BudgetDanger  BudgetLevel = "danger"
)

// BudgetStatus is spent-vs-budget for one budget.
type BudgetStatus struct {
	BudgetID    int64
	Category    string
	Budget      Money
	Spent       Money
	PeriodStart Date
	PeriodEnd   Date
}

func (s BudgetStatus) Remaining() Money {
	return s.Budget.Sub(s.Spent)
}

// Percentage is spent/budget*100 capped at 100.
func (s BudgetStatus) Percentage() float64 {
	p := Percent(s.Spent, s.Budget)
	if p > 100 {
		return 100
	}
	return p
}

func (s BudgetStatus) Level() BudgetLevel {
	return LevelFor(s.Percentage())
}

// LevelFor maps a usage percentage to a level: >90 danger, >70 warning.
func LevelFor(pct float64) BudgetLevel {
	switch {
	case pct > 90:
		return BudgetDanger
	case pct > 70:
		return BudgetWarning
	default:
		return BudgetOK
	}
}

// LedgerRow is one projected row of the union transaction view.
type LedgerRow struct {
	ID          int64
	Kind        Kind
	Amount      Money
	Description string
	Date        Date
	Category    string
}

// MonthBounds returns the first and last day of the month containing t.
func MonthBounds(t time.Time) (Date, Date) {
	first := NewDate(t.Year(), int(t.Month()), 1)
	last := Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}

// MonthWindow is one calendar month of a trend, clamped to the report end.
type MonthWindow struct {
	Month Date
	Start Date
	End   Date
}

// TrendMonths splits [start, end] into calendar months beginning with the
// month of start, at most limit of them. Each window runs from the first of
// the month to its last day or end, whichever is earlier.
func TrendMonths(start, end Date, limit int) []MonthWindow {
	if end.Before(start) || limit <= 0 {
		return nil
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
	if months > limit {
		months = limit
	}
	first, _ := MonthBounds(start.Time)
	out := make([]MonthWindow, 0, months)
	for i := 0; i < months; i++ {
		mStart, mEnd := MonthBounds(first.AddMonths(i).Time)
		if mEnd.After(end) {
			mEnd = end
		}
		out = append(out, MonthWindow{Month: mStart, Start: mStart, End: mEnd})
	}
	return out
}
