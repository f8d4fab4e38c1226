package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finanze/internal/cache"
	"finanze/internal/core"
	"finanze/internal/log"
)

const (
	recentCount = 5
	trendMonths = 6
)

// Dashboard is the aggregate shown on the landing page.
type Dashboard struct {
	Month             core.Date
	Start             core.Date
	End               core.Date
	Summary           core.Summary
	IncomeByCategory  []core.CategoryAmount
	ExpenseByCategory []core.CategoryAmount
	Budgets           []core.BudgetStatus
	Recent            []core.LedgerRow
	Trend             []core.MonthPoint
}

// DashboardService aggregates the current month for a user. Results are
// cached per user and month until the user writes to a ledger or budget.
type DashboardService struct {
	store SummaryStore
	cache cache.Cache[*Dashboard]
	now   func() time.Time
}

func NewDashboardService(store SummaryStore, c cache.Cache[*Dashboard]) *DashboardService {
	return &DashboardService{store: store, cache: c, now: time.Now}
}

func dashboardKey(userID int64, month core.Date) string {
	return fmt.Sprintf("%s%s", userPrefix(userID), month.Format("2006-01"))
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("user:%d:", userID)
}

// Invalidate drops every cached month of the user.
func (s *DashboardService) Invalidate(userID int64) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(userPrefix(userID))
}

// Current returns the dashboard for the calendar month containing now.
func (s *DashboardService) Current(ctx context.Context, userID int64) (*Dashboard, error) {
	start, end := core.MonthBounds(s.now())
	key := dashboardKey(userID, start)
	if s.cache != nil {
		if d, ok := s.cache.Get(key); ok {
			return d, nil
		}
	}

	d, err := s.load(ctx, userID, start, end)
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentDashboard).ErrorContext(ctx, "Failed to load dashboard",
			log.FieldUserID, userID, log.FieldError, err)
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, d)
	}
	return d, nil
}

func (s *DashboardService) load(ctx context.Context, userID int64, start, end core.Date) (*Dashboard, error) {
	d := &Dashboard{Month: start, Start: start, End: end}
	windows := core.TrendMonths(start.AddMonths(-(trendMonths - 1)), end, trendMonths)
	d.Trend = make([]core.MonthPoint, len(windows))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Summary, err = s.store.Totals(ctx, userID, start, end)
		return err
	})
	g.Go(func() (err error) {
		d.IncomeByCategory, err = s.store.CategoryTotals(ctx, userID, core.KindIncome, start, end)
		return err
	})
	g.Go(func() (err error) {
		d.ExpenseByCategory, err = s.store.CategoryTotals(ctx, userID, core.KindExpense, start, end)
		return err
	})
	g.Go(func() (err error) {
		d.Budgets, err = s.store.BudgetStatus(ctx, userID, start, end)
		return err
	})
	g.Go(func() (err error) {
		d.Recent, err = s.store.RecentTransactions(ctx, userID, recentCount)
		return err
	})
	g.Go(func() error {
		points, err := monthlyTotals(ctx, s.store, userID, windows)
		if err != nil {
			return err
		}
		copy(d.Trend, points)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// monthlyTotals sums income and expenses for each window in order.
func monthlyTotals(ctx context.Context, store SummaryStore, userID int64, windows []core.MonthWindow) ([]core.MonthPoint, error) {
	out := make([]core.MonthPoint, 0, len(windows))
	for _, w := range windows {
		sum, err := store.Totals(ctx, userID, w.Start, w.End)
		if err != nil {
			return nil, err
		}
		out = append(out, core.MonthPoint{Month: w.Month, Income: sum.Income, Expenses: sum.Expenses})
	}
	return out, nil
}
