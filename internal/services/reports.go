package services

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/query"
	"finanze/internal/report"
)

// ReportRequest names a report and its window.
type ReportRequest struct {
	Type  core.ReportType
	Start core.Date
	End   core.Date
}

// Validate checks the window and the report type.
func (r ReportRequest) Validate() error {
	if err := core.ValidateRange(r.Start, r.End); err != nil {
		return err
	}
	_, err := core.ParseReportType(string(r.Type))
	return err
}

// ReportSettings carries the branding printed on every report.
type ReportSettings struct {
	AppName  string
	Currency string
}

// ReportService assembles report data and renders it.
type ReportService struct {
	store    SummaryStore
	users    UserReader
	settings ReportSettings
	now      func() time.Time
}

func NewReportService(store SummaryStore, users UserReader, settings ReportSettings) *ReportService {
	return &ReportService{store: store, users: users, settings: settings, now: time.Now}
}

// Build loads every section the report type needs.
func (s *ReportService) Build(ctx context.Context, userID int64, req ReportRequest) (report.Data, error) {
	if err := req.Validate(); err != nil {
		return report.Data{}, err
	}
	d := report.Data{
		Type:        req.Type,
		Start:       req.Start,
		End:         req.End,
		GeneratedAt: s.now(),
		AppName:     s.settings.AppName,
		Currency:    s.settings.Currency,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.User, err = s.users.GetUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		d.Summary, err = s.store.Totals(gctx, userID, req.Start, req.End)
		return err
	})
	if d.WithBreakdown() {
		g.Go(func() (err error) {
			d.IncomeByCategory, err = s.store.CategoryTotals(gctx, userID, core.KindIncome, req.Start, req.End)
			return err
		})
		g.Go(func() (err error) {
			d.ExpenseByCategory, err = s.store.CategoryTotals(gctx, userID, core.KindExpense, req.Start, req.End)
			return err
		})
		g.Go(func() (err error) {
			d.Budgets, err = s.store.BudgetStatus(gctx, userID, req.Start, req.End)
			return err
		})
	}
	if req.Type == core.ReportDetailed {
		g.Go(func() (err error) {
			start, end := req.Start, req.End
			d.Transactions, err = s.store.AllTransactions(gctx, userID,
				query.Filter{DateStart: &start, DateEnd: &end}, query.DefaultSort)
			return err
		})
	}
	if req.Type == core.ReportTrend {
		g.Go(func() (err error) {
			d.Trend, err = monthlyTotals(gctx, s.store, userID, core.TrendMonths(req.Start, req.End, report.TrendLimit))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return report.Data{}, err
	}
	return d, nil
}

// Render writes the report in a downloadable format and returns the
// renderer used, so callers can set the content type and file name.
func (s *ReportService) Render(ctx context.Context, userID int64, req ReportRequest, format core.Format, w io.Writer) (report.Renderer, error) {
	r, err := report.ForFormat(format)
	if err != nil {
		return nil, err
	}
	d, err := s.Build(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	if err := r.Render(w, d); err != nil {
		return nil, err
	}
	log.FromContext(ctx).WithComponent(log.ComponentReport).InfoContext(ctx, "Report rendered",
		log.FieldUserID, userID, log.FieldReportType, string(req.Type), log.FieldFormat, string(format),
		log.FieldPeriodStart, req.Start.String(), log.FieldPeriodEnd, req.End.String())
	return r, nil
}
