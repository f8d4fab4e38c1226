package http

import (
	"net/http"
	"strings"

	"finanze/internal/log"
	"finanze/internal/services"
)

// trendPoint is the JSON shape drawn by app.js.
type trendPoint struct {
	Month    string  `json:"month"`
	Label    string  `json:"label"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Savings  float64 `json:"savings"`
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) (*services.Dashboard, bool) {
	id, _ := identity(r)
	d, err := s.svc.Dashboard.Current(r.Context(), id.UserID)
	if err != nil {
		s.logFailure(r, log.ComponentDashboard, log.OpRead, err)
		ErrorResponse(statusFor(err), userMessage(err)).Write(w)
		return nil, false
	}
	return d, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", "Dashboard", "dashboard", d)
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		s.renderPartial(w, r, "dashboard_summary", d)
	}
}

func (s *Server) handleDashboardRecent(w http.ResponseWriter, r *http.Request) {
	if d, ok := s.dashboard(w, r); ok {
		s.renderPartial(w, r, "dashboard_recent", d)
	}
}

// handleDashboardTrend renders the trend table, or the series as JSON when asked for it.
func (s *Server) handleDashboardTrend(w http.ResponseWriter, r *http.Request) {
	d, ok := s.dashboard(w, r)
	if !ok {
		return
	}
	if !strings.Contains(r.Header.Get("Accept"), "application/json") {
		s.renderPartial(w, r, "dashboard_trend", d)
		return
	}
	points := make([]trendPoint, 0, len(d.Trend))
	for _, p := range d.Trend {
		points = append(points, trendPoint{
			Month:    p.Month.Format("2006-01"),
			Label:    p.Label(),
			Income:   p.Income.Decimal().InexactFloat64(),
			Expenses: p.Expenses.Decimal().InexactFloat64(),
			Savings:  p.Savings().Decimal().InexactFloat64(),
		})
	}
	NewHTMXResponse().JSON(points).Write(w)
}
