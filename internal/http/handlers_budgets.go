package http

import (
	"net/http"

	"finanze/internal/core"
	"finanze/internal/log"
)

type budgetRow struct {
	Budget core.Budget
	Status core.BudgetStatus
	// Current marks budgets whose period touches the current month.
	Current bool
}

type budgetsView struct {
	Rows       []budgetRow
	Categories []core.Category
	Edit       *core.Budget
	MonthStart string
	MonthEnd   string
	Error      string
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	ctx := r.Context()
	first, last := core.MonthBounds(s.now())
	view := budgetsView{MonthStart: first.String(), MonthEnd: last.String()}

	budgets, err := s.svc.Budgets.List(ctx, id.UserID)
	if err != nil {
		s.logFailure(r, log.ComponentBudget, log.OpList, err)
		view.Error = userMessage(err)
	}
	for _, b := range budgets {
		view.Rows = append(view.Rows, budgetRow{
			Budget: b,
			Status: core.BudgetStatus{
				BudgetID:    b.ID,
				Category:    b.Category,
				Budget:      b.Amount,
				Spent:       b.Spent,
				PeriodStart: b.PeriodStart,
				PeriodEnd:   b.PeriodEnd,
			},
			Current: b.Overlaps(first, last),
		})
	}
	if view.Categories, err = s.svc.Categories.List(ctx, id.UserID, core.KindExpense); err != nil {
		s.logFailure(r, log.ComponentCategory, log.OpList, err)
	}

	q := r.URL.Query()
	if q.Get("edit") != "" {
		budgetID, err := parseID(q, "edit")
		if err == nil {
			var b core.Budget
			if b, err = s.svc.Budgets.Get(ctx, id.UserID, budgetID); err == nil {
				view.Edit = &b
			}
		}
		if err != nil {
			s.logFailure(r, log.ComponentBudget, log.OpRead, err)
			view.Error = userMessage(err)
		}
	}
	s.render(w, r, http.StatusOK, "budgets.html", "Budgets", "budgets", view)
}

func (s *Server) handleBudgetAction(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	id, _ := identity(r)
	ctx := r.Context()
	action := formValue(r, "action")

	var (
		budgetID int64
		msg      string
		err      error
	)
	switch action {
	case "create":
		in, perr := ParseBudgetInput(r.PostForm)
		if err = perr; err == nil {
			budgetID, err = s.svc.Budgets.Create(ctx, id.UserID, in)
			msg = "Budget added successfully."
		}
	case "update":
		if budgetID, err = parseID(r.PostForm, "id"); err == nil {
			in, perr := ParseBudgetInput(r.PostForm)
			if err = perr; err == nil {
				err = s.svc.Budgets.Update(ctx, id.UserID, budgetID, in)
				msg = "Budget updated successfully."
			}
		}
	case "delete":
		if budgetID, err = parseID(r.PostForm, "id"); err == nil {
			err = s.svc.Budgets.Delete(ctx, id.UserID, budgetID)
			msg = "Budget deleted successfully."
		}
	default:
		err = core.NewValidationError("action", "unknown action")
	}

	if err != nil {
		s.logFailure(r, log.ComponentBudget, action, err)
		s.fail(w, r, "/budgets", err)
		return
	}
	s.countMutation()
	s.events.LogMutation(ctx, log.ComponentBudget, action, id.UserID, "budget", budgetID)
	s.done(w, r, "/budgets", msg, EventDashboardRefresh)
}
