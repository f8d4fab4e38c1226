package http

import (
	"net/http"
	"net/url"

	"finanze/internal/core"
	"finanze/internal/log"
)

type categoriesView struct {
	UserID  int64
	Income  []core.Category
	Expense []core.Category
	Edit    *core.Category
	Error   string
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	ctx := r.Context()
	view := categoriesView{UserID: id.UserID}

	var err error
	if view.Income, err = s.svc.Categories.List(ctx, id.UserID, core.KindIncome); err != nil {
		s.logFailure(r, log.ComponentCategory, log.OpList, err)
		view.Error = userMessage(err)
	}
	if view.Expense, err = s.svc.Categories.List(ctx, id.UserID, core.KindExpense); err != nil {
		s.logFailure(r, log.ComponentCategory, log.OpList, err)
		view.Error = userMessage(err)
	}

	q := r.URL.Query()
	if q.Get("edit") != "" {
		view.Edit = findEditable(q.Get("type"), q.Get("edit"), id.UserID, view.Income, view.Expense)
		if view.Edit == nil {
			view.Error = msgNotFound
		}
	}
	s.render(w, r, http.StatusOK, "categories.html", "Categories", "categories", view)
}

// findEditable returns the user-owned category named by the edit link, or nil.
func findEditable(kind, rawID string, userID int64, income, expense []core.Category) *core.Category {
	k, ok := core.ParseKind(kind)
	if !ok {
		return nil
	}
	catID, err := parseID(url.Values{"id": {rawID}}, "id")
	if err != nil {
		return nil
	}
	list := expense
	if k == core.KindIncome {
		list = income
	}
	for i := range list {
		if list[i].ID == catID && list[i].OwnedBy(userID) {
			c := list[i]
			return &c
		}
	}
	return nil
}

func (s *Server) handleCategoryAction(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	id, _ := identity(r)
	ctx := r.Context()
	action := formValue(r, "action")

	kind, ok := core.ParseKind(r.PostFormValue("type"))
	if !ok {
		s.fail(w, r, "/categories", core.NewValidationError("type", "category type must be income or expense"))
		return
	}
	name := formValue(r, "name")
	description := formValue(r, "description")

	var (
		catID int64
		msg   string
		err   error
	)
	switch action {
	case "create":
		catID, err = s.svc.Categories.Create(ctx, id.UserID, kind, name, description)
		msg = "Category added successfully."
	case "update":
		if catID, err = parseID(r.PostForm, "id"); err == nil {
			err = s.svc.Categories.Update(ctx, id.UserID, kind, catID, name, description)
			msg = "Category updated successfully."
		}
	case "delete":
		if catID, err = parseID(r.PostForm, "id"); err == nil {
			err = s.svc.Categories.Delete(ctx, id.UserID, kind, catID)
			msg = "Category deleted successfully."
		}
	default:
		err = core.NewValidationError("action", "unknown action")
	}

	if err != nil {
		s.logFailure(r, log.ComponentCategory, action, err)
		s.fail(w, r, "/categories", err)
		return
	}
	s.countMutation()
	s.events.LogMutation(ctx, log.ComponentCategory, action, id.UserID, string(kind), catID)
	s.done(w, r, "/categories", msg)
}
