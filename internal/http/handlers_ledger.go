package http

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/query"
)

// importErrorsShown caps the row errors echoed after an import.
const importErrorsShown = 5

// ledger describes one of the two single-ledger pages.
type ledger struct {
	Kind  core.Kind
	Path  string
	Title string
	Noun  string
}

var (
	ledgerIncome  = ledger{Kind: core.KindIncome, Path: "/income", Title: "Income", Noun: "Income"}
	ledgerExpense = ledger{Kind: core.KindExpense, Path: "/expenses", Title: "Expenses", Noun: "Expense"}
)

type ledgerView struct {
	Ledger     ledger
	Categories []core.Category
	Result     query.Result
	Filter     FilterForm
	Edit       *core.Transaction
	Today      string
	Error      string
}

type transactionsView struct {
	Result     query.Result
	Filter     FilterForm
	Categories []string
	Error      string
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	ctx := r.Context()
	q := r.URL.Query()

	f, form, err := ParseFilter(q, s.now())
	view := transactionsView{Filter: form}
	if err != nil {
		view.Error = userMessage(err)
	} else {
		view.Result, err = s.svc.Ledger.Query(ctx, id.UserID, f, form.Sort(), parsePage(q))
		if err != nil {
			s.logFailure(r, log.ComponentLedger, log.OpList, err)
			view.Error = userMessage(err)
		}
	}
	view.Categories = s.categoryNames(r, id.UserID)
	s.render(w, r, http.StatusOK, "transactions.html", "Transactions", "transactions", view)
}

// categoryNames lists the distinct category names of both ledgers for the filter input.
func (s *Server) categoryNames(r *http.Request, userID int64) []string {
	seen := map[string]bool{}
	var names []string
	for _, kind := range []core.Kind{core.KindIncome, core.KindExpense} {
		cats, err := s.svc.Categories.List(r.Context(), userID, kind)
		if err != nil {
			s.logFailure(r, log.ComponentCategory, log.OpList, err)
			continue
		}
		for _, c := range cats {
			if !seen[c.Name] {
				seen[c.Name] = true
				names = append(names, c.Name)
			}
		}
	}
	sort.Slice(names, func(i, j int) bool { return strings.ToLower(names[i]) < strings.ToLower(names[j]) })
	return names
}

func (s *Server) ledgerPage(l ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity(r)
		ctx := r.Context()
		q := r.URL.Query()

		f, form, err := ParseFilter(q, s.now())
		form.Type = string(query.TypeFor(l.Kind))
		view := ledgerView{Ledger: l, Filter: form, Today: core.DateOf(s.now()).String()}
		if err != nil {
			view.Error = userMessage(err)
		} else {
			view.Result, err = s.svc.Ledger.List(ctx, id.UserID, l.Kind, f, form.Sort(), parsePage(q))
			if err != nil {
				s.logFailure(r, log.ComponentLedger, log.OpList, err)
				view.Error = userMessage(err)
			}
		}

		if view.Categories, err = s.svc.Categories.List(ctx, id.UserID, l.Kind); err != nil {
			s.logFailure(r, log.ComponentCategory, log.OpList, err)
		}

		if editID := q.Get("edit"); editID != "" {
			txID, err := parseID(q, "edit")
			if err == nil {
				var t core.Transaction
				if t, err = s.svc.Ledger.Get(ctx, id.UserID, l.Kind, txID); err == nil {
					view.Edit = &t
				}
			}
			if err != nil {
				s.logFailure(r, log.ComponentLedger, log.OpRead, err)
				view.Error = userMessage(err)
			}
		}
		s.render(w, r, http.StatusOK, "ledger.html", l.Title, string(l.Kind), view)
	}
}

func (s *Server) ledgerAction(l ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errResp := ParseFormOrFail(r); errResp != nil {
			errResp.Write(w)
			return
		}
		id, _ := identity(r)
		ctx := r.Context()
		action := formValue(r, "action")

		var (
			recordID int64
			msg      string
			err      error
		)
		switch action {
		case "create":
			in, perr := ParseTransactionInput(r.PostForm)
			if err = perr; err == nil {
				recordID, err = s.svc.Ledger.Create(ctx, id.UserID, l.Kind, in)
				msg = l.Noun + " added successfully."
			}
		case "update":
			recordID, err = parseID(r.PostForm, "id")
			if err == nil {
				in, perr := ParseTransactionInput(r.PostForm)
				if err = perr; err == nil {
					err = s.svc.Ledger.Update(ctx, id.UserID, l.Kind, recordID, in)
					msg = l.Noun + " updated successfully."
				}
			}
		case "delete":
			recordID, err = parseID(r.PostForm, "id")
			if err == nil {
				err = s.svc.Ledger.Delete(ctx, id.UserID, l.Kind, recordID)
				msg = l.Noun + " deleted successfully."
			}
		default:
			err = core.NewValidationError("action", "unknown action")
		}

		if err != nil {
			s.logFailure(r, log.ComponentLedger, action, err)
			s.fail(w, r, l.Path, err)
			return
		}
		s.countMutation()
		s.events.LogMutation(ctx, log.ComponentLedger, action, id.UserID, string(l.Kind), recordID)
		s.done(w, r, l.Path, msg, EventLedgerChanged, EventDashboardRefresh)
	}
}

func (s *Server) ledgerImport(l ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity(r)
		ctx := r.Context()

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			var tooBig *http.MaxBytesError
			msg := "Please choose an .xlsx file to import."
			if errors.As(err, &tooBig) {
				msg = "The file is too large. The limit is 5 MB."
			}
			s.fail(w, r, l.Path, core.NewValidationError("file", msg))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			s.fail(w, r, l.Path, core.NewValidationError("file", "please choose an .xlsx file to import"))
			return
		}
		defer file.Close()

		res, err := s.svc.Ledger.Import(ctx, id.UserID, l.Kind, file)
		if err != nil {
			s.logFailure(r, log.ComponentLedger, log.OpImport, err)
			s.fail(w, r, l.Path, err)
			return
		}
		atomic.AddInt64(&s.metrics.imports, 1)

		msg := fmt.Sprintf("Imported %d rows.", res.Imported)
		if len(res.Errors) > 0 {
			var parts []string
			for i, rowErr := range res.Errors {
				if i == importErrorsShown {
					parts = append(parts, fmt.Sprintf("and %d more", len(res.Errors)-importErrorsShown))
					break
				}
				parts = append(parts, fmt.Sprintf("row %d: %s", rowErr.Row, strings.TrimSuffix(userMessage(rowErr.Err), ".")))
			}
			msg = fmt.Sprintf("Imported %d rows, skipped %d (%s).", res.Imported, len(res.Errors), strings.Join(parts, "; "))
		}
		if res.Imported == 0 {
			s.setFlash(w, Flash{Type: NotificationWarning, Message: msg})
			if isHTMX(r) {
				NewHTMXResponse().Redirect(l.Path).Write(w)
				return
			}
			http.Redirect(w, r, l.Path, http.StatusSeeOther)
			return
		}
		s.done(w, r, l.Path, msg, EventLedgerChanged, EventDashboardRefresh)
	}
}
