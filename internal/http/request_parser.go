package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finanze/internal/core"
	"finanze/internal/query"
	"finanze/internal/services"
)

// maxUploadBytes bounds an import upload.
const maxUploadBytes = 5 << 20

// FilterForm is the raw filter input, echoed back into forms and page links.
type FilterForm struct {
	Type      string
	DateStart string
	DateEnd   string
	Category  string
	MinAmount string
	MaxAmount string
	Search    string
	SortBy    string
	SortOrder string
}

// ParseFilter reads the transaction filter from query parameters. A date
// parameter missing altogether defaults to the bounds of the month holding
// now; one sent empty means no bound.
func ParseFilter(q url.Values, now time.Time) (query.Filter, FilterForm, error) {
	first, last := core.MonthBounds(now)
	form := FilterForm{
		Type:      string(query.ParseType(q.Get("type"))),
		DateStart: dateParam(q, "date_start", first),
		DateEnd:   dateParam(q, "date_end", last),
		Category:  sanitizeInput(q.Get("category")),
		MinAmount: strings.TrimSpace(q.Get("min_amount")),
		MaxAmount: strings.TrimSpace(q.Get("max_amount")),
		Search:    sanitizeInput(q.Get("search")),
	}
	sort := query.ParseSort(q.Get("sort_by"), q.Get("sort_order"))
	form.SortBy, form.SortOrder = string(sort.By), string(sort.Order)

	f := query.Filter{Type: query.Type(form.Type)}
	var err error
	if f.DateStart, err = optionalDate("date_start", form.DateStart); err != nil {
		return query.Filter{}, form, err
	}
	if f.DateEnd, err = optionalDate("date_end", form.DateEnd); err != nil {
		return query.Filter{}, form, err
	}
	if form.Category != "" {
		f.Category = &form.Category
	}
	if f.MinAmount, err = core.ParseOptionalAmount(form.MinAmount); err != nil {
		return query.Filter{}, form, err
	}
	if f.MaxAmount, err = core.ParseOptionalAmount(form.MaxAmount); err != nil {
		return query.Filter{}, form, err
	}
	if form.Search != "" {
		f.Search = &form.Search
	}
	return f, form, nil
}

// Sort returns the whitelisted sort the form asks for.
func (f FilterForm) Sort() query.Sort {
	return query.ParseSort(f.SortBy, f.SortOrder)
}

// Query encodes the form for a link to page. Empty dates are kept so the
// month default does not come back.
func (f FilterForm) Query(page int) string {
	v := url.Values{}
	v.Set("type", f.Type)
	v.Set("date_start", f.DateStart)
	v.Set("date_end", f.DateEnd)
	for key, val := range map[string]string{
		"category":   f.Category,
		"min_amount": f.MinAmount,
		"max_amount": f.MaxAmount,
		"search":     f.Search,
	} {
		if val != "" {
			v.Set(key, val)
		}
	}
	v.Set("sort_by", f.SortBy)
	v.Set("sort_order", f.SortOrder)
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	return v.Encode()
}

// SortQuery links to the first page sorted by column, flipping the order
// when column is already the active sort.
func (f FilterForm) SortQuery(column string) string {
	next := f
	next.SortBy = column
	next.SortOrder = string(query.Desc)
	if f.SortBy == column && f.SortOrder == string(query.Desc) {
		next.SortOrder = string(query.Asc)
	}
	return next.Query(1)
}

func dateParam(q url.Values, key string, def core.Date) string {
	if _, ok := q[key]; !ok {
		return def.String()
	}
	return strings.TrimSpace(q.Get(key))
}

func optionalDate(field, s string) (*core.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, core.NewValidationError(field, "dates must use the YYYY-MM-DD format")
	}
	return &d, nil
}

// parsePage returns the 1-based page number, 1 for anything unusable.
func parsePage(q url.Values) int {
	n, err := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// parseID reads a positive row id from a form field.
func parseID(form url.Values, key string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(form.Get(key)), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(key, "invalid record")
	}
	return id, nil
}

// requiredDate parses a mandatory date field; blank input is left to domain validation.
func requiredDate(form url.Values, key string) (core.Date, error) {
	s := strings.TrimSpace(form.Get(key))
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, core.NewValidationError(key, "dates must use the YYYY-MM-DD format")
	}
	return d, nil
}

// ParseTransactionInput reads the ledger form fields.
func ParseTransactionInput(form url.Values) (services.TransactionInput, error) {
	var in services.TransactionInput
	catID, err := strconv.ParseInt(strings.TrimSpace(form.Get("category_id")), 10, 64)
	if err != nil || catID <= 0 {
		return in, core.NewValidationError("category_id", "please select a category")
	}
	in.CategoryID = catID
	if in.Amount, err = core.ParseAmount(form.Get("amount")); err != nil {
		return in, err
	}
	if in.Date, err = requiredDate(form, "date"); err != nil {
		return in, err
	}
	in.Description = sanitizeInput(form.Get("description"))
	return in, nil
}

// ParseBudgetInput reads the budget form fields.
func ParseBudgetInput(form url.Values) (services.BudgetInput, error) {
	var in services.BudgetInput
	catID, err := strconv.ParseInt(strings.TrimSpace(form.Get("category_id")), 10, 64)
	if err != nil || catID <= 0 {
		return in, core.NewValidationError("category_id", "please select a category")
	}
	in.CategoryID = catID
	if in.Amount, err = core.ParseAmount(form.Get("amount")); err != nil {
		return in, err
	}
	if in.PeriodStart, err = requiredDate(form, "period_start"); err != nil {
		return in, err
	}
	if in.PeriodEnd, err = requiredDate(form, "period_end"); err != nil {
		return in, err
	}
	return in, nil
}

// ParseReportRequest reads the report form. The format defaults to PDF.
func ParseReportRequest(form url.Values) (services.ReportRequest, core.Format, error) {
	var req services.ReportRequest
	typ, err := core.ParseReportType(form.Get("report_type"))
	if err != nil {
		return req, "", err
	}
	req.Type = typ
	if req.Start, err = requiredDate(form, "start_date"); err != nil {
		return req, "", err
	}
	if req.End, err = requiredDate(form, "end_date"); err != nil {
		return req, "", err
	}
	format, err := core.ParseFormat(form.Get("format"))
	if err != nil {
		return req, "", err
	}
	return req, format, nil
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// formValue returns a sanitized form field.
func formValue(r *http.Request, key string) string {
	return sanitizeInput(r.PostFormValue(key))
}

// sanitizeInput removes control characters except tab, newline and carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
