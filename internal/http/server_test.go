package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"finanze/internal/auth"
	"finanze/internal/core"
	"finanze/internal/query"
	"finanze/internal/services"
	"finanze/internal/storage"
)

type testApp struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	svc    Services
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "http.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	defaults, err := storage.DefaultCategories()
	require.NoError(t, err)

	dashboard := services.NewDashboardService(repo, nil)
	reports := services.NewReportService(repo, repo, services.ReportSettings{AppName: "Finanze", Currency: "EUR"})
	svc := Services{
		Users:      services.NewUserService(repo, auth.NewHasher(bcrypt.MinCost), defaults),
		Categories: services.NewCategoryService(repo, dashboard),
		Ledger:     services.NewLedgerService(repo, repo, dashboard),
		Budgets:    services.NewBudgetService(repo, dashboard),
		Dashboard:  dashboard,
		Reports:    reports,
		Jobs:       services.NewJobService(repo, nil, t.TempDir(), false),
	}
	sessions := auth.NewSessions(repo, repo, auth.SessionConfig{})

	s, err := NewServer("127.0.0.1:0", svc, sessions, Options{
		Currency:           "EUR",
		RateLimitPerMinute: 10000,
		Storage:            repo,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.limiter.Stop() })

	ts := httptest.NewServer(s.Handler)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{t: t, srv: ts, client: client, svc: svc}
}

func (a *testApp) do(method, path string, form url.Values, header http.Header) (*http.Response, string) {
	a.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	require.NoError(a.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp, string(raw)
}

func (a *testApp) get(path string) (*http.Response, string) {
	return a.do(http.MethodGet, path, nil, nil)
}

func (a *testApp) post(path string, form url.Values) (*http.Response, string) {
	return a.do(http.MethodPost, path, form, nil)
}

func (a *testApp) htmxPost(path string, form url.Values) (*http.Response, string) {
	return a.do(http.MethodPost, path, form, http.Header{"Hx-Request": {"true"}})
}

// signUp registers and logs in a user, returning its id.
func (a *testApp) signUp(username string) int64 {
	a.t.Helper()
	resp, _ := a.post("/register", url.Values{
		"username":         {username},
		"email":            {username + "@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
		"first_name":       {"Ada"},
		"terms":            {"on"},
	})
	require.Equal(a.t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = a.post("/login", url.Values{"login": {username}, "password": {"secret123"}})
	require.Equal(a.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(a.t, "/dashboard", resp.Header.Get("Location"))

	u, err := a.svc.Users.Authenticate(context.Background(), username, "secret123")
	require.NoError(a.t, err)
	return u.ID
}

func (a *testApp) categoryID(userID int64, kind core.Kind, name string) int64 {
	a.t.Helper()
	cats, err := a.svc.Categories.List(context.Background(), userID, kind)
	require.NoError(a.t, err)
	for _, c := range cats {
		if c.Name == name {
			return c.ID
		}
	}
	a.t.Fatalf("category %q not found", name)
	return 0
}

func TestServer_Health(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health["status"])

	resp, _ = app.get("/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = app.get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, "ledger_mutations_total")
}

func TestServer_SecurityHeaders(t *testing.T) {
	app := newTestApp(t)
	resp, _ := app.get("/login")
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestServer_RequiresLogin(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/", "/dashboard", "/transactions", "/income", "/expenses", "/categories", "/budgets", "/reports", "/profile"} {
		resp, _ := app.get(path)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}

	resp, _ := app.do(http.MethodGet, "/ui/dashboard/summary", nil, http.Header{"Hx-Request": {"true"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("HX-Redirect"))
}

func TestServer_RegisterAndLogin(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.post("/register", url.Values{
		"username":         {"ada"},
		"email":            {"ada@example.com"},
		"password":         {"secret123"},
		"confirm_password": {"secret124"},
		"terms":            {"on"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Passwords do not match.")
	assert.NotContains(t, body, "secret123")

	app.signUp("ada")

	resp, body = app.get("/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome back, Ada!")

	// the flash is shown once
	_, body = app.get("/dashboard")
	assert.NotContains(t, body, "Welcome back")

	resp, _ = app.get("/login")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = app.post("/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = app.get("/dashboard")
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestServer_LoginRejectsBadPassword(t *testing.T) {
	app := newTestApp(t)
	app.signUp("grace")
	app.post("/logout", url.Values{})

	resp, body := app.post("/login", url.Values{"login": {"grace"}, "password": {"wrong1234"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password.")

	resp, body = app.post("/login", url.Values{"login": {"nobody"}, "password": {"wrong1234"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid username or password.")
}

func TestServer_LedgerFlow(t *testing.T) {
	app := newTestApp(t)
	uid := app.signUp("linus")
	today := core.DateOf(time.Now()).String()

	resp, _ := app.post("/categories", url.Values{"action": {"create"}, "type": {"expense"}, "name": {"Groceries"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	catID := app.categoryID(uid, core.KindExpense, "Groceries")

	resp, _ = app.post("/expenses", url.Values{
		"action":      {"create"},
		"category_id": {strconv.FormatInt(catID, 10)},
		"amount":      {"12.50"},
		"date":        {today},
		"description": {"weekly shop"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/expenses", resp.Header.Get("Location"))

	resp, body := app.get("/expenses")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Expense added successfully.")
	assert.Contains(t, body, "weekly shop")
	assert.Contains(t, body, "EUR 12.50")

	_, body = app.get("/transactions?search=weekly")
	assert.Contains(t, body, "weekly shop")
	_, body = app.get("/transactions?search=nothing-matches")
	assert.NotContains(t, body, "weekly shop")
	assert.Contains(t, body, "No transactions match the filter.")

	// validation errors come back as an error flash
	resp, _ = app.post("/expenses", url.Values{
		"action": {"create"}, "category_id": {strconv.FormatInt(catID, 10)}, "amount": {"-3"}, "date": {today},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = app.get("/expenses")
	assert.Contains(t, body, "Amount must be a positive number.")

	// a category in use cannot be deleted
	resp, _ = app.htmxPost("/categories", url.Values{"action": {"delete"}, "type": {"expense"}, "id": {strconv.FormatInt(catID, 10)}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("HX-Trigger"), "Cannot delete category")

	resp, body = app.do(http.MethodGet, "/ui/dashboard/trend", nil, http.Header{"Accept": {"application/json"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var points []trendPoint
	require.NoError(t, json.Unmarshal([]byte(body), &points))
	require.NotEmpty(t, points)
	assert.InDelta(t, 12.5, points[len(points)-1].Expenses, 0.001)

	_, body = app.get("/ui/dashboard/summary")
	assert.Contains(t, body, "EUR 12.50")
}

func TestServer_LedgerIsolation(t *testing.T) {
	app := newTestApp(t)
	owner := app.signUp("owner")
	app.post("/categories", url.Values{"action": {"create"}, "type": {"income"}, "name": {"Consulting"}})
	catID := app.categoryID(owner, core.KindIncome, "Consulting")
	app.post("/income", url.Values{
		"action": {"create"}, "category_id": {strconv.FormatInt(catID, 10)}, "amount": {"100"}, "date": {core.DateOf(time.Now()).String()},
	})
	rows, err := app.svc.Ledger.Query(context.Background(), owner, query.Filter{}, query.DefaultSort, 1)
	require.NoError(t, err)
	require.Len(t, rows.Rows, 1)
	rowID := rows.Rows[0].ID
	app.post("/logout", url.Values{})

	app.signUp("intruder")
	resp, _ := app.htmxPost("/income", url.Values{"action": {"delete"}, "id": {strconv.FormatInt(rowID, 10)}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("HX-Trigger"), "Record not found")

	_, err = app.svc.Ledger.Get(context.Background(), owner, core.KindIncome, rowID)
	assert.NoError(t, err)
}

func TestServer_BudgetOverlap(t *testing.T) {
	app := newTestApp(t)
	uid := app.signUp("budgeter")
	app.post("/categories", url.Values{"action": {"create"}, "type": {"expense"}, "name": {"Rent"}})
	catID := app.categoryID(uid, core.KindExpense, "Rent")

	form := url.Values{
		"action":       {"create"},
		"category_id":  {strconv.FormatInt(catID, 10)},
		"amount":       {"900"},
		"period_start": {"2024-01-01"},
		"period_end":   {"2024-01-31"},
	}
	resp, _ := app.htmxPost("/budgets", form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/budgets", resp.Header.Get("HX-Redirect"))
	assert.Contains(t, resp.Header.Get("HX-Trigger"), EventDashboardRefresh)

	form.Set("period_start", "2024-01-15")
	form.Set("period_end", "2024-02-15")
	resp, _ = app.htmxPost("/budgets", form)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("HX-Trigger"), "overlapping period")

	_, body := app.get("/budgets")
	assert.Contains(t, body, "EUR 900.00")
	assert.NotContains(t, body, "tag-current")

	first, last := core.MonthBounds(time.Now())
	form.Set("period_start", first.String())
	form.Set("period_end", last.String())
	resp, _ = app.post("/budgets", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = app.get("/budgets")
	assert.Equal(t, 1, strings.Count(body, "tag-current"))
}

func TestServer_ReportDownload(t *testing.T) {
	app := newTestApp(t)
	app.signUp("reporter")

	resp, body := app.post("/reports", url.Values{
		"action":      {"download"},
		"report_type": {"summary"},
		"start_date":  {"2024-01-01"},
		"end_date":    {"2024-03-31"},
		"format":      {"pdf"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "financial_report_summary_2024-01-01_2024-03-31.pdf")
	assert.True(t, strings.HasPrefix(body, "%PDF"))

	resp, _ = app.post("/reports", url.Values{
		"action":      {"download"},
		"report_type": {"summary"},
		"start_date":  {"2024-03-31"},
		"end_date":    {"2024-01-01"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = app.get("/reports/jobs/999/download")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ProfileUpdate(t *testing.T) {
	app := newTestApp(t)
	uid := app.signUp("profiled")

	resp, _ := app.post("/profile", url.Values{
		"action": {"update_profile"}, "email": {"new@example.com"}, "first_name": {"New"}, "last_name": {"Name"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	u, err := app.svc.Users.Get(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Equal(t, "New Name", u.FullName())

	resp, _ = app.htmxPost("/profile", url.Values{
		"action": {"change_password"}, "current_password": {"wrong1234"}, "new_password": {"another123"}, "confirm_password": {"another123"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = app.post("/profile", url.Values{
		"action": {"change_password"}, "current_password": {"secret123"}, "new_password": {"another123"}, "confirm_password": {"another123"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// the current session survives the change
	resp, _ = app.get("/profile")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
