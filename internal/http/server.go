// Package http serves the finanze web interface: server-rendered pages,
// HTMX partials and the ops endpoints.
package http

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"finanze/internal/auth"
	"finanze/internal/cache"
	"finanze/internal/log"
	"finanze/internal/middleware/ratelimit"
	"finanze/internal/middleware/security"
	"finanze/internal/middleware/trace"
	"finanze/internal/services"
	appweb "finanze/web"
)

const loginPath = "/login"

// Services bundles the domain services behind the pages.
type Services struct {
	Users      *services.UserService
	Categories *services.CategoryService
	Ledger     *services.LedgerService
	Budgets    *services.BudgetService
	Dashboard  *services.DashboardService
	Reports    *services.ReportService
	Jobs       *services.JobService
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server.
type Options struct {
	AppName            string
	Currency           string
	CookieSecure       bool
	RateLimitPerMinute int
	SheetsEnabled      bool
	TrustedProxies     []string
	Logger             *log.Logger
	// Storage is checked by /readyz.
	Storage Pinger
	// CacheStats feeds /metrics when set.
	CacheStats func() cache.Stats
}

// Server wraps http.Server with the page handlers and their middleware.
type Server struct {
	http.Server

	svc       Services
	sessions  *auth.Sessions
	opts      Options
	templates *templateSet
	logger    *log.Logger
	events    *log.StructuredLogger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	headers  *security.HeadersMiddleware

	metrics      appMetrics
	now          func() time.Time
	shutdownOnce sync.Once
}

// appMetrics counts user-visible work.
type appMetrics struct {
	started         time.Time
	mutations       int64
	imports         int64
	reportsRendered int64
	jobsQueued      int64
	logins          int64
	failedLogins    int64
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(addr string, svc Services, sessions *auth.Sessions, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.FromContext(context.Background())
	}
	if opts.AppName == "" {
		opts.AppName = "Finanze"
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:      svc,
		sessions: sessions,
		opts:     opts,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
		detector: security.NewDetector(),
		headers:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		now:      time.Now,
	}
	s.metrics.started = s.now()
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	templates, err := parseTemplates(appweb.TemplatesFS, s.funcs())
	if err != nil {
		return nil, err
	}
	s.templates = templates

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux, static)

	var h http.Handler = mux
	h = sessions.Middleware(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited)(h)
	h = s.detector.Middleware(false)(h)
	h = s.headers.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux, static fs.FS) {
	files := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(files))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegister)

	app := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, security.NoStore(auth.RequireAuth(loginPath)(h)))
	}
	app("GET /{$}", s.handleDashboard)
	app("GET /dashboard", s.handleDashboard)
	app("GET /ui/dashboard/summary", s.handleDashboardSummary)
	app("GET /ui/dashboard/recent", s.handleDashboardRecent)
	app("GET /ui/dashboard/trend", s.handleDashboardTrend)

	app("GET /transactions", s.handleTransactions)
	app("GET /income", s.ledgerPage(ledgerIncome))
	app("POST /income", s.ledgerAction(ledgerIncome))
	app("POST /income/import", s.ledgerImport(ledgerIncome))
	app("GET /expenses", s.ledgerPage(ledgerExpense))
	app("POST /expenses", s.ledgerAction(ledgerExpense))
	app("POST /expenses/import", s.ledgerImport(ledgerExpense))

	app("GET /categories", s.handleCategories)
	app("POST /categories", s.handleCategoryAction)
	app("GET /budgets", s.handleBudgets)
	app("POST /budgets", s.handleBudgetAction)

	app("GET /reports", s.handleReports)
	app("POST /reports", s.handleReportAction)
	app("GET /reports/jobs/{id}/download", s.handleJobDownload)

	app("GET /profile", s.handleProfile)
	app("POST /profile", s.handleProfileAction)
}

// rateLimited answers a throttled request.
func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please wait a minute and try again.").
		TriggerErrorNotification("Too many requests. Please wait a minute and try again.").
		Write(w)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
