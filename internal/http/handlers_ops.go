package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.metrics.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil || len(s.templates.pages) == 0 {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.opts.Storage == nil:
		checks["database"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.opts.Storage.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "check", "database", "error", err)
			checks["database"] = "failed"
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "HTTP responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_microseconds", "gauge", "Moving average of response time", traceMetrics.AverageResponseTime)
	metric("ledger_mutations_total", "counter", "Successful create, update and delete actions", atomic.LoadInt64(&s.metrics.mutations))
	metric("ledger_imports_total", "counter", "Completed spreadsheet imports", atomic.LoadInt64(&s.metrics.imports))
	metric("reports_rendered_total", "counter", "Reports streamed to the browser", atomic.LoadInt64(&s.metrics.reportsRendered))
	metric("report_jobs_queued_total", "counter", "Report export jobs queued", atomic.LoadInt64(&s.metrics.jobsQueued))
	metric("logins_total", "counter", "Successful logins", atomic.LoadInt64(&s.metrics.logins))
	metric("failed_logins_total", "counter", "Rejected logins", atomic.LoadInt64(&s.metrics.failedLogins))

	if s.opts.CacheStats != nil {
		st := s.opts.CacheStats()
		metric("cache_entries", "gauge", "Current dashboard cache entries", st.Size)
		metric("cache_hits_total", "counter", "Dashboard cache hits", st.Hits)
		metric("cache_misses_total", "counter", "Dashboard cache misses", st.Misses)
	}

	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", s.now().Sub(s.metrics.started).Seconds()))
}

func (s *Server) countMutation() {
	atomic.AddInt64(&s.metrics.mutations, 1)
}
