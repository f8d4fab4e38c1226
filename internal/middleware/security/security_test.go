package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"), "no HSTS over plain HTTP")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersMiddleware_SkipsEmptyValues(t *testing.T) {
	cfg := DefaultHeadersConfig()
	cfg.CSP = ""
	h := NewHeadersMiddleware(cfg).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	_, present := rr.Header()["Content-Security-Policy"]
	assert.False(t, present)
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		target string
		agent  string
		method string
		want   string
	}{
		{name: "clean", target: "/transactions?search=rent", want: ""},
		{name: "dotenv probe", target: "/.env", want: "path:.env"},
		{name: "sql injection in query", target: "/transactions?search=1%27+union+select", want: "query:union select"},
		{name: "scanner agent", target: "/", agent: "sqlmap/1.7", want: "agent:sqlmap"},
		{name: "trace method", target: "/", method: "TRACE", want: "method:TRACE"},
		{name: "curl is fine", target: "/healthz", agent: "curl/8.0", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req := httptest.NewRequest(method, tt.target, nil)
			if tt.agent != "" {
				req.Header.Set("User-Agent", tt.agent)
			}
			got := d.DetectSuspiciousRequest(req)
			if tt.want == "" {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
	assert.Equal(t, int64(4), d.GetMetrics().SuspiciousRequests)
}

func TestDetector_MiddlewareBlocks(t *testing.T) {
	d := NewDetector()
	reached := false
	h := d.Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, reached)
	assert.Equal(t, int64(1), d.GetMetrics().BlockedRequests)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.True(t, reached)
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")
	assert.Equal(t, "203.0.113.9", d.ExtractClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "198.51.100.7", d.ExtractClientIP(req), "untrusted peers cannot spoof")

	require.NoError(t, d.AddTrustedProxy("198.51.100.0/24"))
	assert.Equal(t, "203.0.113.9", d.ExtractClientIP(req))
	assert.Error(t, d.AddTrustedProxy("nonsense"))
}
