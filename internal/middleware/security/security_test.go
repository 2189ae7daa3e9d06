package security

import (
	"bytes"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/log"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "plain http gets no HSTS")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestHeadersSkipEmpty(t *testing.T) {
	h := NewHeadersMiddleware(HeadersConfig{XFrameOptions: "SAMEORIGIN"}).Middleware(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	_, ok := rec.Header()["Content-Security-Policy"]
	assert.False(t, ok)
}

func TestCacheHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/files", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	StaticAssetMiddleware(3600)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}

func TestExtractClientIP(t *testing.T) {
	d, err := NewDetector("10.1.0.0/16", "192.168.5.5")
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{name: "direct", remote: "203.0.113.7:4000", want: "203.0.113.7"},
		{name: "untrusted proxy ignored", remote: "203.0.113.7:4000", xff: "1.1.1.1", want: "203.0.113.7"},
		{name: "loopback proxy", remote: "127.0.0.1:4000", xff: "1.1.1.1, 10.1.2.3", want: "1.1.1.1"},
		{name: "cidr proxy", remote: "10.1.9.9:4000", xri: "2.2.2.2", want: "2.2.2.2"},
		{name: "single host proxy", remote: "192.168.5.5:80", xff: "3.3.3.3", want: "3.3.3.3"},
		{name: "bad forwarded value", remote: "127.0.0.1:4000", xff: "garbage", want: "127.0.0.1"},
		{name: "no port", remote: "198.51.100.1", want: "198.51.100.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, d.ExtractClientIP(r))
		})
	}
	assert.Equal(t, int64(1), d.GetMetrics().InvalidIPAttempts)
}

func TestNewDetectorRejectsBadProxy(t *testing.T) {
	_, err := NewDetector("not-an-ip")
	assert.Error(t, err)
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{name: "dashboard tab", method: http.MethodGet, target: "/ui/tabs/store?store=12", want: false},
		{name: "curl is fine", method: http.MethodGet, target: "/healthz", agent: "curl/8.5", want: false},
		{name: "traversal", method: http.MethodGet, target: "/static/../../etc/passwd", want: true},
		{name: "dotenv", method: http.MethodGet, target: "/.env", want: true},
		{name: "sqli in query", method: http.MethodGet, target: "/ui/tabs/state?state=x%27%20union%20select%201", want: true},
		{name: "scanner agent", method: http.MethodGet, target: "/", agent: "sqlmap/1.7", want: true},
		{name: "trace method", method: "TRACE", target: "/", want: true},
		{name: "long url", method: http.MethodGet, target: "/?q=" + strings.Repeat("a", 3000), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				r.Header.Set("User-Agent", tt.agent)
			}
			assert.Equal(t, tt.want, d.DetectSuspiciousRequest(r))
		})
	}
}

func TestDetectorMiddlewareLogs(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: log.FormatJSON, Output: &buf})

	rec := httptest.NewRecorder()
	d.Middleware(logger)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-admin/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"msg":"Suspicious request"`)
	assert.Contains(t, buf.String(), `"component":"security"`)
	assert.Equal(t, int64(1), d.GetMetrics().SuspiciousRequests)
}
