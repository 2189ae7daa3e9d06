package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/log"
)

type observed struct {
	method, route string
	status        int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observed
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observed{method, route, status})
}

func newTestMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ui/tabs/store", func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Info("inside handler")
		_, _ = w.Write([]byte(GetRequestID(r.Context())))
	})
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	return mux
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: log.FormatJSON, Output: &buf})
	obs := &recordingObserver{}
	m := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.9" }, obs)
	h := m.Middleware(newTestMux())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/tabs/store?store=12", nil))

	id := rec.Header().Get(RequestIDHeader)
	require.True(t, strings.HasPrefix(id, "req_"), id)
	assert.Equal(t, id, rec.Body.String(), "handler sees the same id")

	out := buf.String()
	assert.Contains(t, out, `"msg":"inside handler"`)
	assert.Contains(t, out, `"request_id":"`+id+`"`)
	assert.Contains(t, out, `"route":"GET /ui/tabs/store"`)
	assert.Contains(t, out, `"client_ip":"10.0.0.9"`)

	require.Len(t, obs.seen, 1)
	assert.Equal(t, observed{http.MethodGet, "GET /ui/tabs/store", http.StatusOK}, obs.seen[0])
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	m := NewMiddleware(log.Discard(), nil, nil)
	h := m.Middleware(newTestMux())

	req := httptest.NewRequest(http.MethodGet, "/ui/tabs/store", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/ui/tabs/store", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
}

func TestMiddlewareStatusAndUnmatched(t *testing.T) {
	obs := &recordingObserver{}
	m := NewMiddleware(log.Discard(), nil, obs)
	h := m.Middleware(newTestMux())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/upload", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, obs.seen, 2)
	assert.Equal(t, observed{http.MethodPost, "POST /upload", http.StatusUnprocessableEntity}, obs.seen[0])
	assert.Equal(t, http.StatusNotFound, obs.seen[1].status)
	assert.Equal(t, "unmatched", obs.seen[1].route)

	assert.Equal(t, int64(2), m.GetMetrics().TotalRequests)
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, len("req_")+16)
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
