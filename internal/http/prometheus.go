package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salesdash/internal/ingest"
)

// Upload results.
const (
	UploadAccepted = "accepted"
	UploadRejected = "rejected"
	UploadTooLarge = "too_large"
)

// Metrics holds the Prometheus collectors of one server. Each server gets its
// own registry so tests can build several.
type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	uploads    *prometheus.CounterVec
	merges     *prometheus.CounterVec
	mergedRows prometheus.Histogram
}

// NewMetrics registers the dashboard collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesdash",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salesdash",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesdash",
			Name:      "uploads_total",
			Help:      "Uploaded files by result.",
		}, []string{"result"}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesdash",
			Name:      "merges_total",
			Help:      "Gate runs by resulting state.",
		}, []string{"state"}),
		mergedRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salesdash",
			Name:      "merged_rows",
			Help:      "Row count of merged datasets.",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		}),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.uploads, m.merges, m.mergedRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest implements trace.Observer.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveUpload counts one uploaded file.
func (m *Metrics) ObserveUpload(result string) {
	m.uploads.WithLabelValues(result).Inc()
}

// ObserveMerge counts one gate run. Rows are observed only for Ready merges.
func (m *Metrics) ObserveMerge(state ingest.State, failed bool, rows int) {
	label := state.String()
	if failed && state == ingest.Ready {
		label = "parse_error"
	}
	m.merges.WithLabelValues(label).Inc()
	if state == ingest.Ready && !failed {
		m.mergedRows.Observe(float64(rows))
	}
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
