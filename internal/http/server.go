package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/cache"
	"salesdash/internal/history"
	"salesdash/internal/ingest"
	"salesdash/internal/log"
	"salesdash/internal/middleware/ratelimit"
	"salesdash/internal/middleware/security"
	"salesdash/internal/middleware/trace"
	"salesdash/internal/session"
	appweb "salesdash/web"
)

// EventPublisher announces merged datasets. Nil disables dataset events.
type EventPublisher interface {
	PublishDatasetMerged(ctx context.Context, msg *amqp.DatasetMerged) error
}

// Options wires a Server. Sessions and History are required.
type Options struct {
	Addr      string
	Sessions  *session.Store
	History   history.Recorder
	Publisher EventPublisher
	Limiter   *ratelimit.Limiter
	Detector  *security.Detector
	Metrics   *Metrics
	Caches    *cache.Manager
	Logger    *log.Logger

	// MaxUploadBytes bounds one POST /upload body.
	MaxUploadBytes int64
}

// Server is the dashboard HTTP server.
type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Store
	history   history.Recorder
	publisher EventPublisher
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	metrics   *Metrics
	caches    *cache.Manager
	parser    *RequestParser
	logger    *log.Logger
	maxUpload int64
	merge     session.MergeFunc

	shutdownOnce sync.Once
}

const (
	multipartMemory   = 32 << 20
	staticMaxAge      = 3600
	readHeaderTimeout = 10 * time.Second
)

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Sessions == nil || opts.History == nil {
		return nil, errors.New("http server needs a session store and a history recorder")
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Detector == nil {
		d, err := security.NewDetector()
		if err != nil {
			return nil, err
		}
		opts.Detector = d
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 200 << 20
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: t,
		sessions:  opts.Sessions,
		history:   opts.History,
		publisher: opts.Publisher,
		limiter:   opts.Limiter,
		detector:  opts.Detector,
		metrics:   opts.Metrics,
		caches:    opts.Caches,
		parser:    NewRequestParser(),
		logger:    opts.Logger.WithComponent(log.ComponentHTTP),
		maxUpload: opts.MaxUploadBytes,
		merge:     ingest.Merge,
	}

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		return nil, err
	}

	tracer := trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP, s.metrics)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := tracer.Middleware(s.detector.Middleware(opts.Logger)(headers.Middleware(mux)))

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))

	page := func(h http.HandlerFunc) http.Handler { return security.NoStore(h) }

	mux.Handle("GET /{$}", page(s.handleIndex))
	mux.Handle("POST /upload", s.limited(page(s.handleUpload)))
	mux.Handle("POST /files/remove", s.limited(page(s.handleRemove)))
	mux.Handle("POST /files/clear", s.limited(page(s.handleClear)))
	mux.Handle("GET /ui/files", page(s.handleFiles))
	mux.Handle("GET /ui/dashboard", page(s.handleDashboard))
	mux.Handle("GET /ui/tabs/global", page(s.handleGlobal))
	mux.Handle("GET /ui/tabs/global/seasonality", page(s.handleSeasonality))
	mux.Handle("GET /ui/tabs/store", page(s.handleStore))
	mux.Handle("GET /ui/tabs/state", page(s.handleState))
	mux.Handle("GET /ui/tabs/advanced", page(s.handleAdvanced))
	mux.Handle("GET /ui/history", page(s.handleHistory))
	mux.Handle("GET /export.xlsx", page(s.handleExport))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return nil
}

// limited applies the upload rate limit when a limiter is configured.
func (s *Server) limited(h http.Handler) http.Handler {
	if s.limiter == nil {
		return h
	}
	return s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.NewFields().
				WithClientIP(s.detector.ExtractClientIP(r)).
				WithHTTPRequest(r.Method, r.URL.Path, "", "").
				ToSlice()...)
		TooManyRequestsError("Too many uploads. Please try again later.").Write(w)
	})(h)
}

// Shutdown stops background cleanup and then the http server. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.caches != nil {
			s.caches.Stop()
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
