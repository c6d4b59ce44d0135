// Package web serves the last built catalog over a JSON HTTP API and
// rebuilds it on request.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/pricemerge/internal/ingest"
	"github.com/JonMunkholm/pricemerge/internal/logging"
	"github.com/JonMunkholm/pricemerge/internal/lookup"
	"github.com/JonMunkholm/pricemerge/internal/metrics"
	"github.com/JonMunkholm/pricemerge/internal/output"
	"github.com/JonMunkholm/pricemerge/internal/web/middleware"
)

// Builder produces a fresh catalog. *ingest.Pipeline implements it.
type Builder interface {
	Build(ctx context.Context) (*ingest.Result, error)
}

// Options configures a Server. The zero value serves without rate limits,
// request timeouts or persistence.
type Options struct {
	// Margin is the lookup price protection; negative means lookup.DefaultMargin.
	Margin float64

	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration

	// RequestsPerMinute limits each client IP across the API; 0 disables.
	// ReloadPerMinute applies to POST /api/reload on top of that.
	RequestsPerMinute int
	ReloadPerMinute   int

	TrustedProxies []string
	ReloadKeys     []string

	// Sinks receive every successfully built snapshot.
	Sinks []output.Sink

	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Server is the HTTP server for the catalog API.
type Server struct {
	builder Builder
	opts    Options
	logger  *slog.Logger

	current  atomic.Pointer[ingest.Result]
	builtAt  atomic.Pointer[time.Time]
	reloadMu sync.Mutex

	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server. No catalog is served until Reload succeeds.
func NewServer(builder Builder, opts Options) *Server {
	if opts.Margin < 0 {
		opts.Margin = lookup.DefaultMargin
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		builder: builder,
		opts:    opts,
		logger:  logger,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.opts.TrustedProxies))
	s.router.Use(middleware.Logger(s.opts.Metrics))
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(securityHeaders)

	if s.opts.RequestsPerMinute > 0 {
		s.router.Use(newRateLimiter(s.opts.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.opts.RequestTimeout > 0 {
				r.Use(chimw.Timeout(s.opts.RequestTimeout))
			}

			r.Get("/suppliers", s.handleSuppliers)
			r.Get("/manufacturers", s.handleManufacturers)
			r.Get("/products", s.handleProducts)
			r.Get("/products/{itemNo}", s.handleProduct)
			r.Post("/lookup", s.handleLookup)
			r.Get("/rates", s.handleRates)
			r.Get("/report", s.handleReport)
		})

		// A rebuild may outlive the request timeout.
		r.Group(func(r chi.Router) {
			if s.opts.ReloadPerMinute > 0 {
				r.Use(newRateLimiter(s.opts.ReloadPerMinute).middleware)
			}
			r.Use(middleware.APIKeyAuth(s.opts.ReloadKeys))
			r.Post("/reload", s.handleReload)
		})
	})
}

// Reload builds a new catalog and swaps it in. Concurrent calls fail with
// errReloadInProgress instead of queueing. The new catalog is served even
// when a sink fails; the sink error is returned.
func (s *Server) Reload(ctx context.Context) (*ingest.Result, error) {
	if !s.reloadMu.TryLock() {
		return nil, errReloadInProgress
	}
	defer s.reloadMu.Unlock()

	res, err := s.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s.current.Store(res)
	s.builtAt.Store(&now)

	logging.Enrich(logging.WithRunID(ctx, res.Report.RunID), s.logger).Info("catalog loaded",
		"suppliers", res.Report.Suppliers,
		"products", res.Report.Products,
		"offers", res.Report.Offers,
		"diagnostics", len(res.Report.Diagnostics),
	)

	if err := output.WriteAll(ctx, res.Snapshot, s.opts.Sinks...); err != nil {
		return res, err
	}
	return res, nil
}

// Current returns the catalog being served, or nil before the first build.
func (s *Server) Current() *ingest.Result {
	return s.current.Load()
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	s.logger.Info("starting server", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// JSON only; nothing may be loaded or framed.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
