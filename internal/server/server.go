// Package server exposes the processor over HTTP.
//
// Every endpoint under /v1 answers with a [ldforge.Result] envelope. The
// HTTP status reflects the kind of error so proxies and clients that don't
// look at the body still see failures.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/ns"
	"sourcery.dny.nu/ldforge/shacl"
)

// DefaultMaxBodySize is the request body limit used when none is set.
const DefaultMaxBodySize = 4 << 20

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger used for request and error logging.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithAllowedOrigins sets the origins allowed to make cross-origin
// requests. Without any, CORS headers aren't sent.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = append(s.origins, origins...)
	}
}

// WithMetrics registers the HTTP metrics on reg and serves everything
// gathered by g on /metrics.
func WithMetrics(reg prometheus.Registerer, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.reg = reg
		s.gatherer = g
	}
}

// WithPrefixes sets the prefix table used for Turtle output and graph
// labels.
func WithPrefixes(t *ns.Table) Option {
	return func(s *Server) {
		s.prefixes = t
	}
}

// WithMaxBodySize limits the size of request bodies.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// Server serves the HTTP API. Create one with [New].
type Server struct {
	proc      *ldforge.Processor
	validator *shacl.Validator
	logger    *slog.Logger
	origins   []string
	prefixes  *ns.Table
	maxBody   int64

	reg      prometheus.Registerer
	gatherer prometheus.Gatherer
	requests *prometheus.CounterVec
}

// New returns a server using p for every operation.
func New(p *ldforge.Processor, opts ...Option) *Server {
	s := &Server{
		proc:     p,
		logger:   slog.New(slog.DiscardHandler),
		prefixes: ns.Default(),
		maxBody:  DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.validator = shacl.NewValidator(p, shacl.WithLogger(s.logger))
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ldforge",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	if s.reg != nil {
		if err := s.reg.Register(s.requests); err != nil {
			s.logger.Warn("failed to register metric", slog.Any("error", err))
		}
	}

	return s
}

// Handler returns the router for the API.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(s.logRequests)
	router.Use(chimiddleware.Recoverer)

	if len(s.origins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	if s.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/v1", func(r chi.Router) {
		r.Post("/expand", s.handleExpand)
		r.Post("/compact", s.handleCompact)
		r.Post("/flatten", s.handleFlatten)
		r.Post("/frame", s.handleFrame)
		r.Post("/nquads", s.handleNQuads)
		r.Post("/canonical", s.handleCanonical)
		r.Post("/turtle", s.handleTurtle)
		r.Post("/yaml", s.handleYAML)
		r.Post("/validate", s.handleValidate)
		r.Post("/table", s.handleTable)
		r.Post("/graph", s.handleGraph)

		r.Post("/contexts", s.handleRegister)
		r.Get("/contexts/{urn}", s.handleContext)
	})

	return router
}
