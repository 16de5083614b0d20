// Package api exposes the consensus engine over HTTP: a REST surface for
// analyses and stored reports, an SSE event stream and an A2A JSON-RPC
// endpoint that lets other agents call the panel as a single specialist.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/events"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
	"github.com/hugo-lorenzo-mato/panel/internal/service"
	"github.com/hugo-lorenzo-mato/panel/internal/service/workflow"
)

// Engine runs analyses.
type Engine interface {
	Analyze(ctx context.Context, req workflow.AnalysisRequest) (*core.ConsensusReport, error)
	Catalog() *core.RoleCatalog
}

// Server provides the HTTP endpoints.
type Server struct {
	router          chi.Router
	engine          Engine
	store           core.ReportStore
	metrics         *service.MetricsCollector
	eventBus        *events.EventBus
	logger          *logging.Logger
	defaults        core.WorkflowConfig
	corsOrigins     []string
	publicURL       string
	version         string
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
	now             func() time.Time
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStore persists every analysis run through the API.
func WithStore(store core.ReportStore) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics exposes collector under /api/v1/metrics.
func WithMetrics(m *service.MetricsCollector) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithEventBus streams bus events under /api/v1/events.
func WithEventBus(bus *events.EventBus) ServerOption {
	return func(s *Server) {
		s.eventBus = bus
	}
}

// WithDefaults sets the analysis config requests start from.
func WithDefaults(cfg core.WorkflowConfig) ServerOption {
	return func(s *Server) {
		s.defaults = cfg
	}
}

// WithCORSOrigins restricts cross-origin access.
func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithPublicURL sets the base URL advertised in the agent card.
func WithPublicURL(url string) ServerOption {
	return func(s *Server) {
		s.publicURL = url
	}
}

// WithVersion sets the version reported by /health and the agent card.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// WithClock overrides the clock used to stamp stored reports.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a new API server.
func NewServer(engine Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine:          engine,
		logger:          logging.NewNop(),
		defaults:        core.DefaultWorkflowConfig(),
		corsOrigins:     []string{"*"},
		version:         "dev",
		requestTimeout:  30 * time.Second,
		shutdownTimeout: 10 * time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("api")

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures Chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)
	r.Get("/.well-known/agent.json", s.handleAgentCard)
	r.Post("/rpc", s.handleRPC)

	r.Route("/api/v1", func(r chi.Router) {
		// Short requests get a deadline; analyses and the event stream
		// are bounded by their own timeouts.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout))
			r.Get("/roles", s.handleListRoles)
			r.Get("/metrics", s.handleMetrics)
			r.Get("/analyses", s.handleListAnalyses)
			r.Get("/analyses/{id}", s.handleGetAnalysis)
			r.Delete("/analyses/{id}", s.handleDeleteAnalysis)
		})
		r.Post("/analyses", s.handleCreateAnalysis)
		r.Get("/events", s.handleSSE)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
