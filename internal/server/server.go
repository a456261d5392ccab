package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/priosim/internal/config"
	"github.com/me/priosim/internal/session"
	"github.com/me/priosim/internal/store"
	"github.com/me/priosim/internal/ui"
)

// Version is reported by the health and discovery endpoints.
const Version = "0.1.0"

// Server is the priosim REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	store     store.Store
	sessions  *session.Manager
	ui        *ui.UI
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithSessionManager replaces the session manager built from the config.
func WithSessionManager(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, st store.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(session.Config{
			MaxProcesses: cfg.MaxProcesses,
			MaxSessions:  cfg.MaxSessions,
		}, logger)
	}

	s.ui = ui.New(s.sessions, s.store, logger)

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusFound)
	})
	r.Route("/ui", s.ui.RegisterRoutes)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		// Stored process sets
		r.Route("/workloads", func(r chi.Router) {
			r.Get("/", s.handleListWorkloads)
			r.Post("/", s.handleCreateWorkload)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetWorkload)
				r.Delete("/", s.handleDeleteWorkload)
			})
		})

		// Simulation sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/start", s.handleStartSession)
				r.Post("/step", s.handleStepSession)
				r.Post("/run", s.handleRunSession)
				r.Post("/reset", s.handleResetSession)
				r.Get("/metrics", s.handleSessionMetrics)
				r.Get("/events", s.handleSessionEvents)
				r.Get("/export", s.handleExportSession)
			})
		})

		r.Route("/sse", func(r chi.Router) {
			r.Get("/sessions/{id}", s.handleSSESession)
		})
	})
}
