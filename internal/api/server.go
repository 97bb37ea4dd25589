// Package api serves a minimal container engine API over captured logs.
// It answers the podman libpod and docker routes the log sources use, so the
// viewer can be exercised without a real engine.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/charliek/podlogs/internal/constants"
)

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Host string
	Port int
}

// Server represents the HTTP API server
type Server struct {
	config     ServerConfig
	router     *chi.Mux
	httpServer *http.Server
	handlers   *Handlers
	metrics    *Metrics
	mu         sync.Mutex
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(config ServerConfig, handlers *Handlers, metrics *Metrics) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if metrics != nil {
		r.Use(metrics.Middleware)
	}

	s := &Server{
		config:   config,
		router:   r,
		handlers: handlers,
		metrics:  metrics,
	}
	s.registerRoutes()
	return s
}

// registerRoutes mounts the engine routes with and without a version
// prefix, and under /libpod for podman clients.
func (s *Server) registerRoutes() {
	s.router.Get("/_ping", s.handlers.Ping)
	s.router.Head("/_ping", s.handlers.Ping)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.containerRoutes(s.router)
	s.router.Route("/libpod", s.libpodRoutes)
	s.router.Route("/{version}", func(r chi.Router) {
		r.Get("/_ping", s.handlers.Ping)
		s.containerRoutes(r)
		r.Route("/libpod", s.libpodRoutes)
	})
}

func (s *Server) libpodRoutes(r chi.Router) {
	r.Get("/_ping", s.handlers.Ping)
	s.containerRoutes(r)
}

func (s *Server) containerRoutes(r chi.Router) {
	r.Get("/version", s.handlers.GetVersion)

	// logs streams for as long as the client follows, so it gets no timeout
	r.Get("/containers/{name}/logs", s.handlers.GetLogs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(constants.DefaultRequestTimeout))
		r.Get("/containers/json", s.handlers.ListContainers)
		r.Get("/containers/{name}/json", s.handlers.InspectContainer)
		r.Post("/containers/{name}/start", s.handlers.StartContainer)
		r.Post("/containers/{name}/stop", s.handlers.StopContainer)
	})
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // follow streams are unbounded
		IdleTimeout:  60 * time.Second,
	}
	server := s.httpServer
	s.mu.Unlock()

	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Addr returns the server address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
