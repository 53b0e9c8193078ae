package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jdorantes1987/aapn-nc/internal/auth"
	"github.com/jdorantes1987/aapn-nc/internal/config"
	"github.com/jdorantes1987/aapn-nc/internal/http/handlers"
	"github.com/jdorantes1987/aapn-nc/internal/middleware"
	"github.com/jdorantes1987/aapn-nc/internal/registry"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// Deps collects the wired collaborators the routes need.
type Deps struct {
	Registry *registry.Service
	Auth     *auth.Manager
	Tokens   *auth.TokenManager
	Logger   *slog.Logger
}

// New wires middleware and routes and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	handlers.NewHealthHandler(time.Now()).Register(r)
	handlers.NewAuthHandler(deps.Auth, deps.Tokens, log).Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Tokens))
		handlers.NewBelieversHandler(deps.Registry, deps.Auth, log).Register(r)
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Handler exposes the configured route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
