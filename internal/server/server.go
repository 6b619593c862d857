// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: config in, a running server out.
// New opens the session store, builds the GitHub client, the auth service
// and the handlers, and wires them to routes. Nothing below this package
// knows how its dependencies are constructed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/uploader-auth/internal/auth"
	"github.com/sakif/uploader-auth/internal/config"
	"github.com/sakif/uploader-auth/internal/handler"
	"github.com/sakif/uploader-auth/internal/metrics"
	"github.com/sakif/uploader-auth/internal/middleware"
	"github.com/sakif/uploader-auth/internal/repository"
	redisstore "github.com/sakif/uploader-auth/internal/repository/redis"
	sqlitestore "github.com/sakif/uploader-auth/internal/repository/sqlite"
	"github.com/sakif/uploader-auth/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the session store connection and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.SessionStore
}

// New opens the configured session store and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	s.setupRoutes()

	return s, nil
}

// openStore picks the session store backend named by SESSION_STORE.
func openStore(ctx context.Context, cfg *config.Config) (repository.SessionStore, error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		return redisstore.New(ctx, cfg.RedisURL)

	case config.StoreSQLite:
		if cfg.DBPath != ":memory:" {
			// os.MkdirAll is `mkdir -p`: the data directory may not exist yet.
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqlitestore.New(cfg.DBPath)

	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /auth/login     → 302 to GitHub
// GET    /auth/callback  → token → identity → collaborator → session → 302 /uploader
// POST   /auth/logout    → drop session, 303 /auth/login
// GET    /uploader       → protected resource (RequireSession)
// GET    /healthz        → session store ping
// GET    /metrics        → Prometheus
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for log correlation)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Instrument: request metrics
// 5. Recoverer: catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(m.Instrument)
	s.router.Use(chimiddleware.Recoverer)

	// DEPENDENCY CHAIN:
	//   GitHubProvider + store → AuthService → AuthHandler
	//   AuthService → RequireSession (session lookups)
	github := auth.NewGitHubProvider(auth.ProviderConfig{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		CallbackURL:  s.config.CallbackURL,
		Scope:        s.config.Scope,
		OAuthURL:     s.config.GitHubOAuthURL,
		APIURL:       s.config.GitHubAPIURL,
		Timeout:      s.config.UpstreamTimeout,
		HTTPClient:   &http.Client{Timeout: s.config.UpstreamTimeout},
	})

	authService := service.NewAuthService(github, s.store, s.config.Repo, m, s.logger)
	authHandler := handler.NewAuthHandler(github, authService, s.config.CookieSecure, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.HandleLogin)
		r.Get("/callback", authHandler.HandleCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.With(auth.RequireSession(authService, s.logger)).Get(handler.UploaderPath, handler.HandleUploader)

	s.router.Get("/healthz", handler.HandleHealth(s.store, s.logger))
	s.router.Method(http.MethodGet, "/metrics", m.Handler())
}

// Handler returns the router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the session store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the session store
//
// main.go cancels ctx on SIGINT/SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	defer s.store.Close()

	// WriteTimeout has to cover a whole callback: three GitHub calls plus
	// two store writes.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3*s.config.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("repo", s.config.Repo),
			slog.String("session_store", s.config.SessionStore),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
