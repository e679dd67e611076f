// Package server wires the HTTP router, middleware and route definitions.
//
// It is the composition root: adapters are picked from config in Open, the
// services and handlers are assembled in New, and Start runs the listener
// until SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/devdate/internal/auth"
	"github.com/sakif/devdate/internal/config"
	"github.com/sakif/devdate/internal/github"
	"github.com/sakif/devdate/internal/handler"
	"github.com/sakif/devdate/internal/middleware"
	"github.com/sakif/devdate/internal/repository"
	sqliteRepo "github.com/sakif/devdate/internal/repository/sqlite"
	"github.com/sakif/devdate/internal/repository/supabase"
	"github.com/sakif/devdate/internal/service"
)

const (
	apiPrefix       = "/api/v1"
	shutdownTimeout = 30 * time.Second
	limiterCleanup  = 5 * time.Minute
)

// Deps are the external adapters the server is built on.
type Deps struct {
	Identity auth.IdentityProvider
	Profiles repository.ProfileRepository
	CodeHost service.CodeHost

	// Closer releases the profile store, if it holds resources. Optional.
	Closer io.Closer
}

// Open builds the production adapters described by cfg.
func Open(cfg *config.Config, logger *slog.Logger) (Deps, error) {
	deps := Deps{
		Identity: auth.NewSupabaseProvider(auth.SupabaseOptions{
			URL:        cfg.Supabase.URL,
			AnonKey:    cfg.Supabase.Key,
			ServiceKey: cfg.Supabase.ServiceKey,
			Timeout:    cfg.Auth.Timeout,
		}, logger),
		CodeHost: github.NewClient(github.Options{
			APIURL:  cfg.GitHub.APIURL,
			Token:   cfg.GitHub.Token,
			Timeout: cfg.GitHub.Timeout,
		}, logger),
	}

	switch cfg.Store.Driver {
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
			return Deps{}, fmt.Errorf("creating database directory: %w", err)
		}
		db, err := sqliteRepo.New(cfg.Store.SQLitePath)
		if err != nil {
			return Deps{}, fmt.Errorf("opening database: %w", err)
		}
		deps.Profiles = db
		deps.Closer = db
	default:
		deps.Profiles = supabase.New(supabase.Options{
			URL:     cfg.Supabase.URL,
			APIKey:  cfg.Supabase.Key,
			Timeout: cfg.Auth.Timeout,
		}, logger)
	}

	return deps, nil
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	deps    Deps
	limiter *middleware.RateLimiter
}

// New assembles services and handlers on top of deps and registers routes.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		deps:   deps,
	}
	if rpm := cfg.RateLimit.RequestsPerMinute; rpm > 0 {
		s.limiter = middleware.NewRateLimiter(rpm, logger)
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// GET  /                              root banner
// GET  /health                        store connectivity
// GET  /metrics                       Prometheus exposition
// POST /api/v1/auth/github            sign-in URL
// POST /api/v1/auth/callback          code exchange
// POST /api/v1/auth/refresh           session refresh
// GET  /api/v1/auth/me                [bearer]
// POST /api/v1/auth/logout            [bearer]
// GET  /api/v1/profiles               discover
// GET  /api/v1/profiles/me            [bearer]
// PUT  /api/v1/profiles/me            [bearer]
// POST /api/v1/profiles/me/enrich     [bearer]
// GET  /api/v1/profiles/{username}    public profile
//
// MIDDLEWARE ORDER MATTERS:
// Middleware runs in registration order on the way in and in reverse on the
// way out:
//
//	req → RequestID → RealIP → Logger → Recoverer → Metrics → CORS → RateLimit → Handler
//
// RequestID comes first so the logger can print it. Recoverer sits inside
// Logger, so a panicking request is still logged with its 500.
//
// DEPENDENCY INJECTION FLOW:
//
//	Deps (adapters) → Enricher → AuthService / ProfileService → handlers → router
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Metrics)
	s.router.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	if s.limiter != nil {
		s.router.Use(s.limiter.Handler)
	}

	enricher := service.NewEnricher(s.deps.CodeHost, s.deps.Profiles)
	authService := service.NewAuthService(s.deps.Identity, s.deps.Profiles, enricher, s.logger)
	profileService := service.NewProfileService(s.deps.Profiles, enricher, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, s.logger)
	healthHandler := handler.NewHealthHandler(s.deps.Profiles)

	requireAuth := auth.RequireAuth(s.deps.Identity, s.logger)

	s.router.Get("/", healthHandler.HandleRoot)
	s.router.Get("/health", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route(apiPrefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/github", authHandler.HandleGitHubURL)
			r.Post("/callback", authHandler.HandleCallback)
			r.Post("/refresh", authHandler.HandleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.HandleMe)
				r.Post("/logout", authHandler.HandleLogout)
			})
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", profileHandler.HandleDiscover)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", profileHandler.HandleGetMe)
				r.Put("/me", profileHandler.HandleUpdateMe)
				r.Post("/me/enrich", profileHandler.HandleEnrich)
			})

			r.Get("/{username}", profileHandler.HandleGetByUsername)
		})
	})
}

// Start runs the HTTP server until a shutdown signal, then drains in-flight
// requests and releases the store.
func (s *Server) Start() error {
	if s.deps.Closer != nil {
		defer s.deps.Closer.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if s.limiter != nil {
		s.limiter.StartCleanup(ctx, limiterCleanup)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("mode", s.config.Server.Mode),
			slog.String("store", s.config.Store.Driver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
