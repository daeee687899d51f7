// Package server wires handlers, middleware, and routes together and owns
// the HTTP server lifecycle. It is the composition root: main.go builds
// the storage layer and the user index, and everything downstream of those
// is assembled in New.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/topnews/internal/auth"
	"github.com/sakif/topnews/internal/directory"
	"github.com/sakif/topnews/internal/handler"
	"github.com/sakif/topnews/internal/middleware"
	"github.com/sakif/topnews/internal/repository"
	"github.com/sakif/topnews/internal/service"
)

// Config holds everything the server needs that comes from the
// environment. Provider credentials may be left empty; a provider with no
// client id simply isn't registered and its login route 404s into the
// catch-all redirect.
type Config struct {
	Port        int
	TemplateDir string
	StaticDir   string

	SessionSecret string
	SessionTTL    time.Duration

	TwitterClientID     string
	TwitterClientSecret string
	TwitterCallbackURL  string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
}

// New assembles the full dependency chain:
//
//	store/creds (built in main) → IdentityService → handlers → routes
//
// The index must already be populated from the directory store; New never
// touches the store itself.
func New(
	cfg Config,
	logger *slog.Logger,
	index *directory.Index,
	store repository.UserDirectory,
	creds repository.CredentialStore,
) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}

	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	identity := service.NewIdentityService(index, store, creds, auth.NewPasswordService(), logger)

	providers := s.buildProviders()

	if err := s.setupRoutes(tokens, identity, providers); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// buildProviders registers every OAuth provider that has credentials
// configured.
func (s *Server) buildProviders() *auth.Registry {
	var list []auth.Provider

	if s.config.TwitterClientID != "" && s.config.TwitterClientSecret != "" {
		list = append(list, auth.NewTwitterProvider(
			s.config.TwitterClientID,
			s.config.TwitterClientSecret,
			s.config.TwitterCallbackURL,
		))
	} else {
		s.logger.Warn("twitter credentials not set — twitter login disabled")
	}

	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		list = append(list, auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		))
	} else {
		s.logger.Warn("github credentials not set — github login disabled")
	}

	return auth.NewRegistry(list...)
}

// setupRoutes configures middleware and all route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /                          → front page (HTML)
//	GET  /static/*                  → static files
//	GET  /login                     → login page (HTML)
//	POST /login                     → local password login
//	POST /register                  → local account registration
//	GET  /login/{provider}          → start OAuth flow
//	GET  /login/{provider}/callback → finish OAuth flow
//	GET  /logout                    → clear session, redirect /
//	GET  /user/{userid}             → public user record (JSON)
//	GET  /api/me                    → current user (JSON, auth required)
//	GET  /news/{newsid}             → news item page (HTML)
//	GET  /about/changelog           → changelog page (HTML)
//	*                               → redirect /
func (s *Server) setupRoutes(
	tokens *auth.TokenService,
	identity *service.IdentityService,
	providers *auth.Registry,
) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	pages, err := handler.NewPagesHandler(s.config.TemplateDir, identity, providers, s.logger)
	if err != nil {
		return fmt.Errorf("creating pages handler: %w", err)
	}
	authHandler := handler.NewAuthHandler(providers, identity, tokens, s.logger)
	userHandler := handler.NewUserHandler(identity, s.logger)

	// HTML pages: OptionalAuth so logged-in visitors see their own name,
	// anonymous visitors still get the page.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/", pages.HandleIndex)
		r.Get("/login", pages.HandleLoginPage)
		r.Get("/news/{newsid}", pages.HandleNewsPage)
		r.Get("/about/changelog", pages.HandleChangelog)
	})

	s.router.Get("/login/{provider}", authHandler.HandleProviderLogin)
	s.router.Get("/login/{provider}/callback", authHandler.HandleProviderCallback)
	s.router.Post("/login", authHandler.HandlePasswordLogin)
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Get("/logout", authHandler.HandleLogout)

	s.router.Get("/user/{userid}", userHandler.HandleGetUser)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/me", userHandler.HandleMe)
	})

	// Anything unmatched goes home instead of 404ing.
	s.router.NotFound(pages.HandleNotFound)

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully, giving in-flight requests 30 seconds to complete.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
