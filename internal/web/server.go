// Package web wires the chi router and HTTP server around the handler set.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/anshuman365/gofusion/internal/auth"
	"github.com/anshuman365/gofusion/internal/cache"
	"github.com/anshuman365/gofusion/internal/database"
	"github.com/anshuman365/gofusion/internal/web/handlers"
	"github.com/anshuman365/gofusion/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	db          *database.DB
	port        int
	bind        string
	router      *chi.Mux
	authService *auth.Service
	sessions    *cache.Cache
	handlers    *handlers.Handlers
}

// NewServer creates a new web server
func NewServer(db *database.DB, authService *auth.Service, port int, bind string) *Server {
	sessions := cache.New()
	s := &Server{
		db:          db,
		port:        port,
		bind:        bind,
		router:      chi.NewRouter(),
		authService: authService,
		sessions:    sessions,
		handlers:    handlers.New(db, authService, sessions),
	}

	s.setupRoutes()
	return s
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Get("/health", s.handlers.Health)
		r.Post("/auth/login", s.handlers.Login)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(s.authService, s.sessions))

			r.Post("/auth/logout", s.handlers.Logout)
			r.Get("/auth/me", s.handlers.Me)

			r.Route("/kv/{key}", func(r chi.Router) {
				r.Get("/", s.handlers.GetKV)
				r.Put("/", s.handlers.PutKV)
				r.Delete("/", s.handlers.DeleteKV)
			})

			r.Get("/audit", s.handlers.RecentAudit)
		})
	})
}

// Start runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	var addr string
	if s.bind != "" {
		addr = fmt.Sprintf("%s:%d", s.bind, s.port)
	} else {
		addr = fmt.Sprintf(":%d", s.port)
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}
