// Package server exposes the service over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/dyike/ValueArena/internal/ledger"
	"github.com/dyike/ValueArena/internal/service"
	"github.com/dyike/ValueArena/internal/trading"
	"github.com/dyike/ValueArena/models"
)

// Backend is the service as the handlers use it.
type Backend interface {
	Portfolio(ctx context.Context, id string) (*models.Ledger, error)
	Portfolios(ctx context.Context) ([]*models.Ledger, error)
	RunDaily(ctx context.Context, ids ...string) ([]trading.AgentStatus, error)
	Leaderboard(ctx context.Context) ([]ledger.Performance, error)
	TradeHistory(ctx context.Context, params service.HistoryParams) (*service.HistoryPage, error)
	SystemInfo() map[string]any
}

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	Backend Backend
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	backend Backend
	port    int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		backend: cfg.Backend,
		port:    cfg.Port,
	}

	s.setupMiddleware()
	s.setupRoutes()

	// run_daily holds the request open for the whole cycle
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/portfolios", s.handlePortfolios)
		r.Get("/portfolio", s.handlePortfolio)
		r.Get("/run_daily", s.handleRunDaily)
		r.Post("/run_daily", s.handleRunDaily)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/trades", s.handleTrades)
		r.Get("/system/status", s.handleSystemStatus)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found", r.URL.Path)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", r.Method+" "+r.URL.Path)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// recoverer answers a panicking handler with a JSON 500 and no stack trace.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				s.writeError(w, http.StatusInternalServerError, "internal error", fmt.Sprint(rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
