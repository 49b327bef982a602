// Package server provides the HTTP API for the dashboard: accounts,
// portfolios, run history, performance, and system status.
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

	"github.com/mmorris35/council/internal/database"
	"github.com/mmorris35/council/internal/modules/accounts"
	"github.com/mmorris35/council/internal/modules/agent"
	"github.com/mmorris35/council/internal/modules/analytics"
	"github.com/mmorris35/council/internal/modules/portfolio"
	"github.com/mmorris35/council/internal/modules/runs"
	"github.com/mmorris35/council/internal/modules/strategy"
	"github.com/mmorris35/council/internal/modules/trading"
)

// Config holds server configuration
type Config struct {
	Port    int
	DevMode bool

	Accounts     *accounts.Repository
	Portfolios   *portfolio.Repository
	Runs         *runs.RunRepository
	Transactions *trading.TransactionRepository
	Analytics    *analytics.Service
	Orchestrator *agent.Orchestrator
	Policies     []strategy.Policy
	Databases    []*database.DB

	Log zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    Config
	start  time.Time
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		start:  time.Now(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Route("/{accountID}", func(r chi.Router) {
				r.Put("/alerts", s.handleSetAlerts)
				r.Get("/portfolios", s.handleAccountPortfolios)
				r.Get("/runs", s.handleAccountRuns)
				r.Get("/performance", s.handleAccountPerformance)
			})
		})

		r.Get("/personas", s.handleListPersonas)
		r.Get("/transactions/recent", s.handleRecentTransactions)
		r.Post("/cycle/run", s.handleRunCycle)
	})
}

// loggingMiddleware logs each request with timing.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(started)).
			Msg("request")
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
