// Package server provides the HTTP server and routing for the advisor.
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

	"github.com/aristath/advisor/internal/config"
	"github.com/aristath/advisor/internal/marketdata"
	"github.com/aristath/advisor/internal/modules/allocation"
	allocationhandlers "github.com/aristath/advisor/internal/modules/allocation/handlers"
	"github.com/aristath/advisor/internal/modules/analysis"
	analysishandlers "github.com/aristath/advisor/internal/modules/analysis/handlers"
	riskhandlers "github.com/aristath/advisor/internal/modules/risk/handlers"
	"github.com/aristath/advisor/internal/modules/universe"
	universehandlers "github.com/aristath/advisor/internal/modules/universe/handlers"
)

// Config wires the server's collaborators.
type Config struct {
	Cfg        *config.Config
	Allocation *allocation.Service
	Snapshots  *universe.SnapshotService
	Prices     marketdata.PriceHistoryProvider
	Analyzer   *analysis.Analyzer
	Log        zerolog.Logger
}

// Server is the advisor HTTP server.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	cfg     *config.Config
	started time.Time
	log     zerolog.Logger
}

// New builds the router, middleware and routes.
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg.Cfg,
		started: time.Now(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Router exposes the mux, primarily for tests.
func (s *Server) Router() *chi.Mux { return s.router }

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

func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		allocationhandlers.NewHandler(cfg.Allocation, s.log).RegisterRoutes(r)
		riskhandlers.NewHandler(s.log).RegisterRoutes(r)
		universehandlers.NewHandler(cfg.Snapshots, s.log).RegisterRoutes(r)
		analysishandlers.NewHandler(cfg.Prices, cfg.Analyzer, s.cfg.LookbackDays, s.log).RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus(cfg.Snapshots))
		})
	})
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

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
