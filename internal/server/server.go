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

	"github.com/Tecnocrat/aios-quantum-sub000/internal/config"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/database/repositories"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/budget"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/heartbeat"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/surface"
)

// Config holds server configuration
type Config struct {
	Port      int
	Log       zerolog.Logger
	Config    *config.Config
	DevMode   bool
	Runs      *repositories.RunRepository
	Surface   *surface.Service
	Ledger    *budget.Ledger
	Heartbeat *heartbeat.Service
	Stream    *StreamHub
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    *config.Config

	runs      *repositories.RunRepository
	surface   *surface.Service
	ledger    *budget.Ledger
	heartbeat *heartbeat.Service
	stream    *StreamHub
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		runs:      cfg.Runs,
		surface:   cfg.Surface,
		ledger:    cfg.Ledger,
		heartbeat: cfg.Heartbeat,
		stream:    cfg.Stream,
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

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			// Timeout applies to plain request/response routes only; the
			// stream below stays open for the life of the subscriber.
			r.Use(middleware.Timeout(60 * time.Second))

			// System
			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.handleSystemStatus)
			})

			// Heartbeat runs
			r.Route("/heartbeat", func(r chi.Router) {
				r.Get("/latest", s.handleLatestRun)
				r.Get("/runs", s.handleListRuns)
				r.Post("/beat", s.handleTriggerBeat)
			})

			// Reconstructed surface
			r.Get("/surface", s.handleSurface)

			// Metric trends
			r.Get("/metrics/trends", s.handleTrends)

			// Budget ledger
			r.Get("/budget", s.handleBudget)
		})

		// Live beat stream
		r.Get("/stream", s.handleStream)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
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
