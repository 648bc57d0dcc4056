package api

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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/provider"
	"github.com/seantiz/frontier/internal/store"
	"github.com/seantiz/frontier/internal/sweep"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
)

// ProviderLister lists the configured providers.
type ProviderLister interface {
	List() []provider.ProviderInfo
}

// Server wraps the chi router and application dependencies.
type Server struct {
	router      *chi.Mux
	store       store.Store
	scheduler   *sweep.Scheduler
	providers   ProviderLister
	leaderboard *store.LeaderboardCache
	logger      *slog.Logger
	addr        string
}

// NewServer creates and configures a new HTTP server.
func NewServer(addr string, s store.Store, sched *sweep.Scheduler, providers ProviderLister, lb *store.LeaderboardCache, logger *slog.Logger) *Server {
	srv := &Server{
		router:      chi.NewRouter(),
		store:       s,
		scheduler:   sched,
		providers:   providers,
		leaderboard: lb,
		logger:      logger,
		addr:        addr,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Get("/v1/providers", s.handleListProviders)
	s.router.Get("/v1/leaderboard", s.handleLeaderboard)
	s.router.Get("/v1/records/*", s.handleGetRecord)

	s.router.Route("/v1/models", func(r chi.Router) {
		r.Get("/", s.handleListModels)
		r.Post("/", s.handleCreateModel)
		r.Get("/{id}", s.handleGetModel)
		r.Delete("/{id}", s.handleDeleteModel)
	})

	s.router.Route("/v1/sweeps", func(r chi.Router) {
		r.Post("/", s.handleLaunchSweep)
		r.Get("/", s.handleListSweeps)
		r.Get("/{id}", s.handleGetSweep)
		r.With(streamMetrics).Get("/{id}/events", s.handleStreamSweep)
		r.Get("/{id}/records", s.handleListSweepRecords)
		r.Post("/{id}/pause", s.handleControl(model.ActionPause))
		r.Post("/{id}/resume", s.handleControl(model.ActionResume))
		r.Post("/{id}/cancel", s.handleControl(model.ActionCancel))
	})
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := s.scheduler.Shutdown(ctx); err != nil {
		s.logger.Warn("sweeps still running at shutdown", "error", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
