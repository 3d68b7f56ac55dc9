// Package server serves recorded simulation runs over HTTP: a small JSON
// API for listing runs and replaying their scheduler traces.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/tinykern/internal/config"
	"github.com/me/tinykern/internal/store"
)

// Server is the trace-viewer API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServeConfig
	startTime time.Time
	store     store.Store
}

// New creates a Server with all routes registered.
func New(cfg config.ServeConfig, st store.Store, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/events", s.handleListEvents)
		r.Get("/runs/{id}/threads", s.handleListThreadStats)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.config.Addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// logRequests logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

type healthResponse struct {
	Status    string `json:"status"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, healthResponse{
		Status:    "healthy",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context())
	if err != nil {
		s.logger.Error("list runs", "error", err)
		respondError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	respondOK(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.logger.Error("get run", "run_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run '"+id+"' not found")
		return
	}
	respondOK(w, run)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.logger.Error("get run", "run_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run '"+id+"' not found")
		return
	}

	events, err := s.store.ListEventsByRun(r.Context(), id)
	if err != nil {
		s.logger.Error("list events", "run_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "list events failed")
		return
	}
	respondOK(w, events)
}

func (s *Server) handleListThreadStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, err := s.store.ListThreadStats(r.Context(), id)
	if err != nil {
		s.logger.Error("list thread stats", "run_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "list thread stats failed")
		return
	}
	respondOK(w, stats)
}
