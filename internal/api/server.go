package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"clapper/internal/config"
	"clapper/internal/deps"
	"clapper/internal/logging"
	"clapper/internal/queue"
	"clapper/internal/worker"
)

// JobReader is the read-only slice of the queue store the API needs.
type JobReader interface {
	GetByID(ctx context.Context, id string) (*queue.Job, error)
	List(ctx context.Context, limit int) ([]*queue.Job, error)
	HealthSummary(ctx context.Context) (queue.HealthSummary, error)
	Ping(ctx context.Context) error
}

// StatusSource supplies a point-in-time daemon snapshot.
type StatusSource interface {
	Status() worker.Status
}

// Server exposes daemon status and queue visibility over local HTTP.
type Server struct {
	cfg    *config.Config
	jobs   JobReader
	status StatusSource
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer builds the status API around the queue store and daemon snapshot.
// A nil config or empty bind address disables the server.
func NewServer(cfg *config.Config, jobs JobReader, status StatusSource, logger *slog.Logger) *Server {
	if cfg == nil || strings.TrimSpace(cfg.API.Bind) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &Server{
		cfg:    cfg,
		jobs:   jobs,
		status: status,
		logger: logging.NewComponentLogger(logger, "api"),
	}

	router := chi.NewRouter()
	router.Get("/healthz", srv.handleHealth)
	router.Route("/api", func(r chi.Router) {
		r.Use(bearerAuth(cfg.API.Token))
		r.Get("/status", srv.handleStatus)
		r.Get("/jobs", srv.handleJobs)
		r.Get("/jobs/{id}", srv.handleJob)
	})

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start binds the listener and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.cfg.API.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api shutdown incomplete", logging.Error(err))
	}
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Ping(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "store unreachable"})
		return
	}
	summary, err := s.jobs.HealthSummary(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, healthFromSummary(summary))
}

func healthFromSummary(summary queue.HealthSummary) HealthResponse {
	return HealthResponse{
		Status:     "ok",
		Total:      summary.Total,
		Queued:     summary.Queued,
		Processing: summary.Processing,
		Complete:   summary.Complete,
		Failed:     summary.Failed,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	payload := StatusResponse{
		Dependencies: deps.CheckBinaries(deps.Requirements(s.cfg)),
	}
	if s.status != nil {
		payload.Worker = s.status.Status()
	}
	if summary, err := s.jobs.HealthSummary(r.Context()); err == nil {
		payload.Queue = healthFromSummary(summary)
	} else {
		payload.Queue = HealthResponse{Status: "store unreachable"}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	jobs, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	s.writeJSON(w, http.StatusOK, JobsResponse{Jobs: views})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.jobs.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, FromJob(job))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("api response encode failed", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
