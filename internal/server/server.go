// Package server exposes a read-only HTTP view of a jobs directory.
//
// It serves job lifecycle states derived from the on-disk
// .running/.log/.error artifacts; it never schedules or mutates jobs.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pipeforge/jobmon/pkg/jobmonitor"
)

// Server is the status HTTP server.
type Server struct {
	host    string
	port    int
	jobsDir string
	logExt  string
	logger  *zap.Logger

	httpServer *http.Server
}

// Options configures a Server.
type Options struct {
	Host      string
	Port      int
	JobsDir   string
	LogExt    string
	RateLimit float64
	Logger    *zap.Logger
}

// New builds a Server with its routes registered.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LogExt == "" {
		opts.LogExt = jobmonitor.DefaultLogExt
	}
	s := &Server{
		host:    opts.Host,
		port:    opts.Port,
		jobsDir: opts.JobsDir,
		logExt:  opts.LogExt,
		logger:  opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(opts.Logger))
	if opts.RateLimit > 0 {
		r.Use(rateLimiter(opts.RateLimit))
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/jobs", s.handleJobs)
		r.Get("/jobs/{name}", s.handleJob)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.httpServer.Addr }

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	jobs, err := jobmonitor.ScanDir(s.jobsDir, s.logExt)
	if err != nil {
		s.logger.Error("scan jobs dir", zap.String("dir", s.jobsDir), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("scan jobs directory failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	jobs, err := jobmonitor.ScanDir(s.jobsDir, s.logExt)
	if err != nil {
		s.logger.Error("scan jobs dir", zap.String("dir", s.jobsDir), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("scan jobs directory failed"))
		return
	}
	for _, j := range jobs {
		if j.Name == name {
			writeJSON(w, http.StatusOK, j)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorBody(fmt.Sprintf("job not found: %s", name)))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
