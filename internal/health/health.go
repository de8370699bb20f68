// Package health provides the liveness and readiness endpoints.
//
// Docker and Kubernetes use these endpoints to monitor the service.
// /healthz answers 200 while the process is up. /readyz answers 200 once
// the service is marked ready and every registered check passes.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
}

// Report is the body of /healthz and /readyz.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port   int
	ready  atomic.Bool
	mu     sync.RWMutex
	checks []check
	server *http.Server
}

// New creates a new health check server.
func New(port int) *Server {
	return &Server{port: port}
}

// SetReady marks the service as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// AddCheck registers a named readiness check.
func (s *Server) AddCheck(name string, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, check{name: name, fn: fn})
}

// Readiness runs every check and reports the combined result.
func (s *Server) Readiness(ctx context.Context) (Report, bool) {
	s.mu.RLock()
	checks := append([]check(nil), s.checks...)
	s.mu.RUnlock()

	ok := s.ready.Load()
	rep := Report{Checks: make(map[string]string, len(checks))}
	for _, c := range checks {
		if err := c.fn(ctx); err != nil {
			rep.Checks[c.name] = err.Error()
			ok = false
			continue
		}
		rep.Checks[c.name] = "ok"
	}
	rep.Status = "ok"
	if !ok {
		rep.Status = "not_ready"
	}
	return rep, ok
}

// Handler returns the health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeReport(w, http.StatusOK, Report{Status: "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		rep, ok := s.Readiness(ctx)
		if !ok {
			writeReport(w, http.StatusServiceUnavailable, rep)
			return
		}
		writeReport(w, http.StatusOK, rep)
	})

	return mux
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func writeReport(w http.ResponseWriter, status int, rep Report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rep)
}
