package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes /healthz and /metrics for one pipeline process.
type Server struct {
	server  *http.Server
	service string
	started time.Time
	log     *slog.Logger
}

// NewServer builds the operational HTTP server.
func NewServer(service string, port int, log *slog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		service: service,
		started: time.Now(),
		log:     log,
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Run starts the server in the background. It implements the service
// lifecycle contract.
func (s *Server) Run(ctx context.Context) (func(context.Context) error, error) {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("ops server failed", "error", err)
		}
	}()

	cleanup := func(ctx context.Context) error {
		return s.server.Shutdown(ctx)
	}
	return cleanup, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": s.service,
		"uptime":  time.Since(s.started).String(),
	})
}
