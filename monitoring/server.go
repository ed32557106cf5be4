// Package monitoring exposes the state of the simulated driver over HTTP:
// a health check, Prometheus-format metrics, and a JSON state dump.
package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bdunix/tinyserial/config"
	"github.com/bdunix/tinyserial/serial"
	"github.com/bdunix/tinyserial/uart"
)

// Status is what the handlers report on.
type Status struct {
	Port       uart.State   `json:"port"`
	RxOverflow uint64       `json:"rx_overflow"`
	Sink       serial.Stats `json:"sink"`
	SinkDevice string       `json:"sink_device,omitempty"`
}

// StatusProvider supplies a point-in-time Status.
type StatusProvider interface {
	Status() Status
}

// Server provides the HTTP monitoring endpoints.
type Server struct {
	config   *config.MonitoringConfig
	provider StatusProvider
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a monitoring server.
func NewServer(cfg *config.MonitoringConfig, instanceID, version string, provider StatusProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.Handle("/health", NewHealthHandler(instanceID, version, provider))
	mux.Handle("/metrics", NewMetricsHandler(provider))
	mux.Handle("/api/state", NewStateHandler(provider))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "tinyserial monitoring")
		fmt.Fprintln(w, "  /health     - health check")
		fmt.Fprintln(w, "  /metrics    - Prometheus metrics")
		fmt.Fprintln(w, "  /api/state  - driver state")
	})

	return &Server{
		config:   cfg,
		provider: provider,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start starts serving in the background.
func (s *Server) Start() error {
	s.logger.Info("Starting monitoring server", "port", s.config.Port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Monitoring server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully stops the monitoring server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping monitoring server")
	return s.server.Shutdown(ctx)
}
