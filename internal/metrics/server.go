package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the registry over HTTP alongside a health endpoint.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

// NewServer builds the metrics HTTP server. path is where the Prometheus
// handler is mounted, e.g. "/metrics".
func NewServer(reg *Registry, listen, path string, log *zap.Logger) *Server {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	var handler http.Handler = mux
	handler = HTTPMiddleware(reg)(handler)
	handler = LoggingMiddleware(log)(handler)

	return &Server{
		srv: &http.Server{
			Addr:              listen,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start() error {
	s.log.Info("metrics server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
