// Package web exposes the optional admin listener: Prometheus metrics
// plus a liveness probe. Long-running scans are observable without
// attaching a debugger.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"yoyaktube/internal/infra/metrics"
)

type AdminServer struct {
	server *http.Server
	log    *zerolog.Logger
}

func NewAdminServer(port int, log *zerolog.Logger) *AdminServer {
	metrics.MustRegister()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &AdminServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start blocks until the listener stops. Run it in a goroutine.
func (s *AdminServer) Start() error {
	if s.log != nil {
		s.log.Info().Str("addr", s.server.Addr).Msg("admin listener started")
	}
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
