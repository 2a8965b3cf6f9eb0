// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server exposes collected metrics over HTTP.
type Server struct {
	server *http.Server
	logger logrus.FieldLogger
}

// StartServer starts serving /metrics of the gatherer on addr in background.
func StartServer(addr string, gatherer prometheus.Gatherer, logger logrus.FieldLogger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s := &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.WithField("addr", addr),
	}

	go func() {
		s.logger.Info("starting metrics server")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("metrics server stopped")
		}
	}()

	return s
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
