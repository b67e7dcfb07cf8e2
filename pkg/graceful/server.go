// Package graceful serves the operational HTTP endpoints and shuts them down cleanly.
package graceful

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/onramp/pkg/logger"
)

const defaultShutdownTimeout = 5 * time.Second

// Server wraps http.Server with graceful shutdown capabilities.
type Server struct {
	httpServer      *http.Server
	log             *slog.Logger
	shutdownTimeout time.Duration
}

// NewServer constructs a graceful server wrapper.
func NewServer(log *slog.Logger, srv *http.Server, shutdownTimeout time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	return &Server{
		httpServer:      srv,
		log:             log,
		shutdownTimeout: shutdownTimeout,
	}
}

// NewOpsServer serves Prometheus metrics on /metrics and health on /healthz.
func NewOpsServer(log *slog.Logger, addr string, health http.Handler, shutdownTimeout time.Duration) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if health != nil {
		mux.Handle("/healthz", health)
	}

	return NewServer(log, &http.Server{
		Addr:              addr,
		Handler:           logger.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}, shutdownTimeout)
}

// Handler exposes the server's handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	if s.httpServer == nil {
		return http.NotFoundHandler()
	}

	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when ctx is canceled.
// It returns early with the listen error if the server cannot start.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("http server listening", slog.String("addr", s.httpServer.Addr))

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", slog.Any("error", err))
		}

		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancelShutdown()

	s.log.Info("shutting down http server", slog.Duration("timeout", s.shutdownTimeout))

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("http server shutdown error", slog.Any("error", err))
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
