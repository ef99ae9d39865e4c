package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start runs the HTTP server until an interrupt or terminate signal, then
// shuts down gracefully.
func (s *Server) Start() {
	addr := s.Cfg.GetAddr()
	go func() {
		slog.Info("Starting server", "addr", addr)
		if err := s.E.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

// Shutdown stops accepting requests, then the modules, the sockets and the
// bus. In development the identity state is written to the snapshot.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.E.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, m := range s.modules {
		if err := m.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.cancel()
	s.bridge.Close()

	if s.backend.Dev != nil && s.Cfg.GetDevSnapshot() != "" {
		if err := s.backend.Dev.Snapshot(ctx, s.store, s.Cfg.GetDevSnapshot()); err != nil {
			errs = append(errs, err)
		} else {
			slog.Info("Wrote development identity snapshot", "path", s.Cfg.GetDevSnapshot())
		}
	}

	if err := s.bus.Close(); err != nil {
		errs = append(errs, err)
	}
	s.tracing.Flush()
	return errors.Join(errs...)
}
