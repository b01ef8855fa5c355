package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/observability"
)

// Start brings the server up: telemetry first, then routes, TLS and the
// listener with graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Start() error {
	om, err := observability.NewObservabilityManager(
		observability.GetObservabilityConfig(s.AppConfig, s.Version), s.AppConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			s.Logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	hs := s.newHTTPServer(om)

	vc, err := s.vaultClientForReload()
	if err != nil {
		return err
	}
	if err := s.configureTLS(hs, vc, om); err != nil {
		return err
	}

	s.displayServerInfo()

	return s.serve(hs)
}

// newHTTPServer assembles the routes and middleware into an http.Server.
func (s *Server) newHTTPServer(om *observability.ObservabilityManager) *http.Server {
	hs := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler: om.HTTPMiddleware()(s.routes(om)),
	}
	hs.ReadTimeout = s.ReadTimeout
	hs.WriteTimeout = s.WriteTimeout
	hs.IdleTimeout = s.IdleTimeout
	return hs
}

// serve runs the listener until a shutdown signal arrives or the listener
// fails.
func (s *Server) serve(server *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("HTTP server starting", "address", server.Addr, "tls_enabled", server.TLSConfig != nil)
		if err := s.listen(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http listener failed: %w", err)
	case sig := <-sigCh:
		s.Logger.Info("Shutdown signal received", "signal", sig.String())
		return s.shutdown(server)
	}
}

// listen picks the serving mode. With a certificate manager or inline PEM
// content the material already lives in the tls.Config, so the file
// arguments stay empty.
func (s *Server) listen(server *http.Server) error {
	if server.TLSConfig == nil {
		return server.ListenAndServe()
	}
	if s.CertManager != nil || s.TLSConfig.CertContent != "" || s.TLSConfig.KeyContent != "" {
		return server.ListenAndServeTLS("", "")
	}
	return server.ListenAndServeTLS(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
}

// shutdown stops the background watchers, then drains in-flight requests
// within the shutdown timeout.
func (s *Server) shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.CertManager != nil {
		if err := s.CertManager.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate manager")
		}
	}
	if lim := s.RateLimiter; lim != nil {
		lim.Close()
		s.Logger.Info("Rate limiter stopped")
	}

	s.Logger.Info("Draining in-flight requests")
	if err := server.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Graceful shutdown failed, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server stopped cleanly")
	return nil
}
