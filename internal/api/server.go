package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/tahcohcat/xpboard/config"
	"github.com/tahcohcat/xpboard/internal/logger"
)

// Server runs the HTTP listener as a supervised service.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	log             *logger.Log
}

// NewServer wraps handler with CORS for the configured origins.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Server{
		srv: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           c.Handler(handler),
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: timeout,
		log:             logger.Named("http"),
	}
}

func (s *Server) String() string {
	return "http-server"
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// Serve listens until ctx is cancelled, then drains in-flight requests
// within the shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.With("addr", s.srv.Addr).Info("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}
