package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Server owns the listener lifecycle: blocking serve on one side, a
// context-bounded drain on the other.
type Server struct {
	inner *http.Server
}

// NewServer builds the HTTP server around the router. An idle timeout is
// always set so keep-alive connections cannot pin a draining server.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		inner: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  time.Minute,
		},
	}
}

// Start serves until Shutdown is called or the listener fails. A clean
// shutdown is not an error.
func (s *Server) Start() error {
	log.Printf("http server listening on %s", s.inner.Addr)

	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", s.inner.Addr, err)
	}

	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests
// up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("http server draining connections")

	if err := s.inner.Shutdown(ctx); err != nil {
		return fmt.Errorf("drain http server: %w", err)
	}

	log.Println("http server stopped")
	return nil
}
