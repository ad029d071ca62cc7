package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	core "github.com/fleetops/fleet-analytics-core/internal/app/core/service"
)

// Server wraps the dashboard HTTP API in the lifecycle shape the system
// manager expects: Start binds the listener and serves in the background,
// Stop drains in-flight requests before returning.
type Server struct {
	addr   string
	server *http.Server
}

// NewServer returns a Server bound to addr, serving handler.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{addr: addr, server: &http.Server{Addr: addr, Handler: handler}}
}

func (s *Server) Name() string { return "http-api" }

// Descriptor advertises this server's placement to the system manager.
func (s *Server) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:   s.Name(),
		Domain: "fleet-telemetry",
		Layer:  core.LayerHTTP,
	}.WithCapabilities("dashboard", "actions", "health", "trucks")
}

func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server stopped unexpectedly: %v", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
