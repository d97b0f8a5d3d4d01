package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/analytics-supervisor/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HTTP timeouts applied to every server.
const (
	readTimeout  = 15 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 60 * time.Second
)

// Deps holds the dependencies required by a Server.
type Deps struct {
	// Name labels logs and metrics, e.g. "ingest" or "alerts".
	Name string

	Host string
	Port int

	Logger *logging.Logger

	// Routes mounts the server's handlers.
	Routes func(r chi.Router)

	// Metrics exposes the Prometheus registry on GET /metrics.
	Metrics bool

	// Version is reported on GET /health.
	Version string

	// Checks are the dependencies GET /health reports on, by name.
	// The server's own HealthCheck is always included.
	Checks map[string]HealthChecker
}

// Server is one of the supervisor's HTTP listeners.
//
// It owns the listener, the shared middleware stack and graceful shutdown;
// the routes come from the component that created it.
type Server struct {
	name    string
	addr    string
	logger  *logging.Logger
	routes  func(r chi.Router)
	metrics bool
	version string
	checks  map[string]HealthChecker

	server   *http.Server
	listener net.Listener
}

// New creates a new server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Routes == nil {
		return nil, fmt.Errorf("routes are required")
	}
	name := deps.Name
	if name == "" {
		name = "http"
	}

	return &Server{
		name:    name,
		addr:    net.JoinHostPort(deps.Host, fmt.Sprintf("%d", deps.Port)),
		logger:  deps.Logger.With("component", name),
		routes:  deps.Routes,
		metrics: deps.Metrics,
		version: deps.Version,
		checks:  deps.Checks,
	}, nil
}

// Start binds the listener and serves in a background goroutine.
//
// Binding happens before Start returns, so a port already in use is
// reported here rather than only logged.
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%s server listen on %s: %w", s.name, s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	s.logger.Info("HTTP server starting", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Close gracefully shuts down the server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s == nil || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down %s server: %w", s.name, err)
	}
	return nil
}

// HealthCheck verifies the server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s health check: %w", s.name, ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("%s server not started", s.name)
	}
	return nil
}
