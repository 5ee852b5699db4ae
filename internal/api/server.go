package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/theatre-core/internal/audit"
	"github.com/nerrad567/theatre-core/internal/device"
	"github.com/nerrad567/theatre-core/internal/infrastructure/config"
	"github.com/nerrad567/theatre-core/internal/infrastructure/logging"
	"github.com/nerrad567/theatre-core/internal/theatre"
)

// gracefulShutdownTimeout bounds in-flight requests when Serve stops.
const gracefulShutdownTimeout = 10 * time.Second

// Controller is the part of the theatre controller the API drives.
type Controller interface {
	Status() theatre.Status
	DisplayReport(ctx context.Context) (device.DisplayReport, error)
	SetLightOutput(ctx context.Context, level device.LightOutput) error
}

// ExecutionLister reads the rule execution journal.
type ExecutionLister interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// HealthChecker is a dependency reported by the health route.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the server's collaborators.
type Deps struct {
	Config     config.APIConfig
	Logger     *logging.Logger
	Controller Controller

	// Executions serves the journal route. Optional; the route answers
	// 404 without it.
	Executions ExecutionLister

	// Metrics serves /metrics. Optional.
	Metrics http.Handler

	// Checks are reported by /health under their map key. Optional.
	Checks map[string]HealthChecker

	Version string
}

// Server is the status API.
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	controller Controller
	executions ExecutionLister
	metrics    http.Handler
	checks     map[string]HealthChecker
	version    string
	started    time.Time
	handler    http.Handler
}

// New builds the server and its router. Nothing listens until Serve.
//
// Parameters:
//   - deps: Collaborators; Logger and Controller are required
//
// Returns:
//   - *Server: Server ready to Serve
//   - error: If a required dependency is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("api: logger is required")
	}
	if deps.Controller == nil {
		return nil, errors.New("api: controller is required")
	}

	s := &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		controller: deps.Controller,
		executions: deps.Executions,
		metrics:    deps.Metrics,
		checks:     deps.Checks,
		version:    deps.Version,
		started:    time.Now(),
	}
	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Serve listens until ctx is cancelled, then waits up to ten seconds for
// in-flight requests. It returns ctx.Err() after a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.Addr(), err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := s.httpServer()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gracefulShutdownTimeout)
		defer cancel()

		s.logger.Info("API server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down API server: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String names the server in supervisor logs.
func (s *Server) String() string {
	return "api-server"
}

