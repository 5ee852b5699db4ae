package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Config tunes restart behaviour. Zero fields take the defaults.
type Config struct {
	// FailureThreshold is how many recent failures trigger backoff. Default 5.
	FailureThreshold float64

	// FailureDecay halves the failure count every this many seconds. Default 30.
	FailureDecay float64

	// FailureBackoff is the pause once the threshold is passed. Default 15s.
	FailureBackoff time.Duration

	// ShutdownTimeout is how long a service gets to stop. Default 10s.
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.FailureDecay <= 0 {
		c.FailureDecay = 30
	}
	if c.FailureBackoff <= 0 {
		c.FailureBackoff = 15 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Tree is the controller's supervision tree.
type Tree struct {
	root    *suture.Supervisor
	core    *suture.Supervisor
	devices *suture.Supervisor
	api     *suture.Supervisor
}

// New builds an empty tree logging supervisor events to logger.
func New(logger *slog.Logger, cfg Config) *Tree {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	spec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	rootSpec := spec
	rootSpec.EventHook = (&sutureslog.Handler{Logger: logger}).MustHook()

	// Branches take the root's event hook when added to it.
	t := &Tree{
		root:    suture.New("theatre", rootSpec),
		core:    suture.New("core", spec),
		devices: suture.New("devices", spec),
		api:     suture.New("api", spec),
	}
	t.root.Add(t.core)
	t.root.Add(t.devices)
	t.root.Add(t.api)
	return t
}

// AddCore adds a service to the core branch.
func (t *Tree) AddCore(svc suture.Service) suture.ServiceToken {
	return t.core.Add(svc)
}

// AddDevice adds an event-producing service, such as a poller.
func (t *Tree) AddDevice(svc suture.Service) suture.ServiceToken {
	return t.devices.Add(svc)
}

// AddAPI adds an HTTP service.
func (t *Tree) AddAPI(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is cancelled or a Terminal service exits.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// UnstoppedServiceReport lists services that ignored the shutdown timeout.
// It is meaningful after Serve has returned.
func (t *Tree) UnstoppedServiceReport() (suture.UnstoppedServiceReport, error) {
	return t.root.UnstoppedServiceReport()
}

// ErrServiceExited is wrapped in the error a Terminal service returns when
// its function returned without an error.
var ErrServiceExited = errors.New("supervisor: service exited")

// Terminal is a service that runs its function once. When the function
// returns, for any reason other than cancellation, the whole tree stops.
type Terminal struct {
	name string
	run  func(ctx context.Context) error
}

// NewTerminal wraps run as a Terminal service named name.
func NewTerminal(name string, run func(ctx context.Context) error) *Terminal {
	return &Terminal{name: name, run: run}
}

// Serve implements suture.Service.
func (s *Terminal) Serve(ctx context.Context) error {
	err := s.run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = ErrServiceExited
	}
	return fmt.Errorf("%w: %s: %w", suture.ErrTerminateSupervisorTree, s.name, err)
}

func (s *Terminal) String() string { return s.name }
