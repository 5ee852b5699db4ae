package htpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/theatre-core/internal/process"
)

const (
	defaultRemoteTimeout = 10 * time.Second
	maxErrorBody         = 256
)

var (
	// ErrNoURL is returned by NewRemote when no service address is configured.
	ErrNoURL = errors.New("htpc: url required")

	// ErrNoProfile is returned by NewLocal when a profile command is missing.
	ErrNoProfile = errors.New("htpc: profile command required")

	// ErrSwitchFailed is returned when the switcher service rejects a request.
	ErrSwitchFailed = errors.New("htpc: switch failed")
)

// Logger is the logging interface used by the switchers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Remote switches through the HTTP switcher service on the PC.
type Remote struct {
	baseURL string
	http    *http.Client
	logger  Logger
}

// NewRemote creates a Remote for the service at baseURL.
func NewRemote(baseURL string, client *http.Client, logger Logger) (*Remote, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, ErrNoURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeout}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Remote{baseURL: baseURL, http: client, logger: logger}, nil
}

// Go2D asks the PC to switch to its 2D setup.
func (r *Remote) Go2D(ctx context.Context) error { return r.post(ctx, "/Go2D") }

// Go3D asks the PC to switch to its 3D setup.
func (r *Remote) Go3D(ctx context.Context) error { return r.post(ctx, "/Go3D") }

func (r *Remote) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("htpc %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s returned %d: %s", ErrSwitchFailed, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	r.logger.Info("htpc switched", "path", path)
	return nil
}

// CommandRunner runs a helper command. *process.Runner implements it.
type CommandRunner interface {
	Run(ctx context.Context, cmd process.Command) (process.Result, error)
}

// Local switches by running one profile command per mode.
type Local struct {
	runner    CommandRunner
	profile2D process.Command
	profile3D process.Command
}

// NewLocal creates a Local switcher.
//
// Parameters:
//   - runner: Executes the profile commands
//   - profile2D, profile3D: Commands that load each setup; Binary is required
//
// Returns:
//   - *Local: ready for use
//   - error: ErrNoProfile if either command has no binary
func NewLocal(runner CommandRunner, profile2D, profile3D process.Command) (*Local, error) {
	if profile2D.Binary == "" || profile3D.Binary == "" {
		return nil, ErrNoProfile
	}
	if profile2D.Name == "" {
		profile2D.Name = "htpc-profile-2d"
	}
	if profile3D.Name == "" {
		profile3D.Name = "htpc-profile-3d"
	}
	return &Local{runner: runner, profile2D: profile2D, profile3D: profile3D}, nil
}

// Go2D runs the 2D profile command.
func (l *Local) Go2D(ctx context.Context) error { return l.run(ctx, l.profile2D) }

// Go3D runs the 3D profile command.
func (l *Local) Go3D(ctx context.Context) error { return l.run(ctx, l.profile3D) }

func (l *Local) run(ctx context.Context, cmd process.Command) error {
	if _, err := l.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("htpc %s: %w", cmd.Name, err)
	}
	return nil
}
