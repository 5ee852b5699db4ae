package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	// outputLimit caps the captured stdout/stderr of one command.
	outputLimit = 4096

	defaultTimeout     = 30 * time.Second
	defaultGracePeriod = 2 * time.Second

	// waitDelayMargin lets the group SIGKILL land before exec gives up on
	// the output pipes.
	waitDelayMargin = time.Second
)

var (
	// ErrNoBinary is returned when a Command has no Binary.
	ErrNoBinary = errors.New("process: binary required")

	// ErrTimeout is returned when a command outlives its timeout.
	ErrTimeout = errors.New("process: timed out")
)

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Name     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with status %d", e.Name, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Name, e.ExitCode, e.Stderr)
}

// Command is one invocation.
type Command struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string

	// Timeout bounds the run. Defaults to 30s.
	Timeout time.Duration

	// GracePeriod is how long to wait after SIGTERM before SIGKILL.
	// Defaults to 2s.
	GracePeriod time.Duration
}

// Result describes a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Logger defines the logging interface for the runner.
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

// Runner executes commands. It is safe for concurrent use.
type Runner struct {
	logger Logger
}

// NewRunner creates a Runner. A nil logger discards output.
func NewRunner(logger Logger) *Runner {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Runner{logger: logger}
}

// Run starts cmd and waits for it to exit.
//
// When ctx is cancelled or the timeout expires, the process group gets
// SIGTERM and, after the grace period, SIGKILL. Once the leader is gone the
// group is killed again so no child outlives the command.
//
// Returns:
//   - Result: exit code, captured output and duration, also on failure
//   - error: ErrNoBinary, a start failure, ErrTimeout, ctx.Err() or *ExitError
func (r *Runner) Run(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Binary == "" {
		return Result{}, ErrNoBinary
	}
	name := cmd.Name
	if name == "" {
		name = cmd.Binary
	}
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	grace := cmd.GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, cmd.Binary, cmd.Args...) //nolint:gosec // binary comes from operator configuration
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Negative pid signals the whole group created via Setpgid.
	killGroup := func() { _ = syscall.Kill(-c.Process.Pid, syscall.SIGKILL) }
	var (
		killMu    sync.Mutex
		killTimer *time.Timer
	)
	c.Cancel = func() error {
		killMu.Lock()
		killTimer = time.AfterFunc(grace, killGroup)
		killMu.Unlock()
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace + waitDelayMargin
	if cmd.Env != nil {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.WorkDir != "" {
		c.Dir = cmd.WorkDir
	}

	stdout := &limitedBuffer{limit: outputLimit}
	stderr := &limitedBuffer{limit: outputLimit}
	c.Stdout = stdout
	c.Stderr = stderr

	r.logger.Debug("running command", "name", name, "binary", cmd.Binary, "args", cmd.Args)
	start := time.Now()
	err := c.Run()

	killMu.Lock()
	if killTimer != nil {
		killTimer.Stop()
		killGroup()
	}
	killMu.Unlock()

	res := Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	switch {
	case err == nil:
		r.logger.Info("command completed", "name", name, "duration", res.Duration)
		return res, nil
	case ctx.Err() != nil:
		return res, fmt.Errorf("%s: %w", name, ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		r.logger.Warn("command timed out", "name", name, "timeout", timeout)
		return res, fmt.Errorf("%w: %s after %s", ErrTimeout, name, timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		e := &ExitError{Name: name, ExitCode: res.ExitCode, Stderr: strings.TrimSpace(res.Stderr)}
		r.logger.Warn("command failed", "name", name, "exit_code", res.ExitCode, "stderr", e.Stderr)
		return res, e
	}
	return res, fmt.Errorf("starting %s: %w", name, err)
}

// limitedBuffer keeps the first limit bytes written and discards the rest.
type limitedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		b.buf.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
