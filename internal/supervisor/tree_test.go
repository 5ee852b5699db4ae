package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serveAsync(t *testing.T, tree *Tree, ctx context.Context) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- tree.Serve(ctx) }()
	return done
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
		return nil
	}
}

func TestTerminal_FailureStopsTree(t *testing.T) {
	tree := New(quietLogger(), Config{ShutdownTimeout: time.Second})
	cause := errors.New("video processor missing")

	var apiStopped atomic.Bool
	tree.AddCore(NewTerminal("controller", func(context.Context) error { return cause }))
	tree.AddAPI(newFuncService("api-server", func(ctx context.Context) error {
		<-ctx.Done()
		apiStopped.Store(true)
		return ctx.Err()
	}))

	err := waitErr(t, serveAsync(t, tree, context.Background()))
	if !errors.Is(err, suture.ErrTerminateSupervisorTree) {
		t.Errorf("Serve() = %v, want tree termination", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Serve() = %v, should carry the controller error", err)
	}
	if !apiStopped.Load() {
		t.Error("sibling services should be stopped")
	}
}

func TestTerminal_CleanExit(t *testing.T) {
	tree := New(quietLogger(), Config{})
	tree.AddCore(NewTerminal("controller", func(context.Context) error { return nil }))

	err := waitErr(t, serveAsync(t, tree, context.Background()))
	if !errors.Is(err, ErrServiceExited) {
		t.Errorf("Serve() = %v, want ErrServiceExited", err)
	}
}

func TestTerminal_Cancelled(t *testing.T) {
	term := NewTerminal("controller", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := term.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if term.String() != "controller" {
		t.Errorf("String() = %q", term.String())
	}
}

func TestDeviceService_RestartedAfterFailure(t *testing.T) {
	tree := New(quietLogger(), Config{FailureThreshold: 10, FailureBackoff: 10 * time.Millisecond})

	var starts atomic.Int32
	third := make(chan struct{})
	tree.AddDevice(newFuncService("media-center-poller", func(ctx context.Context) error {
		n := starts.Add(1)
		if n < 3 {
			return errors.New("media center unreachable")
		}
		if n == 3 {
			close(third)
		}
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(t, tree, ctx)

	select {
	case <-third:
	case <-time.After(5 * time.Second):
		t.Fatalf("service started %d times, want 3", starts.Load())
	}

	cancel()
	if err := waitErr(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport() error = %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services = %v", report)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	if cfg.FailureThreshold != 5 || cfg.FailureDecay != 30 ||
		cfg.FailureBackoff != 15*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
}

// funcService is a restartable service for exercising the tree.
type funcService struct {
	name string
	fn   func(ctx context.Context) error
}

func newFuncService(name string, fn func(ctx context.Context) error) *funcService {
	return &funcService{name: name, fn: fn}
}

func (f *funcService) Serve(ctx context.Context) error { return f.fn(ctx) }

func (f *funcService) String() string { return f.name }
