package htpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/theatre-core/internal/process"
)

// ─── Remote ─────────────────────────────────────────────────────────

func TestNewRemote_RequiresURL(t *testing.T) {
	if _, err := NewRemote("", nil, nil); !errors.Is(err, ErrNoURL) {
		t.Errorf("NewRemote() error = %v, want ErrNoURL", err)
	}
}

func TestRemote_Switches(t *testing.T) {
	var mu sync.Mutex
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r, err := NewRemote(srv.URL+"/", nil, nil)
	if err != nil {
		t.Fatalf("NewRemote() error = %v", err)
	}
	ctx := context.Background()
	if err := r.Go3D(ctx); err != nil {
		t.Fatalf("Go3D() error = %v", err)
	}
	if err := r.Go2D(ctx); err != nil {
		t.Fatalf("Go2D() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(got, ",") != "POST /Go3D,POST /Go2D" {
		t.Errorf("requests = %v", got)
	}
}

func TestRemote_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "display not ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r, _ := NewRemote(srv.URL, nil, nil)
	err := r.Go2D(context.Background())
	if !errors.Is(err, ErrSwitchFailed) {
		t.Fatalf("Go2D() error = %v, want ErrSwitchFailed", err)
	}
	if !strings.Contains(err.Error(), "display not ready") {
		t.Errorf("error = %q, want response body", err)
	}
}

// ─── Local ──────────────────────────────────────────────────────────

type mockRunner struct {
	ran []string
	err error
}

func (m *mockRunner) Run(_ context.Context, cmd process.Command) (process.Result, error) {
	m.ran = append(m.ran, cmd.Name+":"+cmd.Binary+" "+strings.Join(cmd.Args, " "))
	return process.Result{}, m.err
}

func TestNewLocal_RequiresProfiles(t *testing.T) {
	_, err := NewLocal(&mockRunner{}, process.Command{Binary: "a"}, process.Command{})
	if !errors.Is(err, ErrNoProfile) {
		t.Errorf("NewLocal() error = %v, want ErrNoProfile", err)
	}
}

func TestLocal_RunsProfiles(t *testing.T) {
	runner := &mockRunner{}
	l, err := NewLocal(runner,
		process.Command{Binary: "nvprofile", Args: []string{"surround-4k.cfg"}},
		process.Command{Name: "three-d", Binary: "nvprofile", Args: []string{"individual-3d.cfg"}},
	)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	ctx := context.Background()
	if err := l.Go2D(ctx); err != nil {
		t.Fatalf("Go2D() error = %v", err)
	}
	if err := l.Go3D(ctx); err != nil {
		t.Fatalf("Go3D() error = %v", err)
	}

	want := "htpc-profile-2d:nvprofile surround-4k.cfg,three-d:nvprofile individual-3d.cfg"
	if strings.Join(runner.ran, ",") != want {
		t.Errorf("ran = %v, want %s", runner.ran, want)
	}
}

func TestLocal_PropagatesFailure(t *testing.T) {
	runner := &mockRunner{err: &process.ExitError{Name: "htpc-profile-3d", ExitCode: 2}}
	l, _ := NewLocal(runner, process.Command{Binary: "a"}, process.Command{Binary: "b"})

	err := l.Go3D(context.Background())
	var exitErr *process.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode != 2 {
		t.Errorf("Go3D() error = %v, want wrapped ExitError", err)
	}
}
