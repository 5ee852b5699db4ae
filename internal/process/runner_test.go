package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunner_RequiresBinary(t *testing.T) {
	if _, err := NewRunner(nil).Run(context.Background(), Command{}); !errors.Is(err, ErrNoBinary) {
		t.Errorf("Run() error = %v, want ErrNoBinary", err)
	}
}

func TestRunner_Success(t *testing.T) {
	requireShell(t)
	res, err := NewRunner(nil).Run(context.Background(), Command{
		Name:   "echo",
		Binary: "sh",
		Args:   []string{"-c", "echo loaded $PROFILE"},
		Env:    []string{"PROFILE=3d"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "loaded 3d" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}

func TestRunner_ExitCode(t *testing.T) {
	requireShell(t)
	res, err := NewRunner(nil).Run(context.Background(), Command{
		Name:   "fail",
		Binary: "sh",
		Args:   []string{"-c", "echo no display >&2; exit 3"},
	})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run() error = %v, want *ExitError", err)
	}
	if exitErr.ExitCode != 3 || res.ExitCode != 3 {
		t.Errorf("exit code = %d/%d, want 3", exitErr.ExitCode, res.ExitCode)
	}
	if exitErr.Stderr != "no display" {
		t.Errorf("Stderr = %q", exitErr.Stderr)
	}
	if !strings.Contains(err.Error(), "fail exited with status 3") {
		t.Errorf("Error() = %q", err)
	}
}

func TestRunner_Timeout(t *testing.T) {
	requireShell(t)
	start := time.Now()
	_, err := NewRunner(nil).Run(context.Background(), Command{
		Binary:      "sh",
		Args:        []string{"-c", "sleep 10"},
		Timeout:     50 * time.Millisecond,
		GracePeriod: 100 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run() took %v after timeout", elapsed)
	}
}

// alive reports whether pid is a running (not zombie) process.
func alive(pid int) bool {
	stat, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return false
	}
	// The state follows the parenthesised command name.
	fields := strings.Fields(string(stat[strings.LastIndexByte(string(stat), ')')+1:]))
	return len(fields) > 0 && fields[0] != "Z"
}

func TestRunner_TimeoutKillsProcessGroup(t *testing.T) {
	requireShell(t)
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("procfs not available")
	}
	pidFile := filepath.Join(t.TempDir(), "child.pid")

	// The shell and its child both ignore SIGTERM, so only the group
	// SIGKILL after the grace period can stop them.
	start := time.Now()
	_, err := NewRunner(nil).Run(context.Background(), Command{
		Binary:      "sh",
		Args:        []string{"-c", `trap "" TERM; sleep 30 & echo $! > "$1"; wait`, "sh", pidFile},
		Timeout:     200 * time.Millisecond,
		GracePeriod: 100 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run() took %v", elapsed)
	}

	raw, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("reading child pid: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		t.Fatalf("child pid %q: %v", raw, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for alive(pid) {
		if time.Now().After(deadline) {
			t.Fatalf("child %d still running after the group was killed", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRunner_ContextCancelled(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := NewRunner(nil).Run(ctx, Command{Binary: "sh", Args: []string{"-c", "sleep 10"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunner_MissingBinary(t *testing.T) {
	_, err := NewRunner(nil).Run(context.Background(), Command{Binary: "/nonexistent/binary"})
	if err == nil {
		t.Fatal("expected start error")
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		t.Errorf("start failure reported as exit error: %v", err)
	}
}

func TestLimitedBuffer(t *testing.T) {
	b := &limitedBuffer{limit: 5}
	n, err := b.Write([]byte("abc"))
	if n != 3 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	n, _ = b.Write([]byte("defgh"))
	if n != 5 {
		t.Errorf("Write() = %d, want full length reported", n)
	}
	if b.String() != "abcde" {
		t.Errorf("String() = %q, want abcde", b.String())
	}
}
