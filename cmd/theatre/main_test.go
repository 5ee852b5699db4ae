package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/theatre-core/internal/htpc"
	"github.com/nerrad567/theatre-core/internal/infrastructure/config"
	"github.com/nerrad567/theatre-core/internal/infrastructure/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// ─── run ──────────────────────────────────────────────────────────

func TestRun_MissingConfig(t *testing.T) {
	t.Setenv("THEATRE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("run() = %v, want config load error", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("THEATRE_CONFIG", writeConfig(t, `
htpc:
  mode: sideways
`))

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "htpc.mode") {
		t.Fatalf("run() = %v, want htpc.mode validation error", err)
	}
}

func TestRun_DatabaseUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("THEATRE_CONFIG", writeConfig(t, `
database:
  path: "`+filepath.Join(blocker, "theatre.db")+`"
logging:
  level: error
  output: stderr
`))

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "opening database") {
		t.Fatalf("run() = %v, want database error", err)
	}
}

// ─── migrate ──────────────────────────────────────────────────────

func TestRunMigrate_UpDownStatus(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "`+filepath.Join(t.TempDir(), "theatre.db")+`"
`)
	ctx := context.Background()

	var out bytes.Buffer
	if err := runMigrate(ctx, []string{"-config", path}, &out); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "20260301_120000") || !strings.Contains(out.String(), "pending") {
		t.Errorf("fresh database status = %q, want pending migration", out.String())
	}

	out.Reset()
	if err := runMigrate(ctx, []string{"-config", path, "up"}, &out); err != nil {
		t.Fatalf("up: %v", err)
	}
	if !strings.Contains(out.String(), "applied") || strings.Contains(out.String(), "pending") {
		t.Errorf("status after up = %q", out.String())
	}

	out.Reset()
	if err := runMigrate(ctx, []string{"-config", path, "down"}, &out); err != nil {
		t.Fatalf("down: %v", err)
	}
	if !strings.Contains(out.String(), "pending") {
		t.Errorf("status after down = %q", out.String())
	}
}

func TestRunMigrate_UnknownAction(t *testing.T) {
	var out bytes.Buffer
	err := runMigrate(context.Background(), []string{"-config", "/nonexistent.yaml", "sideways"}, &out)
	if err == nil || !strings.Contains(err.Error(), "unknown migrate action") {
		t.Fatalf("runMigrate() = %v, want unknown action error", err)
	}
}

// ─── getConfigPath ────────────────────────────────────────────────

func TestGetConfigPath(t *testing.T) {
	t.Setenv("THEATRE_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("THEATRE_CONFIG", "/etc/theatre/config.yaml")
	if got := getConfigPath(); got != "/etc/theatre/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

// ─── buildServices ────────────────────────────────────────────────

func TestBuildServices_Disabled(t *testing.T) {
	cfg := &config.Config{HTPC: config.HTPCConfig{Mode: config.HTPCModeDisabled}}

	s, err := buildServices(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("buildServices() error = %v", err)
	}
	if s.poller != nil || s.movies != nil || s.htpc != nil {
		t.Errorf("expected no optional services, got %+v", s)
	}
}

func TestBuildServices_AllEnabled(t *testing.T) {
	cfg := &config.Config{
		MediaCenter: config.MediaCenterConfig{Enabled: true, URL: "http://mc.local:52199", PollInterval: time.Second},
		MovieDB:     config.MovieDBConfig{Enabled: true, APIKey: "key"},
		HTPC:        config.HTPCConfig{Mode: config.HTPCModeRemote, URL: "http://htpc.local:8000"},
	}

	s, err := buildServices(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("buildServices() error = %v", err)
	}
	if s.poller == nil {
		t.Error("poller should be created")
	}
	if s.movies == nil {
		t.Error("movie client should be created")
	}
	if _, ok := s.htpc.(*htpc.Remote); !ok {
		t.Errorf("htpc = %T, want *htpc.Remote", s.htpc)
	}
}

func TestBuildServices_LocalHTPC(t *testing.T) {
	cfg := &config.Config{HTPC: config.HTPCConfig{
		Mode:           config.HTPCModeLocal,
		Profile2D:      config.CommandConfig{Binary: "/usr/bin/displayswitch", Args: []string{"2d"}},
		Profile3D:      config.CommandConfig{Binary: "/usr/bin/displayswitch", Args: []string{"3d"}},
		CommandTimeout: 10 * time.Second,
	}}

	s, err := buildServices(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("buildServices() error = %v", err)
	}
	if _, ok := s.htpc.(*htpc.Local); !ok {
		t.Errorf("htpc = %T, want *htpc.Local", s.htpc)
	}
}

func TestBuildServices_MovieDBWithoutKey(t *testing.T) {
	cfg := &config.Config{MovieDB: config.MovieDBConfig{Enabled: true}}

	if _, err := buildServices(cfg, logging.Discard()); err == nil {
		t.Error("buildServices() should fail without an API key")
	}
}

func TestProfileCommand(t *testing.T) {
	cmd := profileCommand(
		config.CommandConfig{Binary: "/opt/profile", Args: []string{"--mode", "3d"}},
		config.HTPCConfig{CommandTimeout: 7 * time.Second},
	)
	if cmd.Binary != "/opt/profile" || len(cmd.Args) != 2 || cmd.Timeout != 7*time.Second {
		t.Errorf("profileCommand() = %+v", cmd)
	}
}
