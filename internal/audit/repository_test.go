package audit

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/infrastructure/database"
	"github.com/nerrad567/theatre-core/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "audit.db"), WALMode: true})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

// ─── Repository ─────────────────────────────────────────────────────

func TestRecordAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	execs := []*Execution{
		{CycleID: "c1", Event: "display_mode_changed", Source: "lumagen", Rule: "display/hdr", State: true, Success: true, Duration: 1500 * time.Microsecond, ExecutedAt: base},
		{CycleID: "c1", Event: "display_mode_changed", Source: "lumagen", Rule: "display/fit-width", State: "240", Success: false, Error: "device: unavailable", ExecutedAt: base.Add(time.Millisecond)},
		{CycleID: "c2", Event: "audio_decoder_changed", Source: "trinnov", Rule: "audio/codec", Success: true, ExecutedAt: base.Add(time.Second)},
	}
	if err := repo.Record(ctx, execs...); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	for _, e := range execs {
		if e.ID == "" {
			t.Error("Record() should assign IDs")
		}
	}

	got, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got.Total != 3 || len(got.Executions) != 3 {
		t.Fatalf("total %d, len %d, want 3", got.Total, len(got.Executions))
	}
	if got.Executions[0].Rule != "audio/codec" {
		t.Errorf("newest = %s, want audio/codec", got.Executions[0].Rule)
	}
	if got.Limit != defaultLimit {
		t.Errorf("limit = %d, want %d", got.Limit, defaultLimit)
	}

	hdr := got.Executions[2]
	if hdr.State != true {
		t.Errorf("state = %#v, want true", hdr.State)
	}
	if hdr.Duration != 1500*time.Microsecond {
		t.Errorf("duration = %s", hdr.Duration)
	}
	if !hdr.ExecutedAt.Equal(base) {
		t.Errorf("executed_at = %s, want %s", hdr.ExecutedAt, base)
	}

	fit := got.Executions[1]
	if fit.Success || fit.Error != "device: unavailable" {
		t.Errorf("failed execution = %+v", fit)
	}
}

func TestList_Filters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	var execs []*Execution
	for i, rule := range []string{"display/hdr", "display/3d", "audio/codec", "display/hdr"} {
		execs = append(execs, &Execution{
			CycleID:    "c",
			Event:      "e",
			Source:     "s",
			Rule:       rule,
			Success:    i != 1,
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	if err := repo.Record(ctx, execs...); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"exact rule", Filter{Rule: "display/hdr"}, 2},
		{"scope", Filter{Rule: "display/"}, 3},
		{"failed only", Filter{FailedOnly: true}, 1},
		{"since", Filter{Since: base.Add(2 * time.Minute)}, 2},
		{"no match", Filter{Rule: "playback/"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if got.Total != tt.want || len(got.Executions) != tt.want {
				t.Errorf("total %d, len %d, want %d", got.Total, len(got.Executions), tt.want)
			}
		})
	}

	t.Run("pagination", func(t *testing.T) {
		got, err := repo.List(ctx, Filter{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if got.Total != 4 || len(got.Executions) != 1 {
			t.Fatalf("total %d, len %d", got.Total, len(got.Executions))
		}
		if got.Executions[0].Rule != "audio/codec" {
			t.Errorf("second newest = %s, want audio/codec", got.Executions[0].Rule)
		}
	})

	t.Run("limit clamped", func(t *testing.T) {
		got, err := repo.List(ctx, Filter{Limit: 10_000, Offset: -5})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if got.Limit != maxLimit || got.Offset != 0 {
			t.Errorf("limit %d offset %d", got.Limit, got.Offset)
		}
	})
}

func TestRecord_Empty(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Record(context.Background()); err != nil {
		t.Errorf("Record() with nothing = %v", err)
	}
}

// ─── Recorder ───────────────────────────────────────────────────────

type fakeRepo struct {
	mu      sync.Mutex
	batches [][]*Execution
	err     error
	ctxErr  error
}

func (f *fakeRepo) Record(ctx context.Context, execs ...*Execution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErr = ctx.Err()
	f.batches = append(f.batches, execs)
	return f.err
}

func (f *fakeRepo) List(context.Context, Filter) (*ListResult, error) {
	return &ListResult{}, nil
}

type warnLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *warnLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

type namedSource struct{ id string }

func (s namedSource) DeviceID() string { return s.id }

type stringSource struct{}

func (stringSource) String() string { return "media-center-poller" }

func TestRecorder_WritesOneRowPerAction(t *testing.T) {
	repo := &fakeRepo{}
	rec := NewRecorder(repo, nil)
	started := time.Now()

	rec.CycleCompleted(context.Background(), controller.Cycle{
		Source:    namedSource{id: "lumagen"},
		EventName: "display_mode_changed",
		Results: []controller.ActionResult{
			{Rule: "display/hdr", State: true, Started: started, Duration: time.Millisecond},
			{Rule: "display/3d", State: false, Started: started, Err: errors.New("boom")},
		},
	})

	if len(repo.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(repo.batches))
	}
	batch := repo.batches[0]
	if len(batch) != 2 {
		t.Fatalf("executions = %d, want 2", len(batch))
	}
	if batch[0].CycleID == "" || batch[0].CycleID != batch[1].CycleID {
		t.Errorf("cycle IDs = %q, %q, want one shared ID", batch[0].CycleID, batch[1].CycleID)
	}
	if batch[0].Source != "lumagen" || batch[0].Event != "display_mode_changed" {
		t.Errorf("first = %+v", batch[0])
	}
	if !batch[0].Success || batch[1].Success || batch[1].Error != "boom" {
		t.Errorf("success flags = %v/%v error %q", batch[0].Success, batch[1].Success, batch[1].Error)
	}
}

func TestRecorder_SkipsCyclesWithoutActions(t *testing.T) {
	repo := &fakeRepo{}
	NewRecorder(repo, nil).CycleCompleted(context.Background(), controller.Cycle{EventName: "unrecognized"})
	if len(repo.batches) != 0 {
		t.Errorf("batches = %d, want 0", len(repo.batches))
	}
}

func TestRecorder_SurvivesCancelledContext(t *testing.T) {
	repo := &fakeRepo{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewRecorder(repo, nil).CycleCompleted(ctx, controller.Cycle{
		Results: []controller.ActionResult{{Rule: "playback/stopped"}},
	})
	if repo.ctxErr != nil {
		t.Errorf("record context error = %v, want live context", repo.ctxErr)
	}
}

func TestRecorder_LogsFailures(t *testing.T) {
	repo := &fakeRepo{err: errors.New("disk full")}
	logger := &warnLogger{}

	NewRecorder(repo, logger).CycleCompleted(context.Background(), controller.Cycle{
		Results: []controller.ActionResult{{Rule: "audio/codec"}},
	})
	if len(logger.msgs) != 1 {
		t.Errorf("warnings = %v, want 1", logger.msgs)
	}
}

func TestSourceName(t *testing.T) {
	tests := []struct {
		source any
		want   string
	}{
		{nil, "unknown"},
		{namedSource{id: "trinnov"}, "trinnov"},
		{stringSource{}, "media-center-poller"},
		{42, "int"},
	}
	for _, tt := range tests {
		if got := SourceName(tt.source); got != tt.want {
			t.Errorf("SourceName(%v) = %q, want %q", tt.source, got, tt.want)
		}
	}
}
