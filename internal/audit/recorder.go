package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/theatre-core/internal/controller"
)

const recordTimeout = 2 * time.Second

// Logger is the logging interface used by Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder journals every executed action of a cycle. It implements
// controller.Observer.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder returns a Recorder writing to repo. A nil logger discards
// write failures.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, logger: logger}
}

// CycleCompleted writes the cycle's actions. Write failures are logged and
// never reach the dispatcher.
func (r *Recorder) CycleCompleted(ctx context.Context, cycle controller.Cycle) {
	if len(cycle.Results) == 0 {
		return
	}

	cycleID := uuid.NewString()
	source := SourceName(cycle.Source)
	execs := make([]*Execution, 0, len(cycle.Results))
	for _, res := range cycle.Results {
		e := &Execution{
			CycleID:    cycleID,
			Event:      cycle.EventName,
			Source:     source,
			Rule:       res.Rule,
			State:      res.State,
			Success:    res.Err == nil,
			Duration:   res.Duration,
			ExecutedAt: res.Started,
		}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		execs = append(execs, e)
	}

	// The journal must survive the shutdown drain, when ctx is cancelled.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := r.repo.Record(wctx, execs...); err != nil {
		r.logger.Warn("recording rule executions failed", "event", cycle.EventName, "actions", len(execs), "error", err)
	}
}

// SourceName names an event source for the journal: its device ID if it
// has one, its String method if not, and its Go type otherwise.
func SourceName(source any) string {
	switch s := source.(type) {
	case nil:
		return "unknown"
	case interface{ DeviceID() string }:
		return s.DeviceID()
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%T", source)
	}
}

var _ controller.Observer = (*Recorder)(nil)
