package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/device"
)

// Measurements.
const (
	measurementEvents      = "theatre_events"
	measurementActions     = "rule_actions"
	measurementDisplayMode = "display_mode"
	measurementAudio       = "audio_decoder"
	measurementPlayback    = "playback"
)

// PointWriter queues points for writing. *Client implements it.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time)
}

// Observer turns dispatcher cycles into telemetry points. It implements
// controller.Observer.
type Observer struct {
	w      PointWriter
	source func(any) string
}

// NewObserver returns an Observer writing to w. sourceName labels event
// sources; nil uses the Go type.
func NewObserver(w PointWriter, sourceName func(any) string) *Observer {
	if sourceName == nil {
		sourceName = func(s any) string { return fmt.Sprintf("%T", s) }
	}
	return &Observer{w: w, source: sourceName}
}

// CycleCompleted writes the cycle summary, one point per action and, for
// state-carrying events, a snapshot of the new state.
func (o *Observer) CycleCompleted(_ context.Context, cycle controller.Cycle) {
	source := o.source(cycle.Source)
	at := cycle.Started

	o.w.WritePoint(measurementEvents,
		map[string]string{"event": cycle.EventName, "source": source},
		map[string]any{
			"duration_ms": millis(cycle.Duration),
			"actions":     len(cycle.Results),
			"failed":      cycle.Failed(),
		},
		at,
	)

	for _, res := range cycle.Results {
		result := "success"
		if res.Err != nil {
			result = "failure"
		}
		scope, _, _ := strings.Cut(res.Rule, "/")
		o.w.WritePoint(measurementActions,
			map[string]string{"rule": res.Rule, "scope": scope, "result": result},
			map[string]any{"duration_ms": millis(res.Duration)},
			res.Started,
		)
	}

	switch ev := cycle.Event.(type) {
	case device.DisplayModeChanged:
		m := ev.Mode
		o.w.WritePoint(measurementDisplayMode,
			map[string]string{"source": source},
			map[string]any{
				"resolution":      m.SourceResolution,
				"vertical_rate":   m.SourceVerticalRate,
				"dynamic_range":   string(m.SourceDynamicRange),
				"3d_mode":         string(m.Source3DMode),
				"detected_aspect": m.DetectedAspectRatio,
				"output_aspect":   m.OutputAspectRatio,
			},
			at,
		)
	case device.AudioDecoderChanged:
		o.w.WritePoint(measurementAudio,
			map[string]string{"source": source},
			map[string]any{"decoder": ev.Decoder, "upmixer": ev.Upmixer},
			at,
		)
	case device.PlaybackInfoChanged:
		info := ev.Info
		fields := map[string]any{
			"state":    info.State,
			"file_key": info.FileKey,
			"name":     info.Name,
		}
		if pos, err := strconv.ParseInt(info.PositionMS, 10, 64); err == nil {
			fields["position_ms"] = pos
		}
		o.w.WritePoint(measurementPlayback, map[string]string{"zone": info.ZoneID}, fields, at)
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

var _ controller.Observer = (*Observer)(nil)
