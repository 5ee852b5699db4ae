package theatre

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/device"
)

// Status is a point-in-time view of the controller for the status API.
type Status struct {
	State           string                      `json:"state"`
	QueueLength     int                         `json:"queue_length"`
	EventsProcessed uint64                      `json:"events_processed"`
	ActionsExecuted uint64                      `json:"actions_executed"`
	ActionsFailed   uint64                      `json:"actions_failed"`
	LastEventAt     *time.Time                  `json:"last_event_at,omitempty"`
	LastRule        string                      `json:"last_rule,omitempty"`
	DisplayMode     *device.DisplayMode         `json:"display_mode,omitempty"`
	AudioDecoder    *device.AudioDecoderChanged `json:"audio_decoder,omitempty"`
	Selection       string                      `json:"selection,omitempty"`
	Playback        *device.PlaybackInfo        `json:"playback,omitempty"`

	// Display is a live reading added by the status API; DisplayError
	// replaces it when the display could not be read.
	Display      *device.DisplayReport `json:"display,omitempty"`
	DisplayError string                `json:"display_error,omitempty"`
}

// statusTracker records the latest payload of each event kind and cycle
// counters. Writes come from the dispatcher goroutine, reads from the API.
type statusTracker struct {
	mu     sync.RWMutex
	status Status
}

func (s *statusTracker) record(ev device.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := ev.(type) {
	case device.DisplayModeChanged:
		mode := ev.Mode
		s.status.DisplayMode = &mode
	case device.AudioDecoderChanged:
		s.status.AudioDecoder = &ev
	case device.HighlightedSelectionChanged:
		s.status.Selection = ev.SelectionID
	case device.PlaybackInfoChanged:
		info := ev.Info
		s.status.Playback = &info
	}
}

// CycleCompleted implements controller.Observer.
func (s *statusTracker) CycleCompleted(_ context.Context, c controller.Cycle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.EventsProcessed++
	started := c.Started
	s.status.LastEventAt = &started
	for _, r := range c.Results {
		s.status.ActionsExecuted++
		if r.Err != nil {
			s.status.ActionsFailed++
		}
		s.status.LastRule = r.Rule
	}
}

func (s *statusTracker) snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
