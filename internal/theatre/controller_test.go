package theatre

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/device"
)

// ─── Helpers ────────────────────────────────────────────────────────

func newTestController(t *testing.T, f *fixture) (*Controller, <-chan controller.Cycle) {
	t.Helper()
	cycles := make(chan controller.Cycle, 32)
	deps := f.deps()
	deps.Observer = controller.ObserverFunc(func(_ context.Context, c controller.Cycle) {
		cycles <- c
	})
	c, err := New(deps, Options{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, cycles
}

func startController(t *testing.T, c *Controller) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background()) }()
	select {
	case <-c.Ready():
	case err := <-errCh:
		t.Fatalf("Run() returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("controller not ready")
	}
	return errCh
}

func waitCycle(t *testing.T, cycles <-chan controller.Cycle) controller.Cycle {
	t.Helper()
	select {
	case c := <-cycles:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cycle")
		return controller.Cycle{}
	}
}

func stopController(t *testing.T, c *Controller, errCh <-chan error) error {
	t.Helper()
	c.Close()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after Close")
		return nil
	}
}

// ─── New ────────────────────────────────────────────────────────────

func TestNew_MissingDevice(t *testing.T) {
	tests := []struct {
		name  string
		strip func(*Deps)
	}{
		{"video processor", func(d *Deps) { d.VideoProcessor = nil }},
		{"display", func(d *Deps) { d.Display = nil }},
		{"audio processor", func(d *Deps) { d.AudioProcessor = nil }},
		{"media player", func(d *Deps) { d.MediaPlayer = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newFixture().deps()
			tt.strip(&deps)
			_, err := New(deps, Options{})
			if !errors.Is(err, ErrMissingDevice) {
				t.Errorf("New() error = %v, want ErrMissingDevice", err)
			}
		})
	}
}

func TestNew_OptionalDependencies(t *testing.T) {
	deps := newFixture().deps()
	deps.MediaCenter = nil
	deps.Movies = nil
	deps.HTPC = nil
	if _, err := New(deps, Options{}); err != nil {
		t.Fatalf("New() error = %v", err)
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────

func TestController_InitializeAndShutdown(t *testing.T) {
	f := newFixture()
	c, _ := newTestController(t, f)

	errCh := startController(t, c)
	if got := f.vp.subscribers() + f.audio.subscribers() + f.player.subscribers() + f.center.subscribers(); got != 4 {
		t.Errorf("subscribers = %d, want 4", got)
	}

	if err := stopController(t, c, errCh); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"audio.connect", "player.connect", "vp.request-mode",
		"audio.close", "player.close", "vp.close", "display.close",
	}
	if got := f.log.list(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if got := f.vp.subscribers() + f.audio.subscribers() + f.player.subscribers() + f.center.subscribers(); got != 0 {
		t.Errorf("subscribers after shutdown = %d, want 0", got)
	}
	if s := c.Status(); s.State != "terminated" {
		t.Errorf("State = %q, want terminated", s.State)
	}
}

func TestController_InitializeFailureReleasesDevices(t *testing.T) {
	f := newFixture()
	f.audio.connectErr = device.ErrUnavailable
	c, _ := newTestController(t, f)

	err := c.Run(context.Background())
	if !errors.Is(err, controller.ErrInitialize) || !errors.Is(err, device.ErrUnavailable) {
		t.Fatalf("Run() error = %v, want ErrInitialize wrapping ErrUnavailable", err)
	}

	calls := f.log.list()
	if slices.Contains(calls, "player.connect") {
		t.Error("media player connected after audio processor failed")
	}
	for _, closed := range []string{"audio.close", "player.close", "vp.close", "display.close"} {
		if !slices.Contains(calls, closed) {
			t.Errorf("missing %q in %v", closed, calls)
		}
	}
	if f.vp.subscribers() != 0 {
		t.Error("video processor listener still subscribed")
	}
}

// ─── Event routing ──────────────────────────────────────────────────

func TestController_DisplayModeFromInitialRequest(t *testing.T) {
	f := newFixture()
	f.vp.onRequest = func() {
		f.vp.emit(device.DisplayModeChanged{Mode: device.DisplayMode{
			PhysicalInput: device.InputMediaPlayer, SourceDynamicRange: device.DynamicRangeSDR,
			Source3DMode: device.Mode3DOff, DetectedAspectRatio: "240",
		}})
	}
	c, cycles := newTestController(t, f)
	errCh := startController(t, c)

	first := waitCycle(t, cycles)
	if first.EventName != device.EventDisplayModeChanged {
		t.Errorf("EventName = %q", first.EventName)
	}

	f.log.reset()
	f.vp.emit(device.DisplayModeChanged{Mode: device.DisplayMode{
		PhysicalInput: device.InputMediaPlayer, SourceDynamicRange: device.DynamicRangeHDR,
		Source3DMode: device.Mode3DOff, DetectedAspectRatio: "185",
	}})
	second := waitCycle(t, cycles)

	if err := stopController(t, c, errCh); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	calls := f.log.list()
	for _, want := range []string{"display.picture mode2", "vp.memory B"} {
		if !slices.Contains(calls, want) {
			t.Errorf("missing %q in %v", want, calls)
		}
	}

	var rules []string
	for _, r := range second.Results {
		rules = append(rules, r.Rule)
	}
	for _, want := range []string{"display/hdr", "display/fit-width", "display/apply-memory"} {
		if !slices.Contains(rules, want) {
			t.Errorf("missing rule %q in %v", want, rules)
		}
	}

	s := c.Status()
	if s.EventsProcessed != 2 {
		t.Errorf("EventsProcessed = %d, want 2", s.EventsProcessed)
	}
	if s.DisplayMode == nil || s.DisplayMode.DetectedAspectRatio != "185" {
		t.Errorf("DisplayMode = %+v", s.DisplayMode)
	}
}

func TestController_RoutesEachSource(t *testing.T) {
	f := newFixture()
	c, cycles := newTestController(t, f)
	errCh := startController(t, c)

	f.audio.emit(device.AudioDecoderChanged{Decoder: "DTS", Upmixer: "none"})
	f.player.emit(device.HighlightedSelectionChanged{SelectionID: "1"})
	f.center.emit(device.PlaybackInfoChanged{Info: device.PlaybackInfo{State: device.PlaybackStopped}})
	f.vp.emit(device.UnrecognizedEvent{Kind: "ZQI99"})

	var got []controller.Cycle
	for range 4 {
		got = append(got, waitCycle(t, cycles))
	}
	if err := stopController(t, c, errCh); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantNames := []string{
		device.EventAudioDecoderChanged,
		device.EventHighlightedSelectionChanged,
		device.EventPlaybackInfoChanged,
		device.EventUnrecognized,
	}
	for i, want := range wantNames {
		if got[i].EventName != want {
			t.Errorf("cycle %d EventName = %q, want %q", i, got[i].EventName, want)
		}
	}
	if !got[3].Unrecognized {
		t.Error("unrecognized event not flagged")
	}
	if got[0].Source != &f.audio.mockSource {
		t.Errorf("Source = %v, want audio processor", got[0].Source)
	}

	s := c.Status()
	if s.AudioDecoder == nil || s.AudioDecoder.Decoder != "DTS" {
		t.Errorf("AudioDecoder = %+v", s.AudioDecoder)
	}
	if s.Selection != "1" {
		t.Errorf("Selection = %q, want 1", s.Selection)
	}
	if s.Playback == nil || s.Playback.State != device.PlaybackStopped {
		t.Errorf("Playback = %+v", s.Playback)
	}
}

func TestController_RouteNilEvent(t *testing.T) {
	c, err := New(newFixture().deps(), Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.route(context.Background(), controller.NewRules(nil), nil, nil); !errors.Is(err, controller.ErrUnrecognizedEvent) {
		t.Errorf("route(nil) error = %v, want ErrUnrecognizedEvent", err)
	}
}

// ─── Light output ───────────────────────────────────────────────────

type reportingDisplay struct {
	*mockDisplay
	report device.DisplayReport
	err    error
}

func (d *reportingDisplay) Report(context.Context) (device.DisplayReport, error) {
	return d.report, d.err
}

func TestController_DisplayReport(t *testing.T) {
	t.Run("power only", func(t *testing.T) {
		f := newFixture()
		f.display.power = device.PowerStandby
		c, err := New(f.deps(), Options{})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		got, err := c.DisplayReport(context.Background())
		if err != nil {
			t.Fatalf("DisplayReport() error = %v", err)
		}
		if got != (device.DisplayReport{Power: device.PowerStandby}) {
			t.Errorf("DisplayReport() = %+v", got)
		}
	})

	t.Run("full report", func(t *testing.T) {
		f := newFixture()
		want := device.DisplayReport{
			Power:                 device.PowerOn,
			Input:                 device.InputHDMI2,
			Stereo:                device.Stereo3D,
			ControllerTemperature: 40,
			MaxModuleTemperature:  52.5,
		}
		deps := f.deps()
		deps.Display = &reportingDisplay{mockDisplay: f.display, report: want}
		c, err := New(deps, Options{})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		got, err := c.DisplayReport(context.Background())
		if err != nil || got != want {
			t.Errorf("DisplayReport() = %+v, %v; want %+v", got, err, want)
		}
	})

	t.Run("bridge down", func(t *testing.T) {
		f := newFixture()
		deps := f.deps()
		deps.Display = &reportingDisplay{mockDisplay: f.display, err: device.ErrTimeout}
		c, err := New(deps, Options{})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := c.DisplayReport(context.Background()); !errors.Is(err, device.ErrTimeout) {
			t.Errorf("DisplayReport() error = %v, want ErrTimeout", err)
		}
	})
}

func TestController_SetLightOutput(t *testing.T) {
	tests := []struct {
		name    string
		power   device.PowerStatus
		picture device.PictureMode
		wantErr error
	}{
		{"applied", device.PowerOn, device.PictureMode10, nil},
		{"display off", device.PowerStandby, device.PictureMode10, ErrDisplayOff},
		{"display warming up", device.PowerStarting, device.PictureMode10, ErrDisplayOff},
		{"wrong picture mode", device.PowerOn, device.PictureMode2, ErrWrongPictureMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.display.power = tt.power
			f.display.picture = tt.picture
			c, err := New(f.deps(), Options{})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			err = c.SetLightOutput(context.Background(), device.LightOutputHigh)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetLightOutput() error = %v, want %v", err, tt.wantErr)
			}

			applied := slices.Contains(f.log.list(), "display.light high")
			if applied != (tt.wantErr == nil) {
				t.Errorf("light applied = %v, want %v", applied, tt.wantErr == nil)
			}
		})
	}
}
