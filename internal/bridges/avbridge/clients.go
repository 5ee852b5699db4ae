package avbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/theatre-core/internal/device"
)

// VideoProcessor drives the video processor through its bridge.
type VideoProcessor struct {
	*endpoint
}

// NewVideoProcessor subscribes to the processor's state and returns a client.
func NewVideoProcessor(opts Options) (*VideoProcessor, error) {
	e, err := newEndpoint(opts)
	if err != nil {
		return nil, err
	}
	v := &VideoProcessor{endpoint: e}
	if err := e.start(v); err != nil {
		return nil, fmt.Errorf("video processor %s: %w", opts.DeviceID, err)
	}
	return v, nil
}

// RequestDisplayMode asks the bridge to republish the current display mode.
func (v *VideoProcessor) RequestDisplayMode(ctx context.Context) error {
	return v.command(ctx, CommandRequestDisplayMode, nil)
}

func (v *VideoProcessor) SelectMemory(ctx context.Context, m device.Memory) error {
	return v.command(ctx, CommandSelectMemory, map[string]any{"memory": string(m)})
}

func (v *VideoProcessor) Send(ctx context.Context, command string) error {
	return v.command(ctx, CommandSend, map[string]any{"command": command})
}

func (v *VideoProcessor) ShowMessage(ctx context.Context, text string, d time.Duration) error {
	return v.command(ctx, CommandShowMessage, map[string]any{
		"text":        text,
		"duration_ms": d.Milliseconds(),
	})
}

func (v *VideoProcessor) Close() error { return v.close() }

// Display drives the projector through its bridge.
type Display struct {
	*endpoint
}

// NewDisplay returns a display client. Displays raise no events but
// answer power and picture mode queries.
func NewDisplay(opts Options) (*Display, error) {
	e, err := newEndpoint(opts)
	if err != nil {
		return nil, err
	}
	d := &Display{endpoint: e}
	if err := e.start(d); err != nil {
		return nil, fmt.Errorf("display %s: %w", opts.DeviceID, err)
	}
	return d, nil
}

func (d *Display) SetInput(ctx context.Context, in device.Input) error {
	return d.command(ctx, CommandSetInput, map[string]any{"input": string(in)})
}

func (d *Display) SetPictureMode(ctx context.Context, m device.PictureMode) error {
	return d.command(ctx, CommandSetPictureMode, map[string]any{"mode": string(m)})
}

func (d *Display) SetLightOutput(ctx context.Context, l device.LightOutput) error {
	return d.command(ctx, CommandSetLightOutput, map[string]any{"level": string(l)})
}

// PowerStatus reads the display's power state.
func (d *Display) PowerStatus(ctx context.Context) (device.PowerStatus, error) {
	var out struct {
		Power device.PowerStatus `json:"power"`
	}
	if err := d.request(ctx, ActionReadPower, nil, &out); err != nil {
		return "", err
	}
	return out.Power, nil
}

// PictureMode reads the active picture preset.
func (d *Display) PictureMode(ctx context.Context) (device.PictureMode, error) {
	var out struct {
		Mode device.PictureMode `json:"mode"`
	}
	if err := d.request(ctx, ActionReadPictureMode, nil, &out); err != nil {
		return "", err
	}
	return out.Mode, nil
}

// Report reads power, input, stereo mode and temperatures in one request.
// The bridge leaves the fields other than power empty while the display is
// not on.
func (d *Display) Report(ctx context.Context) (device.DisplayReport, error) {
	var out device.DisplayReport
	if err := d.request(ctx, ActionReadStatus, nil, &out); err != nil {
		return device.DisplayReport{}, err
	}
	return out, nil
}

func (d *Display) Close() error { return d.close() }

// AudioProcessor drives the audio processor through its bridge.
type AudioProcessor struct {
	*endpoint
}

// NewAudioProcessor subscribes to the processor's decoder state.
func NewAudioProcessor(opts Options) (*AudioProcessor, error) {
	e, err := newEndpoint(opts)
	if err != nil {
		return nil, err
	}
	a := &AudioProcessor{endpoint: e}
	if err := e.start(a); err != nil {
		return nil, fmt.Errorf("audio processor %s: %w", opts.DeviceID, err)
	}
	return a, nil
}

// Connect waits for the bridge to confirm it holds a session with the
// processor. Decoder state is only published once it does.
func (a *AudioProcessor) Connect(ctx context.Context) error {
	return a.request(ctx, ActionConnect, nil, nil)
}

func (a *AudioProcessor) SelectProfile(ctx context.Context, p device.Profile) error {
	return a.command(ctx, CommandSelectProfile, map[string]any{"profile": string(p)})
}

func (a *AudioProcessor) Close() error { return a.close() }

// MediaPlayer drives the movie server through its bridge.
type MediaPlayer struct {
	*endpoint
}

// NewMediaPlayer subscribes to the player's selection state.
func NewMediaPlayer(opts Options) (*MediaPlayer, error) {
	e, err := newEndpoint(opts)
	if err != nil {
		return nil, err
	}
	m := &MediaPlayer{endpoint: e}
	if err := e.start(m); err != nil {
		return nil, fmt.Errorf("media player %s: %w", opts.DeviceID, err)
	}
	return m, nil
}

// Connect waits for the bridge to confirm its player session.
func (m *MediaPlayer) Connect(ctx context.Context) error {
	return m.request(ctx, ActionConnect, nil, nil)
}

// ContentDetails looks up a library title by its selection ID.
func (m *MediaPlayer) ContentDetails(ctx context.Context, selectionID string) (device.ContentDetails, error) {
	var out device.ContentDetails
	params := map[string]any{"selection_id": selectionID}
	if err := m.request(ctx, ActionContentDetails, params, &out); err != nil {
		return device.ContentDetails{}, err
	}
	return out, nil
}

func (m *MediaPlayer) Close() error { return m.close() }

var (
	_ device.VideoProcessor  = (*VideoProcessor)(nil)
	_ device.Display         = (*Display)(nil)
	_ device.DisplayReporter = (*Display)(nil)
	_ device.AudioProcessor  = (*AudioProcessor)(nil)
	_ device.MediaPlayer     = (*MediaPlayer)(nil)
)
