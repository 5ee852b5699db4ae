package device

import "fmt"

// Physical inputs of the video processor and the source wired to each.
const (
	InputOpticalDisc   = 1
	InputHTPC2D        = 2
	InputStreamer      = 3
	InputHTPC3D        = 4
	InputMediaPlayer   = 5
	InputGameStreamer  = 7
	InputUnknownSource = 0
)

// DynamicRange is the dynamic range of the source signal.
type DynamicRange string

// Dynamic ranges reported by the video processor.
const (
	DynamicRangeSDR DynamicRange = "SDR"
	DynamicRangeHDR DynamicRange = "HDR"
)

// Mode3D is the 3D format of the source signal.
type Mode3D string

// 3D modes reported by the video processor.
const (
	Mode3DUndefined   Mode3D = ""
	Mode3DOff         Mode3D = "off"
	Mode3DFramePacked Mode3D = "frame-packed"
	Mode3DTopBottom   Mode3D = "top-bottom"
	Mode3DSideBySide  Mode3D = "side-by-side"
)

// DisplayMode is the video processor's view of the current source.
type DisplayMode struct {
	PhysicalInput       int          `json:"physical_input"`
	LogicalInput        int          `json:"logical_input"`
	SourceResolution    string       `json:"source_resolution"`
	SourceVerticalRate  string       `json:"source_vertical_rate"`
	SourceDynamicRange  DynamicRange `json:"source_dynamic_range"`
	Source3DMode        Mode3D       `json:"source_3d_mode"`
	DetectedAspectRatio string       `json:"detected_aspect_ratio"`
	OutputAspectRatio   string       `json:"output_aspect_ratio"`
}

// IsHDR reports whether the source is high dynamic range.
func (m DisplayMode) IsHDR() bool { return m.SourceDynamicRange == DynamicRangeHDR }

// Is3D reports whether the source carries a 3D format.
func (m DisplayMode) Is3D() bool {
	return m.Source3DMode != Mode3DUndefined && m.Source3DMode != Mode3DOff
}

// IsGUI reports whether the source is showing a menu rather than content.
// Players drop to 50Hz for their user interface.
func (m DisplayMode) IsGUI() bool { return m.SourceVerticalRate == "050" }

// Memory is a video processor memory slot holding an aspect-ratio setup.
type Memory string

// Video processor memories.
const (
	MemoryA Memory = "A"
	MemoryB Memory = "B"
	MemoryC Memory = "C"
	MemoryD Memory = "D"
)

// Input is a display input.
type Input string

// Display inputs.
const (
	InputHDMI1           Input = "hdmi1"
	InputHDMI2           Input = "hdmi2"
	InputDisplayPort1    Input = "displayport1"
	InputDisplayPort2    Input = "displayport2"
	InputDisplayPortBoth Input = "displayport-both"
)

// PictureMode is a display picture preset.
type PictureMode string

// Display picture modes.
const (
	PictureMode1  PictureMode = "mode1"
	PictureMode2  PictureMode = "mode2"
	PictureMode3  PictureMode = "mode3"
	PictureMode10 PictureMode = "mode10"
)

// PowerStatus is the display power state.
type PowerStatus string

// Display power states.
const (
	PowerOn       PowerStatus = "on"
	PowerStandby  PowerStatus = "standby"
	PowerStarting PowerStatus = "starting"
	PowerStopping PowerStatus = "stopping"
)

// StereoMode is the display's 2D/3D presentation mode.
type StereoMode string

// Display stereo modes.
const (
	Stereo2D StereoMode = "2d"
	Stereo3D StereoMode = "3d"
)

// DisplayReport is a live reading of the display for the status page.
// Input, Stereo and temperatures are only read while the display is on
// and stay zero otherwise.
type DisplayReport struct {
	Power  PowerStatus `json:"power"`
	Input  Input       `json:"input,omitempty"`
	Stereo StereoMode  `json:"stereo,omitempty"`

	// ControllerTemperature is in degrees Celsius.
	ControllerTemperature float64 `json:"controller_temperature_c,omitempty"`
	// MaxModuleTemperature is the hottest cell, ambient or board sensor
	// across all modules, in degrees Celsius.
	MaxModuleTemperature float64 `json:"max_module_temperature_c,omitempty"`
}

// LightOutput is the display light output level.
type LightOutput string

// Display light output levels.
const (
	LightOutputLow  LightOutput = "low"
	LightOutputMid  LightOutput = "mid"
	LightOutputHigh LightOutput = "high"
)

// ParseLightOutput validates a light output level.
func ParseLightOutput(s string) (LightOutput, error) {
	switch l := LightOutput(s); l {
	case LightOutputLow, LightOutputMid, LightOutputHigh:
		return l, nil
	default:
		return "", fmt.Errorf("%w: light output %q", ErrInvalidValue, s)
	}
}

// Profile is an audio processor input profile.
type Profile string

// Audio processor profiles, named after the HDMI input they listen to.
const (
	ProfileHDMI4 Profile = "hdmi4"
	ProfileHDMI5 Profile = "hdmi5"
	ProfileHDMI6 Profile = "hdmi6"
	ProfileHDMI7 Profile = "hdmi7"
)

// ContentDetails describes a title in the media player's library.
type ContentDetails struct {
	Title       string `json:"title"`
	Year        string `json:"year"`
	Rating      string `json:"rating"`
	RunningTime string `json:"running_time"`
}

// PlaybackInfo is the media center's playback status for one zone.
// Values are kept as the service reports them.
type PlaybackInfo struct {
	ZoneID                    string `json:"zone_id"`
	State                     string `json:"state"`
	FileKey                   string `json:"file_key"`
	NextFileKey               string `json:"next_file_key"`
	PositionMS                string `json:"position_ms"`
	DurationMS                string `json:"duration_ms"`
	ElapsedTimeDisplay        string `json:"elapsed_time_display"`
	RemainingTimeDisplay      string `json:"remaining_time_display"`
	TotalTimeDisplay          string `json:"total_time_display"`
	PositionDisplay           string `json:"position_display"`
	PlayingNowPosition        string `json:"playing_now_position"`
	PlayingNowTracks          string `json:"playing_now_tracks"`
	PlayingNowPositionDisplay string `json:"playing_now_position_display"`
	PlayingNowChangeCounter   string `json:"playing_now_change_counter"`
	Bitrate                   string `json:"bitrate"`
	Bitdepth                  string `json:"bitdepth"`
	SampleRate                string `json:"sample_rate"`
	Channels                  string `json:"channels"`
	Chapter                   string `json:"chapter"`
	Volume                    string `json:"volume"`
	VolumeDisplay             string `json:"volume_display"`
	ImageURL                  string `json:"image_url"`
	Name                      string `json:"name"`
	Status                    string `json:"status"`
}

// Media center playback states.
const (
	PlaybackStopped = "0"
	PlaybackPaused  = "1"
	PlaybackPlaying = "2"
)
