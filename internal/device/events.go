package device

// Event is a device state change. The set of implementations is closed.
type Event interface {
	// EventName is a stable snake_case name for logs and metrics.
	EventName() string

	isEvent()
}

// DisplayModeChanged is raised by the video processor when the source changes.
type DisplayModeChanged struct {
	Mode DisplayMode `json:"mode"`
}

// AudioDecoderChanged is raised by the audio processor when the decoded
// format or upmixer changes.
type AudioDecoderChanged struct {
	Decoder string `json:"decoder"`
	Upmixer string `json:"upmixer"`
}

// HighlightedSelectionChanged is raised by the media player when the
// highlighted title in its library browser changes.
type HighlightedSelectionChanged struct {
	SelectionID string `json:"selection_id"`
}

// PlaybackInfoChanged is raised by the media center when its playback
// status changes.
type PlaybackInfoChanged struct {
	Info PlaybackInfo `json:"info"`
}

// UnrecognizedEvent carries a notification no handler understands.
type UnrecognizedEvent struct {
	Kind    string `json:"kind"`
	Payload []byte `json:"payload,omitempty"`
}

// Event names.
const (
	EventDisplayModeChanged          = "display_mode_changed"
	EventAudioDecoderChanged         = "audio_decoder_changed"
	EventHighlightedSelectionChanged = "highlighted_selection_changed"
	EventPlaybackInfoChanged         = "playback_info_changed"
	EventUnrecognized                = "unrecognized"
)

func (DisplayModeChanged) EventName() string          { return EventDisplayModeChanged }
func (AudioDecoderChanged) EventName() string         { return EventAudioDecoderChanged }
func (HighlightedSelectionChanged) EventName() string { return EventHighlightedSelectionChanged }
func (PlaybackInfoChanged) EventName() string         { return EventPlaybackInfoChanged }
func (UnrecognizedEvent) EventName() string           { return EventUnrecognized }

func (DisplayModeChanged) isEvent()          {}
func (AudioDecoderChanged) isEvent()         {}
func (HighlightedSelectionChanged) isEvent() {}
func (PlaybackInfoChanged) isEvent()         {}
func (UnrecognizedEvent) isEvent()           {}
