package avbridge

import (
	"time"

	"github.com/goccy/go-json"
)

// Command names understood by the device bridges.
const (
	CommandRequestDisplayMode = "request_display_mode"
	CommandSelectMemory       = "select_memory"
	CommandSend               = "send"
	CommandShowMessage        = "show_message"
	CommandSetInput           = "set_input"
	CommandSetPictureMode     = "set_picture_mode"
	CommandSetLightOutput     = "set_light_output"
	CommandSelectProfile      = "select_profile"
)

// Request actions understood by the device bridges.
const (
	ActionConnect         = "connect"
	ActionReadPower       = "read_power"
	ActionReadPictureMode = "read_picture_mode"
	ActionReadStatus      = "read_status"
	ActionContentDetails  = "content_details"
)

// State kinds published by the device bridges.
const (
	StateDisplayMode          = "display_mode"
	StateAudioDecoder         = "audio_decoder"
	StateHighlightedSelection = "highlighted_selection"
)

// CommandMessage is sent to a bridge to change device state.
// Topic: {prefix}/command/{device}
type CommandMessage struct {
	// ID correlates the command with bridge logs.
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Command   string    `json:"command"`

	// Parameters are command specific, e.g. {"memory": "B"}.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source is always "controller"; bridges also accept commands from
	// other tools.
	Source string `json:"source"`
}

// RequestMessage asks a bridge for an answer.
// Topic: {prefix}/request/{device}/{request_id}
type RequestMessage struct {
	RequestID  string         `json:"request_id"`
	Timestamp  time.Time      `json:"timestamp"`
	DeviceID   string         `json:"device_id"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ResponseMessage answers a RequestMessage.
// Topic: {prefix}/response/{device}/{request_id}
type ResponseMessage struct {
	RequestID string          `json:"request_id"`
	Timestamp time.Time       `json:"timestamp"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ResponseError  `json:"error,omitempty"`
}

// ResponseError describes a failed request.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes reported by the bridges.
const (
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeTimeout           = "TIMEOUT"
)

// StateMessage carries one kind of device state.
// Topic: {prefix}/state/{device}/{kind}
// QoS: 1, Retained: yes
type StateMessage struct {
	DeviceID  string          `json:"device_id"`
	Timestamp time.Time       `json:"timestamp"`
	State     json.RawMessage `json:"state"`
}
