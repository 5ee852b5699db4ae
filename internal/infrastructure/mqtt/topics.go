package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of every theatre topic.
const DefaultTopicPrefix = "theatre"

// Topics builds theatre MQTT topics under a common prefix.
//
// Device bridges use a flat scheme, one segment per level:
//
//	theatre/state/{device}/{kind}          retained device state
//	theatre/command/{device}               fire-and-forget commands
//	theatre/request/{device}/{request_id}  queries expecting a reply
//	theatre/response/{device}/{request_id} replies to queries
//	theatre/system/status                  controller online/offline (LWT)
type Topics struct {
	Prefix string
}

// NewTopics returns a builder for prefix, or DefaultTopicPrefix when empty.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) root() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// State returns the topic a device bridge publishes one kind of state on.
//
// Example: theatre/state/lumagen/display_mode
func (t Topics) State(device, kind string) string {
	return fmt.Sprintf("%s/state/%s/%s", t.root(), device, kind)
}

// DeviceStates matches every state kind of one device.
//
// Example: theatre/state/lumagen/+
func (t Topics) DeviceStates(device string) string {
	return t.State(device, "+")
}

// AllStates matches every state topic of every device.
func (t Topics) AllStates() string {
	return t.root() + "/state/#"
}

// Command returns the topic commands for a device are published on.
//
// Example: theatre/command/projector
func (t Topics) Command(device string) string {
	return fmt.Sprintf("%s/command/%s", t.root(), device)
}

// Request returns the topic for one query to a device.
//
// Example: theatre/request/kaleidescape/5f0c...
func (t Topics) Request(device, requestID string) string {
	return fmt.Sprintf("%s/request/%s/%s", t.root(), device, requestID)
}

// Response returns the topic a device answers one query on.
func (t Topics) Response(device, requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", t.root(), device, requestID)
}

// DeviceResponses matches every response from one device.
func (t Topics) DeviceResponses(device string) string {
	return t.Response(device, "+")
}

// SystemStatus returns the controller status topic, used for the LWT.
func (t Topics) SystemStatus() string {
	return t.root() + "/system/status"
}

// ParseState splits a state topic into device and kind.
// ok is false for topics outside the state hierarchy.
func (t Topics) ParseState(topic string) (device, kind string, ok bool) {
	return t.parse(topic, "state")
}

// ParseResponse splits a response topic into device and request ID.
func (t Topics) ParseResponse(topic string) (device, requestID string, ok bool) {
	return t.parse(topic, "response")
}

func (t Topics) parse(topic, category string) (string, string, bool) {
	rest, found := strings.CutPrefix(topic, t.root()+"/"+category+"/")
	if !found {
		return "", "", false
	}
	device, last, found := strings.Cut(rest, "/")
	if !found || device == "" || last == "" || strings.Contains(last, "/") {
		return "", "", false
	}
	return device, last, true
}
