package mqtt

import "errors"

// Sentinel errors. Operation failures wrap one of these together with the
// paho error, so callers can test with errors.Is.
var (
	ErrNotConnected      = errors.New("mqtt: not connected")
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
	ErrInvalidTopic      = errors.New("mqtt: empty topic")
	ErrInvalidQoS        = errors.New("mqtt: qos must be 0, 1 or 2")
	ErrPayloadTooLarge   = errors.New("mqtt: payload too large")
)
