package device

import "errors"

// Domain errors for the device package.
var (
	// ErrNotConnected is returned when a command is issued before Connect.
	ErrNotConnected = errors.New("device: not connected")

	// ErrUnavailable is returned when a device cannot accept commands,
	// for example because its circuit breaker is open.
	ErrUnavailable = errors.New("device: unavailable")

	// ErrTimeout is returned when a device does not answer a request in time.
	ErrTimeout = errors.New("device: request timed out")

	// ErrRejected is returned when a device answers a command with an error.
	ErrRejected = errors.New("device: command rejected")

	// ErrInvalidValue is returned when parsing an unknown enumeration value.
	ErrInvalidValue = errors.New("device: invalid value")
)
