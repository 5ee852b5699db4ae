package controller

import "errors"

// Errors for the controller package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, controller.ErrInitialize) {
//	    // startup hook failed, devices were torn down
//	}
var (
	// ErrUnrecognizedEvent is returned by a Router for events it has no
	// handler for. The dispatcher logs a warning and runs no actions.
	ErrUnrecognizedEvent = errors.New("controller: unrecognized event")

	// ErrInitialize wraps the error returned by the Initialize hook.
	ErrInitialize = errors.New("controller: initialize failed")

	// ErrAlreadyStarted is returned when Run is called more than once.
	ErrAlreadyStarted = errors.New("controller: already started")

	// ErrNoRouter is returned by NewDispatcher when Options.Route is nil.
	ErrNoRouter = errors.New("controller: route function is required")

	// ErrActionPanic marks an action or router that panicked.
	ErrActionPanic = errors.New("controller: panic")
)
