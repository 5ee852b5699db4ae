package theatre

import "errors"

// Errors for the theatre package.
var (
	// ErrMissingDevice is returned by New when a required device is nil.
	ErrMissingDevice = errors.New("theatre: required device missing")

	// ErrDisplayOff is returned when a display command needs the display on.
	ErrDisplayOff = errors.New("theatre: display is not on")

	// ErrWrongPictureMode is returned when light output is changed outside
	// the picture mode reserved for it.
	ErrWrongPictureMode = errors.New("theatre: display is not in the adjustable picture mode")
)
