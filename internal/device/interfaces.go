package device

import (
	"context"
	"time"
)

// Listener receives events. source identifies the raising component.
// Listeners are called from the source's own goroutine and must not block.
type Listener func(source any, event Event)

// EventSource is anything that raises device events.
type EventSource interface {
	// Subscribe registers l and returns a function that removes it.
	// The returned function is idempotent.
	Subscribe(l Listener) (unsubscribe func())
}

// VideoProcessor scales and switches video and draws the on-screen display.
type VideoProcessor interface {
	EventSource

	// RequestDisplayMode asks the processor to report its current mode.
	// The answer arrives as a DisplayModeChanged event.
	RequestDisplayMode(ctx context.Context) error

	SelectMemory(ctx context.Context, m Memory) error

	// Send issues a raw command, such as "!" to dismiss the menu.
	Send(ctx context.Context, command string) error

	// ShowMessage shows text on the on-screen display for d.
	ShowMessage(ctx context.Context, text string, d time.Duration) error

	Close() error
}

// Display is the projector or LED wall.
type Display interface {
	SetInput(ctx context.Context, in Input) error
	SetPictureMode(ctx context.Context, m PictureMode) error
	SetLightOutput(ctx context.Context, l LightOutput) error
	PowerStatus(ctx context.Context) (PowerStatus, error)
	PictureMode(ctx context.Context) (PictureMode, error)
	Close() error
}

// DisplayReporter is implemented by displays that can report their full
// status in one query.
type DisplayReporter interface {
	Report(ctx context.Context) (DisplayReport, error)
}

// AudioProcessor decodes and routes audio.
type AudioProcessor interface {
	EventSource

	Connect(ctx context.Context) error
	SelectProfile(ctx context.Context, p Profile) error
	Close() error
}

// MediaPlayer is the movie server whose library browser raises selections.
type MediaPlayer interface {
	EventSource

	Connect(ctx context.Context) error
	ContentDetails(ctx context.Context, selectionID string) (ContentDetails, error)
	Close() error
}
