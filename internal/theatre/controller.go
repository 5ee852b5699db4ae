package theatre

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/device"
)

// Deps are the collaborators of the theatre controller.
type Deps struct {
	// Required devices.
	VideoProcessor device.VideoProcessor
	Display        device.Display
	AudioProcessor device.AudioProcessor
	MediaPlayer    device.MediaPlayer

	// MediaCenter raises playback events. Optional.
	MediaCenter device.EventSource

	// Movies supplies community scores for selections. Optional.
	Movies MovieSearcher

	// HTPC switches the home-theater PC presentation. Optional.
	HTPC Switcher

	// Observer is notified after every evaluation cycle. Optional.
	Observer controller.Observer

	Logger Logger
}

// Options tune the controller.
type Options struct {
	ActionTimeout   time.Duration
	ShutdownTimeout time.Duration

	// SettleDelay is the pause between routing the display to the HTPC and
	// switching the HTPC presentation mode.
	SettleDelay time.Duration
}

// Controller keeps the theatre's devices consistent with the playing source.
//
// It subscribes to every device event source, feeds the events through a
// controller.Dispatcher and routes each to the handler for its kind.
//
// Thread Safety: Run must be called once. Close, Status and SetLightOutput
// are safe for concurrent use.
type Controller struct {
	deps       Deps
	logger     Logger
	dispatcher *controller.Dispatcher[device.Event]
	status     *statusTracker

	display   *displayHandler
	audio     *audioHandler
	selection *selectionHandler
	playback  *playbackHandler

	mu           sync.Mutex
	unsubscribes []func()
}

// New creates a controller in the idle state.
//
// Parameters:
//   - deps: Devices and optional services; the four devices are required
//   - opts: Timeouts and delays
//
// Returns:
//   - *Controller: ready to Run
//   - error: ErrMissingDevice if a required device is nil
func New(deps Deps, opts Options) (*Controller, error) {
	for _, req := range []struct {
		name    string
		missing bool
	}{
		{"video processor", deps.VideoProcessor == nil},
		{"display", deps.Display == nil},
		{"audio processor", deps.AudioProcessor == nil},
		{"media player", deps.MediaPlayer == nil},
	} {
		if req.missing {
			return nil, fmt.Errorf("%w: %s", ErrMissingDevice, req.name)
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	c := &Controller{
		deps:   deps,
		logger: logger,
		status: &statusTracker{},
		display: &displayHandler{
			vp:      deps.VideoProcessor,
			display: deps.Display,
			audio:   deps.AudioProcessor,
			htpc:    deps.HTPC,
			settle:  opts.SettleDelay,
			sleep:   sleepContext,
			logger:  logger,
		},
		audio:     &audioHandler{vp: deps.VideoProcessor, logger: logger},
		selection: &selectionHandler{vp: deps.VideoProcessor, player: deps.MediaPlayer, movies: deps.Movies, logger: logger},
		playback:  &playbackHandler{vp: deps.VideoProcessor, logger: logger},
	}

	d, err := controller.NewDispatcher(controller.Options[device.Event]{
		Route:           c.route,
		Initialize:      c.initialize,
		Shutdown:        c.shutdown,
		ActionTimeout:   opts.ActionTimeout,
		ShutdownTimeout: opts.ShutdownTimeout,
		Logger:          logger,
		Observer:        controller.MultiObserver{c.status, deps.Observer},
	})
	if err != nil {
		return nil, err
	}
	c.dispatcher = d

	return c, nil
}

// Run connects the devices and processes events until ctx is cancelled or
// Close is called. It returns after the devices have been released.
//
// Returns:
//   - error: wrapping controller.ErrInitialize when startup failed
func (c *Controller) Run(ctx context.Context) error {
	return c.dispatcher.Run(ctx)
}

// Close stops accepting events and lets queued ones finish.
func (c *Controller) Close() {
	c.dispatcher.Close()
}

// Ready is closed once the devices are connected.
func (c *Controller) Ready() <-chan struct{} {
	return c.dispatcher.Ready()
}

// Listen queues an event. It is the listener registered with every source.
func (c *Controller) Listen(source any, ev device.Event) {
	c.dispatcher.Listen(source, ev)
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	s := c.status.snapshot()
	s.State = c.dispatcher.State().String()
	s.QueueLength = c.dispatcher.QueueLen()
	return s
}

// DisplayReport reads the display live. Displays that cannot report in one
// query yield their power state only.
func (c *Controller) DisplayReport(ctx context.Context) (device.DisplayReport, error) {
	if r, ok := c.deps.Display.(device.DisplayReporter); ok {
		report, err := r.Report(ctx)
		if err != nil {
			return device.DisplayReport{}, fmt.Errorf("reading display status: %w", err)
		}
		return report, nil
	}
	power, err := c.deps.Display.PowerStatus(ctx)
	if err != nil {
		return device.DisplayReport{}, fmt.Errorf("reading display power: %w", err)
	}
	return device.DisplayReport{Power: power}, nil
}

// QueueLen reports how many events are waiting to be processed.
func (c *Controller) QueueLen() int {
	return c.dispatcher.QueueLen()
}

// SetLightOutput changes the display light output. The display must be on
// and in the picture mode reserved for manual adjustment.
func (c *Controller) SetLightOutput(ctx context.Context, level device.LightOutput) error {
	power, err := c.deps.Display.PowerStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading display power: %w", err)
	}
	if power != device.PowerOn {
		return fmt.Errorf("%w (current: %s)", ErrDisplayOff, power)
	}

	mode, err := c.deps.Display.PictureMode(ctx)
	if err != nil {
		return fmt.Errorf("reading picture mode: %w", err)
	}
	if mode != device.PictureMode10 {
		return fmt.Errorf("%w (current: %s)", ErrWrongPictureMode, mode)
	}

	c.logger.Info("setting light output", "level", string(level))
	return c.deps.Display.SetLightOutput(ctx, level)
}

func (c *Controller) sources() []device.EventSource {
	srcs := []device.EventSource{c.deps.VideoProcessor, c.deps.AudioProcessor, c.deps.MediaPlayer}
	if c.deps.MediaCenter != nil {
		srcs = append(srcs, c.deps.MediaCenter)
	}
	return srcs
}

// initialize subscribes to the event sources, connects the devices that
// need a session and asks the video processor for its current mode, which
// it does not report unprompted.
func (c *Controller) initialize(ctx context.Context) error {
	c.mu.Lock()
	for _, src := range c.sources() {
		c.unsubscribes = append(c.unsubscribes, src.Subscribe(c.dispatcher.Listen))
	}
	c.mu.Unlock()

	if err := c.deps.AudioProcessor.Connect(ctx); err != nil {
		return fmt.Errorf("connecting audio processor: %w", err)
	}
	if err := c.deps.MediaPlayer.Connect(ctx); err != nil {
		return fmt.Errorf("connecting media player: %w", err)
	}
	if err := c.deps.VideoProcessor.RequestDisplayMode(ctx); err != nil {
		return fmt.Errorf("requesting display mode: %w", err)
	}

	c.logger.Info("theatre controller initialized")
	return nil
}

// shutdown removes the listeners then releases the devices.
func (c *Controller) shutdown(context.Context) error {
	c.mu.Lock()
	unsubscribes := c.unsubscribes
	c.unsubscribes = nil
	c.mu.Unlock()

	for _, unsubscribe := range slices.Backward(unsubscribes) {
		unsubscribe()
	}

	var errs []error
	for _, d := range []struct {
		name   string
		closer interface{ Close() error }
	}{
		{"audio processor", c.deps.AudioProcessor},
		{"media player", c.deps.MediaPlayer},
		{"video processor", c.deps.VideoProcessor},
		{"display", c.deps.Display},
	} {
		if err := d.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", d.name, err))
		}
	}

	c.logger.Info("theatre controller shut down")
	return errors.Join(errs...)
}

// route sends an event to the handler for its kind. Each handler declares
// its rules in its own scope.
func (c *Controller) route(_ context.Context, rules *controller.Rules, source any, ev device.Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event from %v", controller.ErrUnrecognizedEvent, source)
	}
	c.status.record(ev)

	switch ev := ev.(type) {
	case device.DisplayModeChanged:
		c.display.handle(rules.Scope("display"), ev.Mode)
	case device.AudioDecoderChanged:
		c.audio.handle(rules.Scope("audio"), ev)
	case device.HighlightedSelectionChanged:
		c.selection.handle(rules.Scope("selection"), ev)
	case device.PlaybackInfoChanged:
		c.playback.handle(rules.Scope("playback"), ev.Info)
	default:
		return fmt.Errorf("%w: %s", controller.ErrUnrecognizedEvent, ev.EventName())
	}
	return nil
}
