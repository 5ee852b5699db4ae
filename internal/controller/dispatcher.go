package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle state of a Dispatcher.
type State int

// Dispatcher lifecycle states.
const (
	StateIdle State = iota
	StateInitializing
	StateRunning
	StateDraining
	StateShuttingDown
	StateTerminated
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateInitializing: "initializing",
	StateRunning:      "running",
	StateDraining:     "draining",
	StateShuttingDown: "shutting_down",
	StateTerminated:   "terminated",
}

// String returns the lowercase state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// defaultShutdownTimeout bounds the Shutdown hook when Options leaves it unset.
const defaultShutdownTimeout = 10 * time.Second

// Router dispatches one event to the handler for its variant. Handlers
// declare rules on the supplied Rules; the actions they trigger are run by
// the dispatcher after Router returns. Unknown events should return an
// error wrapping ErrUnrecognizedEvent.
type Router[E any] func(ctx context.Context, rules *Rules, source any, event E) error

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// Options configures a Dispatcher.
type Options[E any] struct {
	// Route is required.
	Route Router[E]

	// Initialize runs once when Run starts, concurrently with event
	// processing. A failure aborts Run.
	Initialize Hook

	// Shutdown runs exactly once after event processing has stopped.
	Shutdown Hook

	// ActionTimeout bounds each action. Zero means no bound.
	ActionTimeout time.Duration

	// ShutdownTimeout bounds the Shutdown hook. Defaults to 10s.
	ShutdownTimeout time.Duration

	Logger   Logger
	Observer Observer
}

// Item is a queued event together with the component that raised it.
type Item[E any] struct {
	Source   any
	Event    E
	Enqueued time.Time
}

// Dispatcher is the single-consumer event loop of the controller.
//
// Producers call Listen from any goroutine. One goroutine started by Run
// takes events off the queue in arrival order, routes each to its handler
// against the dispatcher's rule registry, then runs the triggered actions
// one after another before taking the next event.
//
// Lifecycle:
//
//	Idle ─Run─▶ Initializing ─ok─▶ Running ─Close─▶ Draining ─▶ ShuttingDown ─▶ Terminated
//	                 │                 │
//	                 └─fail / cancel───┴──────────────────────────▶ ShuttingDown
type Dispatcher[E any] struct {
	opts     Options[E]
	logger   Logger
	observer Observer
	queue    *Queue[Item[E]]
	rules    *Rules

	mu      sync.Mutex
	state   State
	closing bool
	ready   chan struct{}
}

// NewDispatcher creates a dispatcher in the Idle state.
//
// Returns:
//   - *Dispatcher[E]: ready to accept events and be Run
//   - error: ErrNoRouter if opts.Route is nil
func NewDispatcher[E any](opts Options[E]) (*Dispatcher[E], error) {
	if opts.Route == nil {
		return nil, ErrNoRouter
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Dispatcher[E]{
		opts:     opts,
		logger:   logger,
		observer: opts.Observer,
		queue:    NewQueue[Item[E]](),
		rules:    NewRules(logger),
		ready:    make(chan struct{}),
	}, nil
}

// Listen enqueues an event raised by source. It never blocks. Events
// arriving after Close, or after the loop has stopped, are dropped.
func (d *Dispatcher[E]) Listen(source any, event E) {
	if !d.Enqueue(source, event) {
		d.logger.Debug("event dropped, dispatcher closed", "event", EventName(event))
	}
}

// Enqueue is Listen reporting whether the event was accepted.
func (d *Dispatcher[E]) Enqueue(source any, event E) bool {
	return d.queue.Enqueue(Item[E]{Source: source, Event: event, Enqueued: time.Now()})
}

// Close stops accepting events. Events already queued are still processed
// before Run tears down. Close is idempotent.
func (d *Dispatcher[E]) Close() {
	d.mu.Lock()
	d.closing = true
	if d.state == StateRunning {
		d.state = StateDraining
	}
	d.mu.Unlock()

	d.queue.Close()
}

// State returns the current lifecycle state.
func (d *Dispatcher[E]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Ready is closed once Initialize has succeeded.
func (d *Dispatcher[E]) Ready() <-chan struct{} {
	return d.ready
}

// QueueLen returns the number of events waiting to be processed.
func (d *Dispatcher[E]) QueueLen() int {
	return d.queue.Len()
}

// Run initializes, processes events until the queue is closed and drained
// or ctx is cancelled, then shuts down. It returns after Shutdown has
// completed.
//
// Returns:
//   - error: nil on a normal stop, an error wrapping ErrInitialize if the
//     Initialize hook failed, or ErrAlreadyStarted on a second call
func (d *Dispatcher[E]) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.state != StateIdle {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	d.state = StateInitializing
	d.mu.Unlock()

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		d.drain(loopCtx)
	}()

	if err := d.initialize(ctx); err != nil {
		d.logger.Error("initialization failed", "error", err)
		stopLoop()
		<-drained
		d.teardown(ctx)
		return fmt.Errorf("%w: %w", ErrInitialize, err)
	}

	d.mu.Lock()
	if d.closing {
		d.state = StateDraining
	} else if d.state == StateInitializing {
		d.state = StateRunning
	}
	d.mu.Unlock()
	close(d.ready)
	d.logger.Info("dispatcher running")

	<-drained
	d.teardown(ctx)
	return nil
}

func (d *Dispatcher[E]) initialize(ctx context.Context) (err error) {
	if d.opts.Initialize == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w in initialize: %v", ErrActionPanic, rec)
		}
	}()
	return d.opts.Initialize(ctx)
}

func (d *Dispatcher[E]) drain(ctx context.Context) {
	for {
		item, ok := d.queue.Next(ctx)
		if !ok {
			return
		}
		// An item may win the race with cancellation; cancellation wins.
		if ctx.Err() != nil {
			return
		}
		d.process(ctx, item)
	}
}

func (d *Dispatcher[E]) teardown(ctx context.Context) {
	d.setState(StateShuttingDown)
	d.queue.Close()

	if dropped := d.queue.Len(); dropped > 0 {
		d.logger.Warn("discarding queued events", "count", dropped)
	}

	if d.opts.Shutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.ShutdownTimeout)
		if err := d.runHook(shutdownCtx, d.opts.Shutdown); err != nil {
			d.logger.Error("shutdown failed", "error", err)
		}
		cancel()
	}

	d.setState(StateTerminated)
	d.logger.Info("dispatcher terminated")
}

func (d *Dispatcher[E]) runHook(ctx context.Context, hook Hook) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w in hook: %v", ErrActionPanic, rec)
		}
	}()
	return hook(ctx)
}

func (d *Dispatcher[E]) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// process runs one evaluation cycle.
func (d *Dispatcher[E]) process(ctx context.Context, item Item[E]) {
	cycle := Cycle{
		Source:    item.Source,
		Event:     item.Event,
		EventName: EventName(item.Event),
		Started:   time.Now(),
	}

	// Actions and observers must finish even when ctx is cancelled mid-cycle.
	runCtx := context.WithoutCancel(ctx)

	d.rules.Flush()
	err := d.route(ctx, item)
	triggered := d.rules.Flush()
	switch {
	case errors.Is(err, ErrUnrecognizedEvent):
		cycle.Unrecognized = true
		triggered = nil
		d.logger.Warn("unrecognized event", "event", cycle.EventName, "source", fmt.Sprint(item.Source))
	case err != nil:
		cycle.RouteErr = err
		d.logger.Error("event handler failed", "event", cycle.EventName, "error", err)
	}

	for _, t := range triggered {
		cycle.Results = append(cycle.Results, d.execute(runCtx, t))
	}

	cycle.Duration = time.Since(cycle.Started)
	d.notify(runCtx, cycle)
}

func (d *Dispatcher[E]) route(ctx context.Context, item Item[E]) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w in handler: %v", ErrActionPanic, rec)
		}
	}()
	return d.opts.Route(ctx, d.rules, item.Source, item.Event)
}

func (d *Dispatcher[E]) execute(ctx context.Context, t Triggered) (res ActionResult) {
	res = ActionResult{Rule: t.Name, State: t.State, Started: time.Now()}

	if d.opts.ActionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.ActionTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			res.Err = fmt.Errorf("%w in action %s: %v", ErrActionPanic, t.Name, rec)
		}
		res.Duration = time.Since(res.Started)
		if res.Err != nil {
			d.logger.Error("rule action failed", "rule", t.Name, "error", res.Err)
		} else {
			d.logger.Debug("rule action completed", "rule", t.Name, "duration", res.Duration)
		}
	}()

	d.logger.Info("rule triggered", "rule", t.Name, "state", fmt.Sprint(t.State))
	res.Err = t.Run(ctx)
	return res
}

func (d *Dispatcher[E]) notify(ctx context.Context, cycle Cycle) {
	if d.observer == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("cycle observer panicked", "panic", rec)
		}
	}()
	d.observer.CycleCompleted(ctx, cycle)
}
