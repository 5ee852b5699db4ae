// Package controller implements an edge-triggered rule engine driven by a
// single-consumer event queue.
//
// Device components raise events from their own goroutines. Each event is
// queued, then taken off the queue by the one dispatcher goroutine and
// handed to a Router, which evaluates the rules of the matching handler.
// A rule remembers the last value it saw under its name and fires only when
// that value changes in the way the rule asks for, so a handler can be
// written as a flat list of declarations that is re-evaluated on every event:
//
//	func (h *display) handle(rules *controller.Rules, mode DisplayMode) {
//	    rules.OnTrue("hdr", mode.HDR(), h.selectHDRPicture)
//	    controller.OnValueChanged(rules, "input", mode.Input, h.switchInput)
//	}
//
// The actions of every rule that fired run after the handler returns, in the
// order they were declared, before the next event is considered. A failing
// or panicking action is logged and does not stop the ones after it.
//
// # Key Types
//
//   - Queue: unbounded FIFO, many writers, one reader
//   - Rules: the rule registry handed to handlers for one event
//   - Dispatcher: the event loop and its lifecycle
//   - Observer: per-cycle hook used for audit, metrics and telemetry
//
// # Lifecycle
//
// Run moves the dispatcher from Idle to Initializing and starts processing
// events at once, so events raised while devices connect are not lost.
// After Initialize returns the dispatcher is Running. Close lets it drain
// what was queued; cancelling the context stops it before the next event.
// Either way Shutdown runs exactly once and Run returns afterwards.
package controller
