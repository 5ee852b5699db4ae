package controller

import (
	"context"
	"fmt"
	"time"
)

// Named is implemented by events that report a stable name for logs,
// metrics and audit records.
type Named interface {
	EventName() string
}

// EventName returns the name of an event, falling back to its Go type.
func EventName(event any) string {
	if n, ok := event.(Named); ok {
		return n.EventName()
	}
	return fmt.Sprintf("%T", event)
}

// ActionResult describes one executed rule action.
type ActionResult struct {
	Rule     string
	State    any
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Cycle describes the processing of one dequeued event.
type Cycle struct {
	Source       any
	Event        any
	EventName    string
	Started      time.Time
	Duration     time.Duration
	Unrecognized bool
	RouteErr     error
	Results      []ActionResult
}

// Failed returns the number of actions that returned an error.
func (c Cycle) Failed() int {
	n := 0
	for _, r := range c.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Observer is notified after each evaluation cycle. It runs on the
// dispatcher goroutine, so slow observers delay the next event.
type Observer interface {
	CycleCompleted(ctx context.Context, cycle Cycle)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, cycle Cycle)

// CycleCompleted calls f.
func (f ObserverFunc) CycleCompleted(ctx context.Context, cycle Cycle) { f(ctx, cycle) }

// MultiObserver fans a cycle out to several observers in order.
type MultiObserver []Observer

// CycleCompleted notifies every non-nil observer.
func (m MultiObserver) CycleCompleted(ctx context.Context, cycle Cycle) {
	for _, o := range m {
		if o != nil {
			o.CycleCompleted(ctx, cycle)
		}
	}
}
