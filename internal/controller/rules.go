package controller

import (
	"context"
	"fmt"
)

// Action is the side effect run when a rule fires.
type Action func(ctx context.Context) error

// Triggered is a rule that fired during the current evaluation cycle.
type Triggered struct {
	// Name is the fully scoped rule name.
	Name string

	// State is the value that caused the rule to fire, nil for Always rules.
	State any

	run Action
}

// ruleSet is the registry of last-seen values plus the actions collected in
// the cycle being evaluated. It is owned by a single dispatcher goroutine.
type ruleSet struct {
	states    map[string]any
	triggered []Triggered
	logger    Logger
}

// Rules is the handle domain handlers use to declare rules for one event.
//
// Rule names identify a baseline value that survives between events: the
// first time a name is seen only the baseline is recorded, afterwards the
// rule fires when its trigger sees the baseline change in the required way.
// Scope derives a handle whose names are prefixed so independent handlers
// cannot collide.
//
// Rules is not safe for concurrent use. The dispatcher hands it to exactly
// one handler at a time and handlers must not retain it past the call.
type Rules struct {
	set    *ruleSet
	prefix string
}

// NewRules creates an empty rule registry. The dispatcher owns one per
// instance; tests may create their own.
func NewRules(logger Logger) *Rules {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Rules{set: &ruleSet{states: make(map[string]any), logger: logger}}
}

// Scope returns a handle sharing this registry whose rule names are
// prefixed with name and a slash.
func (r *Rules) Scope(name string) *Rules {
	return &Rules{set: r.set, prefix: r.qualify(name)}
}

func (r *Rules) qualify(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + "/" + name
}

// OnTrue fires action on a rising edge of cond: the previous evaluation of
// the rule saw false and this one sees true.
func (r *Rules) OnTrue(name string, cond bool, action Action) {
	var run func(context.Context, bool) error
	if action != nil {
		run = func(ctx context.Context, _ bool) error { return action(ctx) }
	}
	OnCondition(r, name, cond, func(old, cur bool) bool { return !old && cur }, run)
}

// Always fires action every time it is evaluated.
func (r *Rules) Always(name string, action Action) {
	if action == nil {
		r.set.logger.Warn("rule registered without action", "rule", r.qualify(name))
		return
	}
	r.set.triggered = append(r.set.triggered, Triggered{Name: r.qualify(name), run: action})
}

// Value returns the baseline recorded for name in this scope.
func (r *Rules) Value(name string) (any, bool) {
	v, ok := r.set.states[r.qualify(name)]
	return v, ok
}

// Triggered returns a copy of the rules that fired in the current cycle.
func (r *Rules) Triggered() []Triggered {
	out := make([]Triggered, len(r.set.triggered))
	copy(out, r.set.triggered)
	return out
}

// Run executes a triggered rule's action.
func (t Triggered) Run(ctx context.Context) error {
	if t.run == nil {
		return nil
	}
	return t.run(ctx)
}

// Flush returns the rules that fired since the previous Flush, in
// registration order, and starts a new cycle.
func (r *Rules) Flush() []Triggered {
	out := r.set.triggered
	r.set.triggered = nil
	return out
}

func (r *Rules) resetCycle() { r.Flush() }

// OnValueChanged fires action when value differs from the previous value
// recorded under name. The first observation never fires.
func OnValueChanged[T comparable](r *Rules, name string, value T, action func(ctx context.Context, value T) error) {
	OnCondition(r, name, value, func(old, cur T) bool { return old != cur }, action)
}

// OnCondition is the general edge-triggered rule. trigger receives the
// previously recorded value and the current one; action fires when it
// returns true. The current value always becomes the new baseline, even
// when trigger panics or the stored baseline has an unexpected type.
func OnCondition[T any](r *Rules, name string, value T, trigger func(old, cur T) bool, action func(ctx context.Context, value T) error) {
	key := r.qualify(name)
	prev, seen := r.set.states[key]
	r.set.states[key] = value

	if !seen {
		return
	}

	old, ok := prev.(T)
	if !ok {
		r.set.logger.Error("rule baseline has unexpected type, resetting",
			"rule", key,
			"stored", fmt.Sprintf("%T", prev),
			"expected", fmt.Sprintf("%T", value),
		)
		return
	}

	if !evaluate(r.set.logger, key, old, value, trigger) {
		return
	}

	if action == nil {
		r.set.logger.Warn("rule registered without action", "rule", key)
		return
	}

	r.set.triggered = append(r.set.triggered, Triggered{
		Name:  key,
		State: value,
		run:   func(ctx context.Context) error { return action(ctx, value) },
	})
}

func evaluate[T any](logger Logger, key string, old, cur T, trigger func(old, cur T) bool) (fired bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("rule trigger panicked", "rule", key, "panic", rec)
			fired = false
		}
	}()
	return trigger(old, cur)
}
