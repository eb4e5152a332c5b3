package trigger

import (
	"context"

	"github.com/cycleworks/cyclegate/internal/suitestate"
	"github.com/cycleworks/cyclegate/internal/timeout"
)

// Params identify the trigger instance being polled. The scheduler fills
// these in from its own templating before each call.
type Params struct {
	Suite         string // owning suite name
	Point         string // cycle point
	DependentTask string // the task this trigger releases
	SuiteShareDir string // the owning suite's share directory
}

// Policy is the gating configuration applied around any base check.
type Policy struct {
	Timeouts timeout.Policy
	// RequiredPreviousStatus, when set, requires the dependent task to
	// hold this status on the two most recent prior cycles before any
	// polling happens at all.
	RequiredPreviousStatus string
}

// CheckFunc is any base condition check. Base checks report their real
// verdict; they never apply timeout handling themselves.
type CheckFunc func(ctx context.Context) Result

// GateFunc is the previous-cycle gate contract. Injectable for tests.
type GateFunc func(ctx context.Context, suite, shareDir, point, dependentTask, requiredStatus string) bool

// Wrapped composes the previous-cycle gate and the timeout handler around
// a base check. One Wrapped per logical trigger instance; repeated polls
// share its handler, though the marker file remains the source of truth so
// a fresh Wrapped for the same Params resumes exactly where the last one
// left off.
//
// Checkers that build on other checkers call the base check functions
// directly, never through another Wrapped, so timeout semantics apply
// exactly once per external call.
type Wrapped struct {
	name    string
	params  Params
	policy  Policy
	base    CheckFunc
	handler *timeout.Handler
	gate    GateFunc
}

// Wrap builds the composed trigger. name becomes part of the persisted
// marker-file key and must be stable across invocations.
func Wrap(name string, params Params, policy Policy, base CheckFunc) *Wrapped {
	key := timeout.CallKey{
		Parent:        name,
		DependentTask: params.DependentTask,
		Point:         params.Point,
	}
	return &Wrapped{
		name:    name,
		params:  params,
		policy:  policy,
		base:    base,
		handler: timeout.NewHandler(key, params.SuiteShareDir, policy.Timeouts),
		gate:    suitestate.PreviousFinished,
	}
}

// Name returns the wrapped trigger's function name.
func (w *Wrapped) Name() string { return w.name }

// Check runs one poll. The combinator only ever flips Satisfied; the
// attributes pass through from the base check untouched.
func (w *Wrapped) Check(ctx context.Context) Result {
	if w.policy.RequiredPreviousStatus != "" && w.params.DependentTask != "" {
		if !w.gate(ctx, w.params.Suite, w.params.SuiteShareDir,
			w.params.Point, w.params.DependentTask, w.policy.RequiredPreviousStatus) {
			return notYet()
		}
	}

	if !w.handler.StartDelayExpired() {
		return notYet()
	}

	res := w.base(ctx)
	satisfied := w.handler.TimeoutExpired(res.Satisfied)
	w.handler.Cleanup(satisfied)
	return Result{Satisfied: satisfied, Attrs: res.Attrs}
}

// Handler exposes the timeout handler, for tests that need clock control.
func (w *Wrapped) Handler() *timeout.Handler { return w.handler }

// SetGate overrides the previous-cycle gate, for tests.
func (w *Wrapped) SetGate(gate GateFunc) { w.gate = gate }
