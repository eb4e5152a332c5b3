package trigger

import (
	"context"

	"github.com/cycleworks/cyclegate/internal/suitestate"
)

// NewSuiteStatePlus builds the wrapped foreign-suite state trigger: poll a
// task in another suite for a status or output message. The first-run
// marker timeout does not apply here; suite-state polls anchor on the
// cycle point only.
func NewSuiteStatePlus(q suitestate.StateQuery, params Params, policy Policy) *Wrapped {
	policy.Timeouts.TimeoutFirstRun = 0
	return Wrap("suite_state_plus", params, policy, func(ctx context.Context) Result {
		return checkSuiteState(ctx, q)
	})
}

// SuiteStatePlus is the one-shot entry point.
func SuiteStatePlus(ctx context.Context, q suitestate.StateQuery, params Params, policy Policy) Result {
	return NewSuiteStatePlus(q, params, policy).Check(ctx)
}

// checkSuiteState is the base check. All query arguments are passed back
// as attributes for the triggered task's environment, with point rendered
// the way the target suite stores it.
func checkSuiteState(ctx context.Context, q suitestate.StateQuery) Result {
	met, point := suitestate.QueryTaskState(ctx, q)
	attrs := map[string]string{
		"suite":   q.Suite,
		"task":    q.Task,
		"point":   point,
		"offset":  q.Offset,
		"status":  q.Status,
		"message": q.Message,
	}
	setSuccess(attrs, met)
	return Result{Satisfied: met, Attrs: attrs}
}
