// Package trigger implements the external-condition checks that gate
// release of scheduled tasks, and the timeout-wrapping combinator that
// turns any base check into a polled trigger with start-delay,
// previous-cycle, and forced-completion semantics.
package trigger

import "strconv"

// Attribute keys reported back to the scheduler for substitution into the
// triggered task's runtime environment.
const (
	AttrHost       = "host"
	AttrPath       = "path"
	AttrText       = "text"
	AttrSuccess    = "success"
	AttrAllPaths   = "all_paths"
	AttrNewestPath = "newest_path"
	AttrOldestPath = "oldest_path"
)

// Result is the outcome of one trigger evaluation. Satisfied alone says
// whether the gated task may release; the success attribute says whether
// the condition was genuinely met or the trigger timed out. Callers must
// branch on Success, not Satisfied, before trusting any other attribute.
type Result struct {
	Satisfied bool
	Attrs     map[string]string
}

// Success reports the real verdict recorded by the underlying check.
func (r Result) Success() bool {
	return r.Attrs[AttrSuccess] == "true"
}

func setSuccess(attrs map[string]string, ok bool) {
	attrs[AttrSuccess] = strconv.FormatBool(ok)
}

// notYet is the gate-closed result: condition not satisfied, nothing to
// report.
func notYet() Result {
	return Result{Satisfied: false, Attrs: map[string]string{}}
}
