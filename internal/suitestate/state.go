package suitestate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cycleworks/cyclegate/internal/cyclepoint"
)

// StateQuery describes one poll of a foreign suite's task state.
type StateQuery struct {
	Suite   string
	Task    string
	Point   string
	Offset  string // optional interval applied to Point before the query
	Status  string // required status; ignored when Message is set
	Message string // required output message, checked instead of Status
	RunDir  string // root of suite run directories; "" means ~/cylc-run
}

// DefaultRunDir returns the conventional root of suite run directories.
func DefaultRunDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cylc-run"
	}
	return filepath.Join(home, "cylc-run")
}

// QueryTaskState polls a foreign suite's database for the queried task
// state. An unreachable or not-yet-created database reports false so the
// caller keeps polling; it is never an error.
func QueryTaskState(ctx context.Context, q StateQuery) (bool, string) {
	point := q.Point
	if q.Offset != "" {
		shifted, err := cyclepoint.AddOffset(point, q.Offset)
		if err != nil {
			return false, point
		}
		point = shifted
	}

	runDir := q.RunDir
	if runDir == "" {
		runDir = DefaultRunDir()
	}
	checker, err := Open(ctx, runDir, q.Suite)
	if err != nil {
		return false, point
	}
	defer checker.Close()

	if format, ferr := checker.PointFormat(ctx); ferr == nil && format != "" {
		if t, _, perr := cyclepoint.Parse(point); perr == nil {
			point = t.Format(format)
		}
	}

	var met bool
	if q.Message != "" {
		met, err = checker.TaskMessageMet(ctx, q.Task, point, q.Message)
	} else {
		met, err = checker.TaskStateMet(ctx, q.Task, point, q.Status)
	}
	if err != nil {
		return false, point
	}
	return met, point
}
