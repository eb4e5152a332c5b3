package suitestate

import (
	"context"
	"log"
	"path/filepath"

	"github.com/cycleworks/cyclegate/internal/cyclepoint"
)

// PreviousFinished reports whether the dependent task held the required
// status on the (at most) two most recent cycle points strictly before the
// given point in the named suite. Fewer than two prior points is not a
// failure; the gate passes vacuously over whatever exists.
//
// Any problem reaching the state store (the target suite may simply not
// have started yet) closes the gate: the result is false, never an error.
func PreviousFinished(ctx context.Context, suite, shareDir, point, dependentTask, requiredStatus string) bool {
	// The state database lives in the log directory next to the suite's
	// share directory.
	dbPath := filepath.Join(filepath.Dir(shareDir), "log", "db")
	checker, err := OpenPath(ctx, dbPath, suite)
	if err != nil {
		return false
	}
	defer checker.Close()

	// Re-render the point in the target suite's own stored format so the
	// comparisons below line up with what is actually in its database.
	if format, err := checker.PointFormat(ctx); err == nil && format != "" {
		if t, _, perr := cyclepoint.Parse(point); perr == nil {
			point = t.Format(format)
		}
	}

	cycles, err := checker.previousCycles(ctx, dependentTask, point)
	if err != nil {
		log.Printf("previous-cycle gate for %s/%s: %v", suite, dependentTask, err)
		return false
	}

	for _, cycle := range cycles {
		met, err := checker.TaskStateMet(ctx, dependentTask, cycle, requiredStatus)
		if err != nil || !met {
			return false
		}
	}
	return true
}

// previousCycles returns up to two most recent cycle points of the named
// task strictly before the given point.
//
// Points must order correctly for both integer and calendar cycling, so
// the query compares integer casts. For calendar points an integer cast
// truncates at the 'T' separator, making two points on the same day compare
// equal; a raw-string guard and secondary ordering disambiguate those.
func (c *DBChecker) previousCycles(ctx context.Context, task, point string) ([]string, error) {
	query := `SELECT cycle FROM task_states WHERE name = ?`
	args := []interface{}{task, point}
	if cyclepoint.IsInteger(point) {
		query += ` AND CAST(cycle AS int) < CAST(? AS int)
			ORDER BY CAST(cycle AS int) DESC`
	} else {
		query += ` AND CAST(cycle AS int) <= CAST(? AS int)
			AND cycle < ?
			ORDER BY CAST(cycle AS int) DESC, cycle DESC`
		args = append(args, point)
	}
	query += ` LIMIT 2`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []string
	for rows.Next() {
		var cycle string
		if err := rows.Scan(&cycle); err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, rows.Err()
}
