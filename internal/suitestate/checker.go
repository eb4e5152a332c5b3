// Package suitestate queries the state database of a (possibly foreign)
// workflow suite. The database is owned by that suite's scheduler; this
// package only ever reads it.
package suitestate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DBChecker is a read-only connection to one suite's state database at
// <runDir>/<suite>/log/db.
type DBChecker struct {
	db    *sql.DB
	suite string
}

// Open connects to the suite database under the conventional run-directory
// layout.
func Open(ctx context.Context, runDir, suite string) (*DBChecker, error) {
	return OpenPath(ctx, filepath.Join(runDir, suite, "log", "db"), suite)
}

// OpenPath connects to a suite database at an explicit path. The file must
// already exist: a missing database simply means the target suite has not
// started yet, and callers treat that as "gate closed" rather than an
// error worth raising.
func OpenPath(ctx context.Context, dbPath, suite string) (*DBChecker, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("suite db unavailable: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open suite db: %w", err)
	}
	// Single reader; poll checks are short-lived and sequential.
	db.SetMaxOpenConns(1)

	c := &DBChecker{db: db, suite: suite}
	// One probe query so a corrupted file fails here, not mid-check.
	if err := c.probe(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *DBChecker) probe(ctx context.Context) error {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='task_states'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("probe suite db: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("suite db has no task_states table")
	}
	return nil
}

// Close closes the database connection.
func (c *DBChecker) Close() error {
	return c.db.Close()
}

// PointFormat returns the cycle point format the target suite stores its
// points in, or "" when the suite does not record one.
func (c *DBChecker) PointFormat(ctx context.Context) (string, error) {
	var format string
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM suite_params WHERE key = 'cycle_point_format'`).Scan(&format)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		// Very old suites have no suite_params table at all.
		if strings.Contains(err.Error(), "no such table") {
			return "", nil
		}
		return "", fmt.Errorf("query point format: %w", err)
	}
	return format, nil
}

// TaskStateMet reports whether the named task at the given cycle has
// reached the required status.
func (c *DBChecker) TaskStateMet(ctx context.Context, task, cycle, status string) (bool, error) {
	var got string
	err := c.db.QueryRowContext(ctx,
		`SELECT status FROM task_states WHERE name = ? AND cycle = ?`,
		task, cycle).Scan(&got)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query task state: %w", err)
	}
	return got == status, nil
}

// TaskMessageMet reports whether the named task at the given cycle has
// emitted the required output message.
func (c *DBChecker) TaskMessageMet(ctx context.Context, task, cycle, message string) (bool, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT outputs FROM task_outputs WHERE name = ? AND cycle = ?`,
		task, cycle)
	if err != nil {
		return false, fmt.Errorf("query task outputs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outputs string
		if err := rows.Scan(&outputs); err != nil {
			return false, fmt.Errorf("scan task outputs: %w", err)
		}
		if strings.Contains(outputs, message) {
			return true, nil
		}
	}
	return false, rows.Err()
}
