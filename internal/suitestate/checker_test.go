package suitestate

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type stateRow struct {
	name, cycle, status string
}

type outputRow struct {
	name, cycle, outputs string
}

// createSuiteDB builds a minimal suite state database at the conventional
// <runRoot>/<suite>/log/db location and returns its path.
func createSuiteDB(t *testing.T, runRoot, suite, pointFormat string,
	states []stateRow, outputs []outputRow) string {
	t.Helper()

	dbPath := filepath.Join(runRoot, suite, "log", "db")
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o755))

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE task_states (name TEXT, cycle TEXT, status TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE task_outputs (name TEXT, cycle TEXT, outputs TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE suite_params (key TEXT, value TEXT)`)
	require.NoError(t, err)

	if pointFormat != "" {
		_, err = db.Exec(`INSERT INTO suite_params VALUES ('cycle_point_format', ?)`, pointFormat)
		require.NoError(t, err)
	}
	for _, s := range states {
		_, err = db.Exec(`INSERT INTO task_states VALUES (?, ?, ?)`, s.name, s.cycle, s.status)
		require.NoError(t, err)
	}
	for _, o := range outputs {
		_, err = db.Exec(`INSERT INTO task_outputs VALUES (?, ?, ?)`, o.name, o.cycle, o.outputs)
		require.NoError(t, err)
	}
	return dbPath
}

func TestOpenMissingDB(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir(), "nope")
	require.Error(t, err)
}

func TestOpenRejectsDBWithoutTaskStates(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE unrelated (x TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = OpenPath(context.Background(), dbPath, "demo")
	require.Error(t, err)
}

func TestTaskStateMet(t *testing.T) {
	ctx := context.Background()
	runRoot := t.TempDir()
	createSuiteDB(t, runRoot, "demo", "", []stateRow{
		{"bar", "1", "succeeded"},
		{"bar", "2", "failed"},
	}, nil)

	c, err := Open(ctx, runRoot, "demo")
	require.NoError(t, err)
	defer c.Close()

	met, err := c.TaskStateMet(ctx, "bar", "1", "succeeded")
	require.NoError(t, err)
	require.True(t, met)

	met, err = c.TaskStateMet(ctx, "bar", "2", "succeeded")
	require.NoError(t, err)
	require.False(t, met)

	// No row at all is a plain miss, not an error.
	met, err = c.TaskStateMet(ctx, "bar", "9", "succeeded")
	require.NoError(t, err)
	require.False(t, met)
}

func TestTaskMessageMet(t *testing.T) {
	ctx := context.Background()
	runRoot := t.TempDir()
	createSuiteDB(t, runRoot, "demo", "", []stateRow{
		{"bar", "1", "succeeded"},
	}, []outputRow{
		{"bar", "1", "started|file ready|succeeded"},
	})

	c, err := Open(ctx, runRoot, "demo")
	require.NoError(t, err)
	defer c.Close()

	met, err := c.TaskMessageMet(ctx, "bar", "1", "file ready")
	require.NoError(t, err)
	require.True(t, met)

	met, err = c.TaskMessageMet(ctx, "bar", "1", "never emitted")
	require.NoError(t, err)
	require.False(t, met)
}

func TestPointFormat(t *testing.T) {
	ctx := context.Background()
	runRoot := t.TempDir()
	createSuiteDB(t, runRoot, "demo", "2006-01-02T15:04Z07:00", nil, nil)

	c, err := Open(ctx, runRoot, "demo")
	require.NoError(t, err)
	defer c.Close()

	format, err := c.PointFormat(ctx)
	require.NoError(t, err)
	require.Equal(t, "2006-01-02T15:04Z07:00", format)
}

func TestPointFormatAbsent(t *testing.T) {
	ctx := context.Background()
	runRoot := t.TempDir()
	createSuiteDB(t, runRoot, "demo", "", nil, nil)

	c, err := Open(ctx, runRoot, "demo")
	require.NoError(t, err)
	defer c.Close()

	format, err := c.PointFormat(ctx)
	require.NoError(t, err)
	require.Equal(t, "", format)
}

func TestPointFormatToleratesMissingParamsTable(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE task_states (name TEXT, cycle TEXT, status TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err := OpenPath(ctx, dbPath, "demo")
	require.NoError(t, err)
	defer c.Close()

	format, err := c.PointFormat(ctx)
	require.NoError(t, err)
	require.Equal(t, "", format)
}

func TestPreviousCyclesInteger(t *testing.T) {
	ctx := context.Background()
	runRoot := t.TempDir()
	createSuiteDB(t, runRoot, "demo", "", []stateRow{
		{"bar", "1", "succeeded"},
		{"bar", "2", "succeeded"},
		{"bar", "3", "running"},
		{"other", "2", "failed"},
	}, nil)

	c, err := Open(ctx, runRoot, "demo")
	require.NoError(t, err)
	defer c.Close()

	cycles, err := c.previousCycles(ctx, "bar", "3")
	require.NoError(t, err)
	require.Equal(t, []string{"2", "1"}, cycles)

	cycles, err = c.previousCycles(ctx, "bar", "2")
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, cycles)

	cycles, err = c.previousCycles(ctx, "bar", "1")
	require.NoError(t, err)
	require.Empty(t, cycles)
}

func TestPreviousCyclesCalendarSameDayOrdering(t *testing.T) {
	// An integer cast truncates calendar points at the time separator, so
	// points on the same day need the raw-string tie-break.
	ctx := context.Background()
	runRoot := t.TempDir()
	createSuiteDB(t, runRoot, "demo", "", []stateRow{
		{"bar", "20190222T0000Z", "succeeded"},
		{"bar", "20190223T0000Z", "succeeded"},
		{"bar", "20190223T1200Z", "succeeded"},
		{"bar", "20190224T0000Z", "running"},
	}, nil)

	c, err := Open(ctx, runRoot, "demo")
	require.NoError(t, err)
	defer c.Close()

	cycles, err := c.previousCycles(ctx, "bar", "20190224T0000Z")
	require.NoError(t, err)
	require.Equal(t, []string{"20190223T1200Z", "20190223T0000Z"}, cycles)

	// Same-day points strictly before the reference must be found too.
	cycles, err = c.previousCycles(ctx, "bar", "20190223T1200Z")
	require.NoError(t, err)
	require.Equal(t, []string{"20190223T0000Z", "20190222T0000Z"}, cycles)
}
