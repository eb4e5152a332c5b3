package trigger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeReport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileContainsLiteral(t *testing.T) {
	dir := t.TempDir()
	path := writeReport(t, dir, "report-03-07", "run complete\nstatus: SUCCESS\n")

	res := FileContains(context.Background(), FileContainsArgs{
		Text: "status: SUCCESS",
		Path: filepath.Join(dir, "report-&0m-&0d"),
	}, testParams(t, "20190307T0000Z"), Policy{}, nil)

	if !res.Satisfied || !res.Success() {
		t.Fatalf("literal not found: %+v", res)
	}
	if res.Attrs[AttrText] != "status: SUCCESS" {
		t.Fatalf("text attr %q", res.Attrs[AttrText])
	}
	if res.Attrs[AttrPath] != path {
		t.Fatalf("path attr %q", res.Attrs[AttrPath])
	}
}

func TestFileContainsLiteralAbsent(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "report", "status: FAILED\n")

	res := FileContains(context.Background(), FileContainsArgs{
		Text: "status: SUCCESS",
		Path: filepath.Join(dir, "report"),
	}, testParams(t, "20190307T0000Z"), Policy{}, nil)
	if res.Satisfied || res.Success() {
		t.Fatalf("absent literal matched: %+v", res)
	}
}

func TestFileContainsRegexReportsFirstMatch(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "report", "count=17\ncount=42\n")

	res := FileContains(context.Background(), FileContainsArgs{
		Text:  `count=\d+`,
		Regex: true,
		Path:  filepath.Join(dir, "report"),
	}, testParams(t, "20190307T0000Z"), Policy{}, nil)

	if !res.Satisfied {
		t.Fatalf("regex not matched: %+v", res)
	}
	if res.Attrs[AttrText] != "count=17" {
		t.Fatalf("matched text %q, want first match", res.Attrs[AttrText])
	}
}

func TestFileContainsBadRegexKeepsPolling(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "report", "anything\n")

	res := FileContains(context.Background(), FileContainsArgs{
		Text:  `count=(`,
		Regex: true,
		Path:  filepath.Join(dir, "report"),
	}, testParams(t, "20190307T0000Z"), Policy{}, nil)
	if res.Satisfied {
		t.Fatalf("bad pattern satisfied the check: %+v", res)
	}
}

func TestFileContainsMinNumLines(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "report", "header\nstatus: SUCCESS\n")

	args := FileContainsArgs{
		Text:        "SUCCESS",
		Path:        filepath.Join(dir, "report"),
		MinNumLines: 3,
	}
	params := testParams(t, "20190307T0000Z")
	if res := FileContains(context.Background(), args, params, Policy{}, nil); res.Satisfied {
		t.Fatalf("short file satisfied min_num_lines: %+v", res)
	}

	args.MinNumLines = 2
	if res := FileContains(context.Background(), args, params, Policy{}, nil); !res.Satisfied {
		t.Fatalf("complete file rejected: %+v", res)
	}
}

func TestFileContainsMinNumLinesCountsTrailingBlankLines(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, "report", "SUCCESS\n\n\n")

	res := FileContains(context.Background(), FileContainsArgs{
		Text:        "SUCCESS",
		Path:        filepath.Join(dir, "report"),
		MinNumLines: 3,
	}, testParams(t, "20190307T0000Z"), Policy{}, nil)
	if !res.Satisfied {
		t.Fatalf("trailing blank lines not counted: %+v", res)
	}
}

func TestFileContainsMissingFileKeepsPolling(t *testing.T) {
	res := FileContains(context.Background(), FileContainsArgs{
		Text: "SUCCESS",
		Path: filepath.Join(t.TempDir(), "not-yet"),
	}, testParams(t, "20190307T0000Z"), Policy{}, nil)
	if res.Satisfied || res.Success() {
		t.Fatalf("missing file satisfied the check: %+v", res)
	}
}

func TestFileContainsStrictRetryTerminalPassthrough(t *testing.T) {
	stubRsync(t, "exit 1")

	res := FileContains(context.Background(), FileContainsArgs{
		Text:        "SUCCESS",
		Host:        "contains-terminal-host",
		Path:        "/incoming/report",
		StrictRetry: true,
	}, testParams(t, "20190307T0000Z"), Policy{}, nil)

	if !res.Satisfied {
		t.Fatalf("terminal location failure kept polling: %+v", res)
	}
	if res.Success() {
		t.Fatalf("terminal location failure reported success: %+v", res)
	}
}

func TestCountLines(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"\n", 1},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo", 2},
		{"one\ntwo\n", 2},
		{"one\n\n\n", 3},
		{"\n\nthree", 3},
	}
	for _, tc := range cases {
		if got := countLines([]byte(tc.in)); got != tc.want {
			t.Fatalf("countLines(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFileContainsIgnoresFileMtime(t *testing.T) {
	dir := t.TempDir()
	path := writeReport(t, dir, "report", "status: SUCCESS\n")
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	res := FileContains(context.Background(), FileContainsArgs{
		Text: "SUCCESS",
		Path: path,
	}, testParams(t, "20190307T0000Z"), Policy{}, nil)
	if !res.Satisfied {
		t.Fatalf("old file rejected: %+v", res)
	}
}
