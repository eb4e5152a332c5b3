package trigger

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cycleworks/cyclegate/internal/cyclepoint"
	"github.com/cycleworks/cyclegate/internal/remote"
)

// FileExistsArgs configure a file-existence check. Path may be a glob
// pattern and may carry cycle point tokens (&Y &m &0m &d &0d &H &0H &M
// &0M), expanded from the trigger's point for calendar-cycling suites.
type FileExistsArgs struct {
	User string // ssh user for remote hosts
	Host string // "" or localhost/127.0.0.1 means local
	Path string
	// MaxAge is an ISO 8601 interval; candidates modified before
	// now-MaxAge are excluded. "" disables the age filter.
	MaxAge string
	// ActionedFileLog is a text log of already-handled files, maintained
	// by downstream tasks and read-only here. Candidates whose filename
	// (or, for remote files, host-side path) appears in it are excluded.
	ActionedFileLog string
	// NumExpected, when set, requires the surviving candidate count to
	// match exactly.
	NumExpected *int
	// StrictRetry stops polling on listing-command exit codes outside
	// the known-transient set, reporting a terminal negative instead.
	StrictRetry bool
}

// NewFileExists builds the wrapped file-existence trigger.
func NewFileExists(args FileExistsArgs, params Params, policy Policy, pm *remote.ProcessManager) *Wrapped {
	return Wrap("file_exists", params, policy, func(ctx context.Context) Result {
		return checkFileExists(ctx, args, params.Point, pm)
	})
}

// FileExists is the one-shot entry point: evaluate the wrapped trigger
// once, as the scheduler would on each poll.
func FileExists(ctx context.Context, args FileExistsArgs, params Params, policy Policy, pm *remote.ProcessManager) Result {
	return NewFileExists(args, params, policy, pm).Check(ctx)
}

// checkFileExists is the base check, free of timeout handling.
func checkFileExists(ctx context.Context, args FileExistsArgs, point string, pm *remote.ProcessManager) Result {
	host := args.Host
	if host == "" {
		host = "localhost"
	}
	path := args.Path
	if path == "" {
		path = string(os.PathSeparator)
	}
	path = cyclepoint.Substitute(path, point)

	attrs := map[string]string{AttrHost: host, AttrPath: path}

	var cutoff int64
	if args.MaxAge != "" {
		maxAge, err := cyclepoint.ParseDuration(args.MaxAge)
		if err != nil {
			log.Printf("file_exists %s: bad max_age %q: %v", path, args.MaxAge, err)
			setSuccess(attrs, false)
			return Result{Satisfied: false, Attrs: attrs}
		}
		cutoff = time.Now().Add(-maxAge).Unix()
	}

	logText := readActionedLog(args.ActionedFileLog)

	var (
		cands    []remote.Candidate
		found    bool
		exitCode int
	)
	if remote.IsLocalHost(host) {
		all, err := remote.ListLocal(path)
		if err != nil {
			log.Printf("file_exists %s: %v", path, err)
			all = nil
		}
		cands = filterCandidates(all, logText, cutoff, false)
		found = len(cands) > 0
	} else {
		all, code := remote.ListRemote(ctx, pm, args.User, host, path)
		exitCode = code
		if code == 0 {
			cands = filterCandidates(all, logText, cutoff, true)
			found = len(cands) > 0
		}
	}

	// Newest first; ties keep discovery order.
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].MTime > cands[j].MTime })

	if !args.StrictRetry {
		setSuccess(attrs, found)
	} else {
		switch {
		case found:
			setSuccess(attrs, true)
		case remote.RetryableExit(exitCode):
			// Transient; keep polling.
			setSuccess(attrs, false)
		default:
			// Terminal negative: stop polling, report failure.
			found = true
			setSuccess(attrs, false)
		}
	}

	if found && attrs[AttrSuccess] == "true" &&
		args.NumExpected != nil && len(cands) != *args.NumExpected {
		found = false
		setSuccess(attrs, false)
	}

	if found && attrs[AttrSuccess] == "true" {
		paths := make([]string, len(cands))
		for i, c := range cands {
			paths[i] = c.Path
		}
		attrs[AttrAllPaths] = strings.Join(paths, ",")
		attrs[AttrNewestPath] = paths[0]
		attrs[AttrOldestPath] = paths[len(paths)-1]
	}

	return Result{Satisfied: found, Attrs: attrs}
}

// filterCandidates drops candidates that are too old or already recorded
// in the actioned-file log. The log may list bare filenames or, for remote
// files, host-side paths; both forms exclude.
func filterCandidates(cands []remote.Candidate, logText string, cutoff int64, checkHostPath bool) []remote.Candidate {
	var out []remote.Candidate
	for _, c := range cands {
		if c.MTime < cutoff {
			continue
		}
		if logText != "" {
			if strings.Contains(logText, filepath.Base(c.HostPath)) {
				continue
			}
			if checkHostPath && strings.Contains(logText, c.HostPath) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// readActionedLog returns the exclusion log's text, or "" when the log is
// unset or unreadable. A missing log excludes nothing.
func readActionedLog(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
