package trigger

import (
	"bytes"
	"context"
	"log"
	"os"
	"regexp"

	"github.com/cycleworks/cyclegate/internal/remote"
)

// FileContainsArgs configure a file-content check. The file is located
// with the same semantics as FileExistsArgs.Path, then read (locally, or
// copied from the remote host into a scratch directory) and matched.
type FileContainsArgs struct {
	// Text is the literal to find, or a regular expression when Regex is
	// set; a regex match reports the first match's text.
	Text  string
	Regex bool

	User string
	Host string
	Path string

	// MinNumLines, when positive, additionally requires at least this
	// many newline-delimited lines in the file.
	MinNumLines int
	StrictRetry bool
}

// NewFileContains builds the wrapped file-content trigger.
func NewFileContains(args FileContainsArgs, params Params, policy Policy, pm *remote.ProcessManager) *Wrapped {
	return Wrap("file_contains", params, policy, func(ctx context.Context) Result {
		return checkFileContains(ctx, args, params.Point, pm)
	})
}

// FileContains is the one-shot entry point.
func FileContains(ctx context.Context, args FileContainsArgs, params Params, policy Policy, pm *remote.ProcessManager) Result {
	return NewFileContains(args, params, policy, pm).Check(ctx)
}

// checkFileContains is the base check. It resolves existence through the
// base file_exists check directly (not through another Wrapped), so the
// caller's timeout policy applies exactly once.
func checkFileContains(ctx context.Context, args FileContainsArgs, point string, pm *remote.ProcessManager) Result {
	host := args.Host
	if host == "" {
		host = "localhost"
	}

	loc := checkFileExists(ctx, FileExistsArgs{
		User:        args.User,
		Host:        host,
		Path:        args.Path,
		StrictRetry: args.StrictRetry,
	}, point, pm)

	if args.StrictRetry && loc.Satisfied && !loc.Success() {
		// Terminal negative from the location check: stop polling and
		// report the failure downstream.
		return Result{Satisfied: true, Attrs: map[string]string{AttrSuccess: "false"}}
	}
	if !loc.Satisfied || !loc.Success() {
		// Not there yet; keep polling.
		return Result{Satisfied: false, Attrs: map[string]string{AttrSuccess: "false"}}
	}

	// Use the path the location check resolved, substitution included.
	path := loc.Attrs[AttrPath]

	var data []byte
	var err error
	if remote.IsLocalHost(host) {
		data, err = os.ReadFile(path)
	} else {
		data, err = remote.FetchFile(ctx, pm, args.User, host, path)
	}
	if err != nil {
		log.Printf("file_contains %s: %v", path, err)
		return Result{Satisfied: false, Attrs: map[string]string{AttrSuccess: "false"}}
	}

	var satisfied bool
	var matched string
	if args.Regex {
		re, err := regexp.Compile(args.Text)
		if err != nil {
			log.Printf("file_contains %s: bad pattern %q: %v", path, args.Text, err)
			return Result{Satisfied: false, Attrs: map[string]string{AttrSuccess: "false"}}
		}
		if m := re.Find(data); m != nil {
			satisfied = true
			matched = string(m)
		}
	} else {
		satisfied = bytes.Contains(data, []byte(args.Text))
		matched = args.Text
	}

	if satisfied && args.MinNumLines > 0 {
		satisfied = countLines(data) >= args.MinNumLines
	}

	attrs := map[string]string{AttrText: matched, AttrPath: path, AttrHost: host}
	setSuccess(attrs, satisfied)
	return Result{Satisfied: satisfied, Attrs: attrs}
}

// countLines counts one line per newline plus a final unterminated
// fragment, so trailing blank lines count. "a\n\n\n" is 3 lines, "\n" is 1.
func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte("\n"))
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
