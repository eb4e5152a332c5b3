// Package remote resolves file-existence candidates on local and remote
// hosts. Local paths are globbed directly; remote paths are enumerated with
// an rsync listing over a batch-mode ssh transport, bounded by explicit
// connect and overall timeouts so a hung host cannot stall the caller.
package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// Overall wall-clock bounds on the transport commands.
	listTimeout  = 300 * time.Second
	fetchTimeout = 1800 * time.Second

	sshTransport = "ssh -oBatchMode=yes -oConnectTimeout=10"
)

// RsyncCommand is the listing/transfer binary invoked for remote checks.
// Overridable, mainly so tests can point it at a stub.
var RsyncCommand = "rsync"

// localHostEquivalents are host names that mean "this machine".
var localHostEquivalents = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
}

// retryableExits are rsync exit codes treated as transient
// (success, partial transfer, vanished source files).
var retryableExits = map[int]bool{0: true, 23: true, 24: true}

// IsLocalHost reports whether host refers to the local machine.
func IsLocalHost(host string) bool {
	return localHostEquivalents[host]
}

// RetryableExit reports whether an rsync exit code is in the known
// transient set. Anything else is terminal under a strict-retry policy.
func RetryableExit(code int) bool {
	return retryableExits[code]
}

// Candidate is one file located by a listing, newest-first ordering is by
// descending MTime with ties broken by discovery order.
type Candidate struct {
	// Path is the reportable path: plain for local files, fully
	// specified ([user@]host:path) for remote ones.
	Path string
	// HostPath is the path as seen on the owning host.
	HostPath string
	// MTime is the file modification time in Unix seconds.
	MTime int64
}

// RemotePath builds the fully specified [user@]host:path form.
func RemotePath(user, host, path string) string {
	p := fmt.Sprintf("%s:%s", host, path)
	if user != "" {
		p = fmt.Sprintf("%s@%s", user, p)
	}
	return p
}

// ListLocal enumerates filesystem matches for a glob pattern. Zero matches
// is a normal empty result, never an error.
func ListLocal(pattern string) ([]Candidate, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	var out []Candidate
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			// Raced away between glob and stat; treat as absent.
			continue
		}
		out = append(out, Candidate{Path: m, HostPath: m, MTime: info.ModTime().Unix()})
	}
	return out, nil
}

// ListRemote enumerates remote matches for a path (glob patterns allowed)
// via an rsync listing. It returns the parsed candidates and the listing
// command's exit code; a non-zero code yields no candidates. Spawn failure
// and the overall timeout both surface as SpawnExitCode.
func ListRemote(ctx context.Context, pm *ProcessManager, user, host, path string) ([]Candidate, int) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cmd := newCommand(ctx, RsyncCommand,
		"--relative", "--no-implied-dirs", "--timeout=300", "--list-only",
		"--rsh="+sshTransport,
		RemotePath(user, host, path))
	out, code, _ := hostBreakers.run(ctx, host, func() ([]byte, int, error) {
		return runCommand(ctx, cmd, pm)
	})
	if code != 0 {
		return nil, code
	}
	return parseListing(string(out), user, host, path), 0
}

// parseListing parses rsync --list-only output lines of the form
//
//	perms size YYYY/MM/DD HH:MM:SS name
//
// into candidates, restoring the leading path separator the listing drops
// when the queried path was absolute. Lines that do not have exactly five
// fields are skipped.
func parseListing(out, user, host, path string) []Candidate {
	var cands []Candidate
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 5 {
			continue
		}
		mtime, err := time.ParseInLocation("2006/01/02 15:04:05", fields[2]+" "+fields[3], time.Local)
		if err != nil {
			continue
		}
		name := fields[4]
		if strings.HasPrefix(path, string(os.PathSeparator)) &&
			!strings.HasPrefix(name, string(os.PathSeparator)) {
			name = string(os.PathSeparator) + name
		}
		cands = append(cands, Candidate{
			Path:     RemotePath(user, host, name),
			HostPath: name,
			MTime:    mtime.Unix(),
		})
	}
	return cands
}
