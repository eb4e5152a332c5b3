package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FetchFile copies one remote file into a private temporary directory,
// reads it, and removes the directory again regardless of outcome. The
// transfer runs over the same batch-mode ssh transport as the listings,
// with its own longer overall timeout.
func FetchFile(ctx context.Context, pm *ProcessManager, user, host, path string) ([]byte, error) {
	tmpdir, err := os.MkdirTemp("", "cyclegate-fetch-")
	if err != nil {
		return nil, fmt.Errorf("create fetch dir: %w", err)
	}
	defer os.RemoveAll(tmpdir)
	tmpfile := filepath.Join(tmpdir, "tmpfile")

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	cmd := newCommand(ctx, RsyncCommand,
		"--timeout=1800",
		"--rsh="+sshTransport,
		RemotePath(user, host, path),
		tmpfile)
	_, code, err := hostBreakers.run(ctx, host, func() ([]byte, int, error) {
		return runCommand(ctx, cmd, pm)
	})
	if code != 0 {
		return nil, fmt.Errorf("fetch %s (exit %d): %w", RemotePath(user, host, path), code, err)
	}

	data, err := os.ReadFile(tmpfile)
	if err != nil {
		return nil, fmt.Errorf("read fetched file: %w", err)
	}
	return data, nil
}
