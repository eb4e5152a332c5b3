package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
)

// SpawnExitCode is the pseudo exit code reported when a command could not
// be started or was cut off by its wall-clock timeout. It is deliberately
// outside the retryable set so strict-retry policies treat it as terminal.
const SpawnExitCode = -1

// newCommand creates an exec.Cmd with process group isolation so a hung
// ssh transport can be killed along with its whole subprocess tree.
func newCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	return cmd
}

// runCommand executes a command and returns its stdout and exit code.
// Both output pipes are drained concurrently before Wait so subprocess
// output larger than the pipe buffer cannot deadlock the caller.
func runCommand(ctx context.Context, cmd *exec.Cmd, pm *ProcessManager) (stdout []byte, exitCode int, err error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, SpawnExitCode, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, SpawnExitCode, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, SpawnExitCode, fmt.Errorf("start command: %w", err)
	}
	if pm != nil {
		pm.Track(cmd)
		defer pm.Untrack(cmd)
	}

	var wg sync.WaitGroup
	var stdoutBuf, stderrBuf bytes.Buffer
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(&stdoutBuf, stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		io.Copy(&stderrBuf, stderrPipe)
	}()
	wg.Wait()

	waitErr := cmd.Wait()
	if waitErr == nil {
		return stdoutBuf.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by the context deadline or a signal.
			code = SpawnExitCode
		}
		if stderrBuf.Len() > 0 {
			return stdoutBuf.Bytes(), code,
				fmt.Errorf("command failed: %w (stderr: %s)", waitErr, stderrBuf.String())
		}
		return stdoutBuf.Bytes(), code, fmt.Errorf("command failed: %w", waitErr)
	}

	return stdoutBuf.Bytes(), SpawnExitCode, fmt.Errorf("command failed: %w", waitErr)
}

// killProcessGroup kills the entire process group associated with the
// command, not just the immediate subprocess.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("kill process group: %w", err)
	}
	return nil
}

// ProcessManager tracks in-flight transport subprocesses so shutdown can
// terminate them all instead of leaving orphaned ssh sessions behind.
type ProcessManager struct {
	mu    sync.Mutex
	procs map[int]*exec.Cmd
}

// NewProcessManager creates a new ProcessManager.
func NewProcessManager() *ProcessManager {
	return &ProcessManager{procs: make(map[int]*exec.Cmd)}
}

// Track registers a subprocess. Call after cmd.Start().
func (pm *ProcessManager) Track(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.procs[cmd.Process.Pid] = cmd
}

// Untrack removes a subprocess. Call after cmd.Wait() returns.
func (pm *ProcessManager) Untrack(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.procs, cmd.Process.Pid)
}

// KillAll terminates every tracked subprocess.
func (pm *ProcessManager) KillAll() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var errs []error
	for pid, cmd := range pm.procs {
		if err := killProcessGroup(cmd); err != nil {
			errs = append(errs, fmt.Errorf("kill process %d: %w", pid, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors killing processes: %v", errs)
	}
	return nil
}

// Count returns the number of currently tracked processes.
func (pm *ProcessManager) Count() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.procs)
}
