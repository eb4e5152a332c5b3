// Package timeout implements the forced-completion state machine shared by
// all trigger checks: an optional start delay before the first poll, and an
// optional timeout after which a still-unsatisfied check is forced open.
//
// The "time since first poll" anchor is a zero-byte marker file whose mtime
// is the only payload. The marker survives across independent poll
// invocations of the same logical trigger, so the filesystem is the sole
// source of truth; any in-process Handler caching is an optimization only.
package timeout

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cycleworks/cyclegate/internal/cyclepoint"
)

// CallKey identifies one logical, repeatedly-polled trigger instance.
// It must be stable across invocations so the same marker file is found
// again on every poll.
type CallKey struct {
	Parent        string // name of the trigger function being wrapped
	DependentTask string // the task this trigger releases
	Point         string // cycle point
}

// MarkerPath returns the persisted marker file path for this key under the
// suite share directory.
func (k CallKey) MarkerPath(shareDir string) string {
	return filepath.Join(shareDir, "data",
		fmt.Sprintf("xtrigger.%s.%s.%s", k.Parent, k.DependentTask, k.Point))
}

// Policy configures timeout behavior for a wrapped trigger. A zero duration
// disables the corresponding limit. If both run and cycle-offset timeouts
// are set, TimeoutFirstRun takes precedence.
type Policy struct {
	DelayFirstPollUntil time.Duration // poll only after point + delay
	TimeoutFirstRun     time.Duration // force open this long after the first poll
	TimeoutCycleOffset  time.Duration // force open this long after the cycle point
}

// HasTimeout reports whether any forced-completion limit is configured.
// Without one, polling continues indefinitely and the scheduler's retry
// cadence is the only bound.
func (p Policy) HasTimeout() bool {
	return p.TimeoutFirstRun > 0 || p.TimeoutCycleOffset > 0
}

// Handler tracks timeout state for one trigger instance.
type Handler struct {
	key    CallKey
	policy Policy

	markerDir  string
	markerPath string

	now func() time.Time
}

// NewHandler creates a Handler for the given trigger instance. The marker
// file, if one is needed, lives under <shareDir>/data.
func NewHandler(key CallKey, shareDir string, policy Policy) *Handler {
	return &Handler{
		key:        key,
		policy:     policy,
		markerDir:  filepath.Join(shareDir, "data"),
		markerPath: key.MarkerPath(shareDir),
		now:        time.Now,
	}
}

// Elapsed reports whether the wall clock has reached base+offset, where
// base is a Unix-seconds instant.
func (h *Handler) Elapsed(base int64, offset time.Duration) bool {
	return h.now().Unix() >= base+int64(offset/time.Second)
}

// StartDelayExpired reports whether polling may begin. Without a configured
// start delay it is always true. A cycle point that cannot be converted to
// wall-clock seconds also polls immediately rather than blocking forever.
func (h *Handler) StartDelayExpired() bool {
	if h.policy.DelayFirstPollUntil <= 0 {
		return true
	}
	secs, err := cyclepoint.PointAsSeconds(h.key.Point)
	if err != nil {
		log.Printf("trigger %s/%s: cannot anchor start delay on point %q: %v",
			h.key.Parent, h.key.DependentTask, h.key.Point, err)
		return true
	}
	return h.Elapsed(secs, h.policy.DelayFirstPollUntil)
}

// TimeoutExpired takes the real verdict of the underlying check and returns
// the final one. A found=true verdict passes through untouched. Otherwise
// the configured timeout, if any, may force the result open: first-run
// timeouts anchor on the marker file's mtime (created lazily here on first
// need), cycle-offset timeouts anchor on the cycle point.
func (h *Handler) TimeoutExpired(found bool) bool {
	if found {
		return true
	}

	if h.policy.TimeoutFirstRun > 0 {
		start, err := h.markerTime()
		if err != nil {
			log.Printf("trigger %s/%s: marker unavailable, retrying: %v",
				h.key.Parent, h.key.DependentTask, err)
			return false
		}
		return h.Elapsed(start, h.policy.TimeoutFirstRun)
	}

	if h.policy.TimeoutCycleOffset > 0 {
		secs, err := cyclepoint.PointAsSeconds(h.key.Point)
		if err != nil {
			log.Printf("trigger %s/%s: cannot anchor timeout on point %q: %v",
				h.key.Parent, h.key.DependentTask, h.key.Point, err)
			return false
		}
		return h.Elapsed(secs, h.policy.TimeoutCycleOffset)
	}

	return found
}

// markerTime returns the first-poll anchor in Unix seconds, creating the
// marker file if this is the first poll to need it.
func (h *Handler) markerTime() (int64, error) {
	info, err := os.Stat(h.markerPath)
	if err == nil {
		return info.ModTime().Unix(), nil
	}
	if !os.IsNotExist(err) {
		return 0, fmt.Errorf("stat marker: %w", err)
	}

	if err := os.MkdirAll(h.markerDir, 0o755); err != nil {
		return 0, fmt.Errorf("create marker dir: %w", err)
	}
	f, err := os.OpenFile(h.markerPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create marker: %w", err)
	}
	f.Close()
	mt := h.now()
	// Pin the mtime to the handler clock so tests and callers with a
	// fake clock see a consistent anchor.
	if err := os.Chtimes(h.markerPath, mt, mt); err != nil {
		return 0, fmt.Errorf("touch marker: %w", err)
	}
	return mt.Unix(), nil
}

// Cleanup removes the marker file once the trigger has finally fired, real
// or forced, so a future distinct invocation re-anchors from zero.
func (h *Handler) Cleanup(found bool) {
	if !found {
		return
	}
	if err := os.Remove(h.markerPath); err != nil && !os.IsNotExist(err) {
		log.Printf("trigger %s/%s: cannot remove marker %s: %v",
			h.key.Parent, h.key.DependentTask, h.markerPath, err)
	}
}

// SetClock overrides the wall clock, for tests.
func (h *Handler) SetClock(now func() time.Time) { h.now = now }
