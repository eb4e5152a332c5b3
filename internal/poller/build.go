// Package poller drives repeated evaluation of configured triggers, the
// way the owning scheduler would: each trigger is re-checked on a fixed
// cadence until it fires or the run is cancelled. The checks themselves
// never retry anything; all retry lives here.
package poller

import (
	"fmt"
	"time"

	"github.com/cycleworks/cyclegate/internal/config"
	"github.com/cycleworks/cyclegate/internal/cyclepoint"
	"github.com/cycleworks/cyclegate/internal/remote"
	"github.com/cycleworks/cyclegate/internal/suitestate"
	"github.com/cycleworks/cyclegate/internal/timeout"
	"github.com/cycleworks/cyclegate/internal/trigger"
)

// Build turns a trigger definition into a wrapped, pollable check.
func Build(label string, def config.TriggerDef, cfg *config.SuiteConfig, pm *remote.ProcessManager) (*trigger.Wrapped, error) {
	if err := def.Validate(label); err != nil {
		return nil, err
	}

	policy, err := buildPolicy(def)
	if err != nil {
		return nil, fmt.Errorf("trigger %q: %w", label, err)
	}

	params := trigger.Params{
		Suite:         cfg.Suite,
		Point:         def.Point,
		DependentTask: def.DependentTask,
		SuiteShareDir: cfg.SuiteShareDir,
	}

	switch def.Type {
	case config.TypeFileExists:
		return trigger.NewFileExists(trigger.FileExistsArgs{
			User:            def.User,
			Host:            def.Host,
			Path:            def.Path,
			MaxAge:          def.MaxAge,
			ActionedFileLog: def.ActionedFileLog,
			NumExpected:     def.NumExpected,
			StrictRetry:     def.StrictRetry,
		}, params, policy, pm), nil
	case config.TypeFileContains:
		return trigger.NewFileContains(trigger.FileContainsArgs{
			Text:        def.Text,
			Regex:       def.Regex,
			User:        def.User,
			Host:        def.Host,
			Path:        def.Path,
			MinNumLines: def.MinNumLines,
			StrictRetry: def.StrictRetry,
		}, params, policy, pm), nil
	case config.TypeSuiteState:
		status := def.Status
		if status == "" && def.Message == "" {
			status = "succeeded"
		}
		return trigger.NewSuiteStatePlus(suitestate.StateQuery{
			Suite:   def.TargetSuite,
			Task:    def.Task,
			Point:   def.Point,
			Offset:  def.Offset,
			Status:  status,
			Message: def.Message,
			RunDir:  def.RunDir,
		}, params, policy), nil
	}
	return nil, fmt.Errorf("trigger %q: unknown type %q", label, def.Type)
}

func buildPolicy(def config.TriggerDef) (trigger.Policy, error) {
	var p trigger.Policy
	var err error
	parse := func(field, value string) time.Duration {
		if err != nil || value == "" {
			return 0
		}
		var d time.Duration
		if d, err = cyclepoint.ParseDuration(value); err != nil {
			err = fmt.Errorf("%s: %w", field, err)
		}
		return d
	}

	p.Timeouts = timeout.Policy{
		DelayFirstPollUntil: parse("delay_first_poll_until", def.DelayFirstPollUntil),
		TimeoutFirstRun:     parse("timeout_first_run", def.TimeoutFirstRun),
		TimeoutCycleOffset:  parse("timeout_cycle_offset", def.TimeoutCycleOffset),
	}
	p.RequiredPreviousStatus = def.RequiredPreviousStatus
	return p, err
}
