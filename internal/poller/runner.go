package poller

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/cycleworks/cyclegate/internal/config"
	"github.com/cycleworks/cyclegate/internal/cyclepoint"
	"github.com/cycleworks/cyclegate/internal/events"
	"github.com/cycleworks/cyclegate/internal/remote"
	"github.com/cycleworks/cyclegate/internal/trigger"
)

// errNotSatisfied makes backoff re-poll an unsatisfied trigger.
var errNotSatisfied = errors.New("trigger not yet satisfied")

// Runner polls every configured trigger until it fires or the context is
// cancelled, publishing lifecycle events along the way.
type Runner struct {
	cfg *config.SuiteConfig
	bus *events.Bus
	pm  *remote.ProcessManager
}

// New creates a Runner.
func New(cfg *config.SuiteConfig, bus *events.Bus, pm *remote.ProcessManager) *Runner {
	return &Runner{cfg: cfg, bus: bus, pm: pm}
}

// Run evaluates all triggers concurrently with bounded parallelism and
// returns once every trigger has fired, or with the context's error on
// cancellation.
func (r *Runner) Run(ctx context.Context) error {
	interval, err := cyclepoint.ParseDuration(r.cfg.PollInterval)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := r.cfg.MaxConcurrent
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for label, def := range r.cfg.Triggers {
		w, err := Build(label, def, r.cfg, r.pm)
		if err != nil {
			r.bus.Publish(events.PollErrorEvent{Label: label, Err: err, Timestamp: time.Now()})
			log.Printf("skipping trigger %q: %v", label, err)
			continue
		}
		label := label
		g.Go(func() error {
			return r.pollOne(gctx, label, w, interval)
		})
	}

	return g.Wait()
}

// pollOne re-checks a single trigger on the configured cadence.
func (r *Runner) pollOne(ctx context.Context, label string, w *trigger.Wrapped, interval time.Duration) error {
	attempts := 0
	var last trigger.Result

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		attempts++
		last = w.Check(ctx)
		if last.Satisfied {
			return nil
		}
		r.bus.Publish(events.PollAttemptEvent{
			Label:     label,
			Attempt:   attempts,
			Attrs:     last.Attrs,
			Timestamp: time.Now(),
		})
		return errNotSatisfied
	}

	// Constant cadence with a little jitter so many triggers polling the
	// same host do not fire in lockstep.
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = interval
	policy.MaxInterval = interval
	policy.Multiplier = 1.0
	policy.RandomizationFactor = 0.1
	policy.MaxElapsedTime = 0

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return err
	}

	if last.Success() {
		log.Printf("trigger %q satisfied after %d poll(s)", label, attempts)
		r.bus.Publish(events.TriggerSatisfiedEvent{
			Label: label, Attempts: attempts, Attrs: last.Attrs, Timestamp: time.Now(),
		})
	} else {
		log.Printf("trigger %q timed out after %d poll(s)", label, attempts)
		r.bus.Publish(events.TriggerTimedOutEvent{
			Label: label, Attempts: attempts, Attrs: last.Attrs, Timestamp: time.Now(),
		})
	}
	return nil
}
