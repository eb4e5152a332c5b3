package trigger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cycleworks/cyclegate/internal/timeout"
)

func closedGate(ctx context.Context, suite, shareDir, point, task, status string) bool {
	return false
}

func openGate(ctx context.Context, suite, shareDir, point, task, status string) bool {
	return true
}

func markerFor(w *Wrapped, params Params) string {
	key := timeout.CallKey{
		Parent:        w.Name(),
		DependentTask: params.DependentTask,
		Point:         params.Point,
	}
	return key.MarkerPath(params.SuiteShareDir)
}

func TestCheckClosedGateSkipsBase(t *testing.T) {
	params := testParams(t, "20190307T0000Z")
	called := false
	w := Wrap("file_exists", params, Policy{
		Timeouts:               timeout.Policy{TimeoutFirstRun: time.Minute},
		RequiredPreviousStatus: "succeeded",
	}, func(ctx context.Context) Result {
		called = true
		return Result{Satisfied: true, Attrs: map[string]string{AttrSuccess: "true"}}
	})
	w.SetGate(closedGate)

	res := w.Check(context.Background())
	if called {
		t.Fatal("base check ran behind a closed gate")
	}
	if res.Satisfied || len(res.Attrs) != 0 {
		t.Fatalf("closed gate result: %+v", res)
	}
	// A skipped poll must not start the timeout clock either.
	if _, err := os.Stat(markerFor(w, params)); !os.IsNotExist(err) {
		t.Fatal("marker created behind a closed gate")
	}
}

func TestCheckOpenGateRunsBase(t *testing.T) {
	params := testParams(t, "20190307T0000Z")
	w := Wrap("file_exists", params, Policy{RequiredPreviousStatus: "succeeded"},
		func(ctx context.Context) Result {
			return Result{Satisfied: true, Attrs: map[string]string{AttrSuccess: "true"}}
		})
	w.SetGate(openGate)

	if res := w.Check(context.Background()); !res.Satisfied {
		t.Fatalf("open gate blocked the check: %+v", res)
	}
}

func TestCheckGateNotConsultedWithoutRequiredStatus(t *testing.T) {
	params := testParams(t, "20190307T0000Z")
	w := Wrap("file_exists", params, Policy{}, func(ctx context.Context) Result {
		return Result{Satisfied: true, Attrs: map[string]string{AttrSuccess: "true"}}
	})
	w.SetGate(func(ctx context.Context, suite, shareDir, point, task, status string) bool {
		t.Fatal("gate consulted with no required status")
		return false
	})
	w.Check(context.Background())
}

func TestCheckGateNotConsultedWithoutDependentTask(t *testing.T) {
	params := testParams(t, "20190307T0000Z")
	params.DependentTask = ""
	w := Wrap("file_exists", params, Policy{RequiredPreviousStatus: "succeeded"},
		func(ctx context.Context) Result {
			return Result{Satisfied: true, Attrs: map[string]string{AttrSuccess: "true"}}
		})
	w.SetGate(func(ctx context.Context, suite, shareDir, point, task, status string) bool {
		t.Fatal("gate consulted with no dependent task")
		return false
	})
	w.Check(context.Background())
}

func TestCheckStartDelayBlocksBase(t *testing.T) {
	// 19700101T001640Z is 1000 seconds after the epoch.
	params := testParams(t, "19700101T001640Z")
	called := false
	w := Wrap("file_exists", params, Policy{
		Timeouts: timeout.Policy{DelayFirstPollUntil: time.Hour},
	}, func(ctx context.Context) Result {
		called = true
		return Result{Satisfied: true, Attrs: map[string]string{AttrSuccess: "true"}}
	})

	w.Handler().SetClock(func() time.Time { return time.Unix(4000, 0) })
	if res := w.Check(context.Background()); res.Satisfied || called {
		t.Fatalf("polled before point + delay: %+v", res)
	}

	w.Handler().SetClock(func() time.Time { return time.Unix(4600, 0) })
	if res := w.Check(context.Background()); !res.Satisfied || !called {
		t.Fatalf("blocked after point + delay: %+v", res)
	}
}

func TestCheckTimeoutForcesOpenWithoutSuccess(t *testing.T) {
	params := testParams(t, "20190307T0000Z")
	w := Wrap("file_exists", params, Policy{
		Timeouts: timeout.Policy{TimeoutFirstRun: 5 * time.Minute},
	}, func(ctx context.Context) Result {
		return Result{Satisfied: false, Attrs: map[string]string{AttrSuccess: "false"}}
	})
	marker := markerFor(w, params)
	t0 := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	w.Handler().SetClock(func() time.Time { return t0 })
	if res := w.Check(context.Background()); res.Satisfied {
		t.Fatalf("forced open on the first poll: %+v", res)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("marker not created on the first poll: %v", err)
	}

	w.Handler().SetClock(func() time.Time { return t0.Add(6 * time.Minute) })
	res := w.Check(context.Background())
	if !res.Satisfied {
		t.Fatalf("timeout did not force the trigger open: %+v", res)
	}
	// Forced open is success=false: downstream must be able to tell a
	// timeout from a real hit.
	if res.Success() {
		t.Fatalf("forced-open result claims success: %+v", res)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatal("marker not cleaned up after the forced open")
	}
}

func TestCheckRealSuccessCleansMarker(t *testing.T) {
	params := testParams(t, "20190307T0000Z")
	hit := false
	w := Wrap("file_exists", params, Policy{
		Timeouts: timeout.Policy{TimeoutFirstRun: time.Hour},
	}, func(ctx context.Context) Result {
		attrs := map[string]string{}
		setSuccess(attrs, hit)
		return Result{Satisfied: hit, Attrs: attrs}
	})
	marker := markerFor(w, params)
	t0 := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	w.Handler().SetClock(func() time.Time { return t0 })

	w.Check(context.Background())
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("marker not created: %v", err)
	}

	hit = true
	res := w.Check(context.Background())
	if !res.Satisfied || !res.Success() {
		t.Fatalf("real hit mishandled: %+v", res)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatal("marker not cleaned up after a real hit")
	}
}

func TestResultSuccess(t *testing.T) {
	if (Result{Attrs: map[string]string{}}).Success() {
		t.Fatal("empty attrs report success")
	}
	if !(Result{Attrs: map[string]string{AttrSuccess: "true"}}).Success() {
		t.Fatal("success attr not honored")
	}
	if (Result{Attrs: map[string]string{AttrSuccess: "false"}}).Success() {
		t.Fatal("failed attr reports success")
	}
}
