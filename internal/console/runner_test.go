package console

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"AutoFlow-Agent/internal/clock"
)

const waitTimeout = 2 * time.Second

func quietAudit() RunnerOption {
	return WithAuditLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func waitRun(t *testing.T, r *Runner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("run did not finish: %v", err)
	}
}

func TestRunnerCompletesScript(t *testing.T) {
	log := NewLog()
	runner := NewRunner(log, WithScheduler(clock.Immediate), quietAudit())

	if !runner.Start(context.Background()) {
		t.Fatalf("expected run to start")
	}
	waitRun(t, runner)

	state := runner.Snapshot()
	if state.Running {
		t.Fatalf("run should be finished")
	}
	if state.Stats.TotalSteps != 7 || state.Stats.CompletedSteps != 7 || state.Stats.FailedSteps != 0 {
		t.Fatalf("unexpected stats: %+v", state.Stats)
	}
	if state.CurrentStep != CompletedLabel {
		t.Fatalf("unexpected current step: %q", state.CurrentStep)
	}
	if state.Progress != 100 {
		t.Fatalf("unexpected progress: %v", state.Progress)
	}

	entries := log.Entries()
	script := DefaultScript()
	if len(entries) != len(script) {
		t.Fatalf("expected %d new entries, got %d", len(script), len(entries))
	}
	for i, step := range script {
		got := entries[len(entries)-1-i]
		if got.Message != step.Message || got.Category != step.Category || got.Details != step.Details {
			t.Fatalf("entry %d out of order: %+v", i, got)
		}
	}
}

func TestRunnerIgnoresSecondStart(t *testing.T) {
	sched := clock.NewManualScheduler()
	runner := NewRunner(NewLog(), WithScheduler(sched), quietAudit())

	if !runner.Start(context.Background()) {
		t.Fatalf("first start should succeed")
	}
	before := runner.Snapshot().Stats
	if runner.Start(context.Background()) {
		t.Fatalf("second start should be ignored")
	}
	if after := runner.Snapshot().Stats; after.TotalSteps != before.TotalSteps || after.StartTime != before.StartTime {
		t.Fatalf("second start re-initialised stats: before %+v after %+v", before, after)
	}
	runner.Stop()
	waitRun(t, runner)
}

func TestRunnerStatsInvariantHoldsAtEveryStep(t *testing.T) {
	sched := clock.NewManualScheduler()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	clk := clock.ClockFunc(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	runner := NewRunner(NewLog(), WithScheduler(sched), WithRunnerClock(clk), quietAudit())
	runner.Start(context.Background())

	for i := 1; i <= 7; i++ {
		delay, ok := sched.Parked(waitTimeout)
		if !ok {
			t.Fatalf("step %d never parked", i)
		}
		if delay < DefaultMinStepDelay || delay >= DefaultMaxStepDelay {
			t.Fatalf("delay out of range: %s", delay)
		}
		state := runner.Snapshot()
		s := state.Stats
		if s.CompletedSteps+s.FailedSteps > s.TotalSteps {
			t.Fatalf("invariant violated: %+v", s)
		}
		if s.CompletedSteps != i {
			t.Fatalf("expected %d completed steps, got %d", i, s.CompletedSteps)
		}
		if want := float64(i) / 7 * 100; state.Progress != want {
			t.Fatalf("unexpected progress at step %d: %v", i, state.Progress)
		}
		if s.DurationMs <= 0 {
			t.Fatalf("duration should grow with the clock: %+v", s)
		}
		if !sched.Advance(waitTimeout) {
			t.Fatalf("advance %d timed out", i)
		}
	}
	waitRun(t, runner)
	if s := runner.Snapshot().Stats; s.CompletedSteps != s.TotalSteps {
		t.Fatalf("unexpected final stats: %+v", s)
	}
}

func TestRunnerStopHaltsFurtherSteps(t *testing.T) {
	sched := clock.NewManualScheduler()
	log := NewLog()
	runner := NewRunner(log, WithScheduler(sched), quietAudit())
	runner.Start(context.Background())

	for i := 0; i < 3; i++ {
		if _, ok := sched.Parked(waitTimeout); !ok {
			t.Fatalf("step %d never parked", i)
		}
		if i < 2 && !sched.Advance(waitTimeout) {
			t.Fatalf("advance timed out")
		}
	}

	if !runner.Stop() {
		t.Fatalf("stop should report an active run")
	}
	state := runner.Snapshot()
	if state.Running || state.Progress != 0 || state.CurrentStep != "" {
		t.Fatalf("unexpected state after stop: %+v", state)
	}
	if state.Stats.CompletedSteps != 3 {
		t.Fatalf("completed steps should not be rolled back: %+v", state.Stats)
	}
	waitRun(t, runner)

	entries := log.Entries()
	if len(entries) != 4 {
		t.Fatalf("expected 3 steps plus stop entry, got %d", len(entries))
	}
	if entries[0].Category != CategoryWarning || entries[0].Details != "Stopped by user" {
		t.Fatalf("unexpected stop entry: %+v", entries[0])
	}
	if _, ok := sched.Parked(50 * time.Millisecond); ok {
		t.Fatalf("stopped run scheduled another step")
	}
	if runner.Snapshot().Stats.CompletedSteps != 3 {
		t.Fatalf("stopped run kept mutating stats")
	}
}

func TestRunnerStopWhileIdleOnlyResetsView(t *testing.T) {
	log := NewLog()
	runner := NewRunner(log, WithScheduler(clock.Immediate), quietAudit())
	runner.Start(context.Background())
	waitRun(t, runner)

	if runner.Stop() {
		t.Fatalf("stop on an idle runner should report false")
	}
	if state := runner.Snapshot(); state.CurrentStep != "" || state.Progress != 0 {
		t.Fatalf("unexpected state: %+v", state)
	}
	if log.Len() != 7 {
		t.Fatalf("idle stop should not log, got %d entries", log.Len())
	}
}

func TestRunnerRestartAfterStop(t *testing.T) {
	sched := clock.NewManualScheduler()
	runner := NewRunner(NewLog(), WithScheduler(sched), quietAudit())
	runner.Start(context.Background())
	if _, ok := sched.Parked(waitTimeout); !ok {
		t.Fatalf("first run never parked")
	}
	runner.Stop()
	waitRun(t, runner)

	if !runner.Start(context.Background()) {
		t.Fatalf("restart should be allowed after stop")
	}
	if s := runner.Snapshot().Stats; s.CompletedSteps != 0 && s.CompletedSteps != 1 {
		t.Fatalf("stats were not reset on restart: %+v", s)
	}
	runner.Stop()
	waitRun(t, runner)
}

func TestRunnerParentCancelClearsRunningFlag(t *testing.T) {
	sched := clock.NewManualScheduler()
	log := NewLog()
	runner := NewRunner(log, WithScheduler(sched), quietAudit())

	ctx, cancel := context.WithCancel(context.Background())
	runner.Start(ctx)
	if _, ok := sched.Parked(waitTimeout); !ok {
		t.Fatalf("run never parked")
	}
	cancel()
	waitRun(t, runner)

	if state := runner.Snapshot(); state.Running {
		t.Fatalf("cancelled run still marked running")
	}
	if log.Len() != 1 {
		t.Fatalf("cancellation should not log a user stop, got %d entries", log.Len())
	}
}

func TestRetryLastStepIsCosmetic(t *testing.T) {
	log := NewLog()
	runner := NewRunner(log, WithScheduler(clock.Immediate), quietAudit())
	runner.Start(context.Background())
	waitRun(t, runner)
	before := runner.Snapshot()

	entry := runner.RetryLastStep()
	if entry.Category != CategoryInfo || entry.Message != "Retrying last failed step" {
		t.Fatalf("unexpected retry entry: %+v", entry)
	}
	if after := runner.Snapshot(); after != before {
		t.Fatalf("retry changed runner state: before %+v after %+v", before, after)
	}
	if log.Len() != 8 {
		t.Fatalf("expected retry entry to be logged, got %d", log.Len())
	}
}
