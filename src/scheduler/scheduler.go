// SPDX-License-Identifier: MIT
// Package scheduler implements the main loop: once per cycle it snapshots
// the clock, checks the shutdown condition, evaluates every registered
// task's start/end conditions and timeout in insertion order, launches or
// terminates tasks as needed, and appends the resulting events to the
// session's history store.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Grigoriy457/rocketry/src/condition"
	"github.com/Grigoriy457/rocketry/src/config"
	"github.com/Grigoriy457/rocketry/src/history"
	"github.com/Grigoriy457/rocketry/src/metrics"
	"github.com/Grigoriy457/rocketry/src/session"
	"github.com/Grigoriy457/rocketry/src/task"
)

// exitReason records why the main loop stopped, so runOnce knows
// whether to honor Config.Restarting or shut down unconditionally.
type exitReason int

const (
	exitShutCond exitReason = iota
	exitInterrupt
)

// Scheduler drives a session's registered tasks through the cycle
// loop. Tasks are kept in an explicit ordered slice (in addition to the
// session's own name-keyed registry) because launch order within a
// cycle is insertion order, a guarantee a Go map cannot give.
type Scheduler struct {
	Session *session.Session

	mu    sync.Mutex
	tasks []*task.Task
}

// New wires a Scheduler to an existing session. The session must
// already carry the configuration (shut_cond, cycle_sleep, ...) the
// loop reads every cycle.
func New(s *session.Session) *Scheduler {
	return &Scheduler{Session: s}
}

// AddTask registers t both with the session (for name lookup from
// conditions) and with the scheduler's own ordered task list.
func (sc *Scheduler) AddTask(t *task.Task) error {
	if err := sc.Session.AddTask(t); err != nil {
		return err
	}
	sc.mu.Lock()
	sc.tasks = append(sc.tasks, t)
	count := len(sc.tasks)
	sc.mu.Unlock()
	metrics.TasksRegistered.Set(float64(count))
	return nil
}

func (sc *Scheduler) snapshotTasks() []*task.Task {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]*task.Task, len(sc.tasks))
	copy(out, sc.tasks)
	return out
}

// Tasks returns every registered task in launch order, for callers
// (the inspection API, the dashboard) that need more than the
// name/running-state view session.Session.Tasks exposes.
func (sc *Scheduler) Tasks() []*task.Task {
	return sc.snapshotTasks()
}

// Task returns the named task, or nil if it is not registered.
func (sc *Scheduler) Task(name string) *task.Task {
	for _, t := range sc.snapshotTasks() {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func (sc *Scheduler) logger() *slog.Logger {
	if sc.Session.Logger != nil {
		return sc.Session.Logger
	}
	return slog.Default()
}

// Run blocks until ctx is cancelled or, absent cancellation, until
// shut_cond becomes true under a restart policy of "finish". A
// "relaunch"/"recall"/"fresh" policy re-enters the loop instead of
// returning; an external cancellation always wins and returns nil.
func (sc *Scheduler) Run(ctx context.Context) error {
	for {
		restart, err := sc.runOnce(ctx)
		if err != nil {
			return err
		}
		if !restart {
			return nil
		}
	}
}

func (sc *Scheduler) runOnce(ctx context.Context) (restart bool, err error) {
	cfg := sc.Session.Config
	now := time.Now()
	sc.Session.MarkStarted(now)
	sc.logEvent(ctx, "", history.SchedulerStarted, "")

	sc.runLifecycleTasks(ctx, true)

	reason := sc.mainLoop(ctx)
	sc.logEvent(ctx, "", history.SchedulerShutdown, "")

	// An interrupt (operator-requested shutdown) skips on_shutdown by
	// default, same as instant_shutdown — there is no grace period to
	// honor when the process is already being torn down. A normal
	// shut_cond exit runs on_shutdown unless instant_shutdown is set.
	if !cfg.InstantShutdown && reason != exitInterrupt {
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutCycleTimeout.Duration())
		sc.runLifecycleTasks(shutCtx, false)
		cancel()
	}
	sc.terminateRunning(cfg.ShutCycleTimeout.Duration())

	if reason == exitInterrupt {
		return false, nil
	}

	switch cfg.Restarting {
	case config.RestartFinish:
		return false, nil
	case config.RestartFresh:
		sc.resetTasks()
		return true, nil
	default: // relaunch, recall
		return true, nil
	}
}

// mainLoop runs cycles until the shutdown condition is met or ctx is
// cancelled, sleeping cycle_sleep between cycles (or returning early if
// ctx is cancelled mid-sleep). shut_cond is checked once per cycle
// against that cycle's own clock snapshot; the cycle that observes it
// true evaluates no tasks but still counts and logs its scheduler_cycle
// event before the loop exits, so a scheduler that shuts down
// immediately still reports exactly one cycle.
func (sc *Scheduler) mainLoop(ctx context.Context) exitReason {
	cfg := sc.Session.Config
	for {
		select {
		case <-ctx.Done():
			return exitInterrupt
		default:
		}

		now := time.Now()
		evalCtx := sc.Session.EvalContext(now)
		shuttingDown := cfg.ShutCond != nil && cfg.ShutCond.Evaluate(evalCtx)

		if !shuttingDown {
			sc.runCycle(ctx, evalCtx, now)
		}
		sc.Session.IncrementCycle()
		sc.logEvent(ctx, "", history.SchedulerCycle, "")

		metrics.CyclesTotal.Inc()
		metrics.CycleDuration.Observe(time.Since(now).Seconds())
		metrics.Uptime.Set(time.Since(sc.Session.StartedAt()).Seconds())

		if shuttingDown {
			return exitShutCond
		}

		select {
		case <-ctx.Done():
			return exitInterrupt
		case <-time.After(cfg.CycleSleep.Duration()):
		}
	}
}

// runCycle evaluates every registered task once, in insertion order:
// already-running tasks are checked against their timeout and end
// condition; idle tasks are launched if force_run is set or their
// start condition holds.
func (sc *Scheduler) runCycle(ctx context.Context, evalCtx *condition.EvalContext, now time.Time) {
	for _, t := range sc.snapshotTasks() {
		if t.Disabled {
			continue
		}
		if t.IsRunning() {
			sc.checkRunning(ctx, t, now)
			continue
		}
		if !t.ForceRun {
			if t.StartCond == nil || !t.StartCond.Evaluate(evalCtx) {
				continue
			}
		}
		sc.launch(ctx, t)
		t.ForceRun = false
	}
}

func (sc *Scheduler) effectiveTimeout(t *task.Task) time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return sc.Session.Config.Timeout.Duration()
}

// checkRunning handles one already-started task: if it has finished on
// its own, its outcome is recorded; otherwise a blown timeout or a true
// end condition requests termination, which the task reports as
// finished on a later cycle once its body observes the cancellation.
func (sc *Scheduler) checkRunning(ctx context.Context, t *task.Task, now time.Time) {
	if t.Poll() {
		sc.recordCompletion(ctx, t)
		return
	}
	if to := sc.effectiveTimeout(t); to > 0 && now.Sub(t.StartedAt()) > to {
		t.Terminate()
		return
	}
	if t.EndCond != nil {
		evalCtx := sc.Session.EvalContext(now)
		if t.EndCond.Evaluate(evalCtx) {
			t.Terminate()
		}
	}
}

// launch starts t. Main-mode tasks run synchronously inside Run and
// are already finished by the time it returns, so their completion is
// recorded immediately rather than waiting for a future cycle's
// checkRunning to notice (which would never come, since the task is no
// longer running by then).
func (sc *Scheduler) launch(ctx context.Context, t *task.Task) {
	params := sc.Session.Parameters()
	if _, err := t.Run(ctx, params); err != nil {
		sc.logger().Warn("task launch rejected", slog.String("task", t.Name()), slog.String("error", err.Error()))
		return
	}
	if !sc.Session.Config.SilenceTaskPrerun {
		sc.logTaskEvent(ctx, t, history.ActionRun, "")
	}
	metrics.TasksRunning.Inc()
	if t.Poll() {
		sc.recordCompletion(ctx, t)
	}
}

func (sc *Scheduler) recordCompletion(ctx context.Context, t *task.Task) {
	action := actionForStatus(t.Status())
	detail := ""
	if err := t.LastError(); err != nil {
		detail = err.Error()
	}
	if !sc.Session.Config.SilenceTaskLogging {
		sc.logTaskEvent(ctx, t, action, detail)
		// A crash is also a failure: TaskFailed/DependFailure statements
		// query ActionFail, and a crashed task must satisfy them the
		// same way an ordinary failure does.
		if action == history.ActionCrash {
			sc.logTaskEvent(ctx, t, history.ActionFail, detail)
		}
	}
	metrics.TasksRunning.Dec()
	metrics.TaskRunsTotal.WithLabelValues(t.Name(), string(action)).Inc()
	metrics.TaskRunDuration.WithLabelValues(t.Name()).Observe(time.Since(t.StartedAt()).Seconds())
	sc.Session.SetReturn(t.Name(), t.Result())
	t.MarkInactive()
}

func actionForStatus(s task.Status) history.Action {
	switch s {
	case task.StatusSuccess:
		return history.ActionSuccess
	case task.StatusFail:
		return history.ActionFail
	case task.StatusTerminate:
		return history.ActionTerminate
	case task.StatusCrash:
		return history.ActionCrash
	default:
		return history.ActionInactive
	}
}

// runLifecycleTasks runs every on_startup (startup=true) or
// on_shutdown (startup=false) task to completion, ignoring start_cond,
// under the given context (the shutdown pass uses one scoped to
// shut_cycle_timeout so a slow on_shutdown task cannot hang forever).
func (sc *Scheduler) runLifecycleTasks(ctx context.Context, startup bool) {
	for _, t := range sc.snapshotTasks() {
		want := t.OnStartup
		if !startup {
			want = t.OnShutdown
		}
		if !want || t.Disabled {
			continue
		}
		if _, err := t.Run(ctx, sc.Session.Parameters()); err != nil {
			sc.logger().Warn("lifecycle task launch rejected", slog.String("task", t.Name()), slog.String("error", err.Error()))
			continue
		}
		sc.logTaskEvent(ctx, t, history.ActionRun, "")
		metrics.TasksRunning.Inc()
		sc.waitFor(ctx, t)
		sc.recordCompletion(ctx, t)
	}
}

// waitFor blocks until t's current run finishes or ctx is done,
// whichever comes first.
func (sc *Scheduler) waitFor(ctx context.Context, t *task.Task) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if t.Poll() {
			return
		}
		select {
		case <-ctx.Done():
			t.Terminate()
			return
		case <-ticker.C:
		}
	}
}

// terminateRunning cancels every task still running after the main
// loop exits, giving them up to deadline to report back before moving
// on regardless.
func (sc *Scheduler) terminateRunning(deadline time.Duration) {
	tasks := sc.snapshotTasks()
	for _, t := range tasks {
		if t.IsRunning() {
			t.Terminate()
		}
	}
	until := time.Now().Add(deadline)
	for _, t := range tasks {
		for t.IsRunning() && time.Now().Before(until) {
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// resetTasks returns every task to inactive, used by the "fresh"
// restart policy between loop iterations.
func (sc *Scheduler) resetTasks() {
	for _, t := range sc.snapshotTasks() {
		t.MarkInactive()
	}
}

func (sc *Scheduler) logTaskEvent(ctx context.Context, t *task.Task, action history.Action, detail string) {
	ev := history.Event{
		TaskName:  t.Name(),
		Action:    action,
		Timestamp: time.Now(),
		RunID:     t.RunID(),
		Detail:    detail,
	}
	sc.appendEvent(ctx, ev)
}

func (sc *Scheduler) logEvent(ctx context.Context, taskName string, action history.Action, detail string) {
	sc.appendEvent(ctx, history.Event{
		TaskName:  taskName,
		Action:    action,
		Timestamp: time.Now(),
		Detail:    detail,
	})
}

func (sc *Scheduler) appendEvent(ctx context.Context, ev history.Event) {
	if err := sc.Session.History.Log(ctx, ev); err != nil {
		sc.logger().Error("failed to log event", slog.String("action", string(ev.Action)), slog.String("error", err.Error()))
	}
}
