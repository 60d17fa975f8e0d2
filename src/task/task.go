// SPDX-License-Identifier: MIT
// Package task implements the supervised unit of work the scheduler
// launches, watches and terminates: its lifecycle state machine and
// its four execution modes (main, thread, process, async).
package task

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Grigoriy457/rocketry/src/condition"
)

// Execution names how a task's body is run.
type Execution string

const (
	// ExecutionMain runs the task body synchronously in the caller's
	// goroutine (the scheduler loop itself), blocking the loop until it
	// finishes — suitable only for very fast, trusted work.
	ExecutionMain Execution = "main"
	// ExecutionThread runs the task body in a new goroutine, cancelled
	// via context on Terminate.
	ExecutionThread Execution = "thread"
	// ExecutionProcess runs Command as a child process, killed on
	// Terminate.
	ExecutionProcess Execution = "process"
	// ExecutionAsync is like ExecutionThread but signals the intent that
	// the body itself participates in cooperative cancellation (honors
	// ctx.Done() at fine granularity) rather than running to completion
	// regardless of the cancellation request.
	ExecutionAsync Execution = "async"
)

// Status is a task's position in the lifecycle state machine.
type Status string

const (
	StatusInactive  Status = "inactive"
	StatusRunning   Status = "run"
	StatusSuccess   Status = "success"
	StatusFail      Status = "fail"
	StatusTerminate Status = "terminate"
	StatusCrash     Status = "crash"
)

// Func is a task body run in-process (main/thread/async execution).
type Func func(ctx context.Context, params map[string]any) (any, error)

// Task is the supervised unit the scheduler evaluates and runs each
// cycle. Condition fields (StartCond/RunCond/EndCond) are settable any
// time the task is not mid-run; the scheduler reads them once per
// cycle under its own snapshot of session state.
type Task struct {
	mu sync.Mutex

	name string

	// Func is the in-process body for main/thread/async execution.
	// Command is the argv for process execution. Exactly one applies,
	// selected by Execution.
	Func    Func
	Command []string

	StartCond  condition.Condition
	RunCond    condition.Condition
	EndCond    condition.Condition
	Timeout    time.Duration
	Execution  Execution
	OnStartup  bool
	OnShutdown bool
	ForceRun   bool
	Disabled   bool

	status    Status
	runID     string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	cmd       *exec.Cmd
	result    any
	lastErr   error

	lastRun       time.Time
	lastSuccess   time.Time
	lastFail      time.Time
	lastTerminate time.Time
}

// New constructs an inactive task. StartCond/EndCond default to nil
// (the scheduler never launches on a nil StartCond and never
// terminates on a nil EndCond);
// callers typically set them before registering the task with a
// session.
func New(name string, fn Func, execution Execution) *Task {
	return &Task{name: name, Func: fn, Execution: execution, status: StatusInactive}
}

// NewProcess constructs a task whose body is an external command,
// always run under ExecutionProcess.
func NewProcess(name string, command []string) *Task {
	return &Task{name: name, Command: command, Execution: ExecutionProcess, status: StatusInactive}
}

func (t *Task) Name() string { return t.name }

func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// IsRunning implements statement.TaskState.
func (t *Task) IsRunning() bool { return t.Status() == StatusRunning }

// IsAlive reports whether the task has an outstanding execution —
// identical to IsRunning, kept as a distinct method name to match the
// public contract's is_alive() vocabulary.
func (t *Task) IsAlive() bool { return t.IsRunning() }

// RunID returns the identifier of the current or most recently
// completed run, or "" if the task has never run.
func (t *Task) RunID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runID
}

// StartedAt returns the instant the current (or last) run began.
func (t *Task) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}

// Result returns the value the last successful run returned.
func (t *Task) Result() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// LastError returns the error the last failed/crashed run produced.
func (t *Task) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// LastRun returns when the task's most recent execution started, or
// the zero Time if it has never run.
func (t *Task) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRun
}

// LastSuccess returns when the task's most recent run finished
// successfully, or the zero Time if it never has.
func (t *Task) LastSuccess() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSuccess
}

// LastFail returns when the task's most recent run ended in failure or
// a crash (a crash counts as a fail, per the lifecycle contract), or
// the zero Time if it never has.
func (t *Task) LastFail() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFail
}

// LastTerminate returns when the task's most recent run was terminated
// by the scheduler, or the zero Time if it never has.
func (t *Task) LastTerminate() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTerminate
}

// Run launches the task body under the given parameters, returning
// the new run's ID. For ExecutionMain it blocks until the body
// returns; every other mode returns immediately, with the body
// executing in the background.
func (t *Task) Run(parentCtx context.Context, params map[string]any) (string, error) {
	t.mu.Lock()
	if t.status == StatusRunning {
		t.mu.Unlock()
		return "", fmt.Errorf("task: %q is already running", t.name)
	}
	ctx, cancel := context.WithCancel(parentCtx)
	runID := uuid.NewString()
	done := make(chan struct{})
	t.cancel = cancel
	t.runID = runID
	t.status = StatusRunning
	t.startedAt = time.Now()
	t.lastRun = t.startedAt
	t.done = done
	t.lastErr = nil
	t.mu.Unlock()

	switch t.Execution {
	case ExecutionMain:
		t.execute(ctx, params, done)
	case ExecutionProcess:
		go t.executeProcess(ctx, params, done)
	default: // ExecutionThread, ExecutionAsync
		go t.execute(ctx, params, done)
	}
	return runID, nil
}

// execute runs Func and records the terminal status. A panic inside
// Func is recovered and treated as a crash (folded into fail, per the
// lifecycle contract).
func (t *Task) execute(ctx context.Context, params map[string]any, done chan struct{}) {
	result, err, crashed := t.invoke(ctx, params)
	t.finish(ctx, result, err, crashed)
	close(done)
}

func (t *Task) invoke(ctx context.Context, params map[string]any) (result any, err error, crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", t.name, r)
			crashed = true
		}
	}()
	result, err = t.Func(ctx, params)
	return result, err, false
}

func (t *Task) executeProcess(ctx context.Context, params map[string]any, done chan struct{}) {
	defer close(done)
	if len(t.Command) == 0 {
		t.finish(ctx, nil, fmt.Errorf("task %q: process execution with no command", t.name), false)
		return
	}
	cmd := exec.CommandContext(ctx, t.Command[0], t.Command[1:]...)
	cmd.Env = envFromParams(params)
	t.mu.Lock()
	t.cmd = cmd
	t.mu.Unlock()
	out, err := cmd.Output()
	t.finish(ctx, string(out), err, false)
}

func envFromParams(params map[string]any) []string {
	env := make([]string, 0, len(params))
	for k, v := range params {
		env = append(env, fmt.Sprintf("%s=%v", k, v))
	}
	return env
}

// finish records the terminal event. A context cancellation (the
// scheduler called Terminate, or deadline elapsed) always resolves to
// StatusTerminate regardless of what the body itself returned, since
// the cancellation request is what the scheduler and its callers care
// about.
func (t *Task) finish(ctx context.Context, result any, err error, crashed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	switch {
	case ctx.Err() == context.Canceled:
		t.status = StatusTerminate
		t.lastTerminate = now
	case crashed:
		t.status = StatusCrash
		t.lastErr = err
		t.lastFail = now
	case err != nil:
		t.status = StatusFail
		t.lastErr = err
		t.lastFail = now
	default:
		t.status = StatusSuccess
		t.result = result
		t.lastSuccess = now
	}
}

// Terminate requests cancellation of the running execution. It is
// idempotent: calling it when the task is not running, or calling it
// twice, is a no-op beyond the first cancellation.
func (t *Task) Terminate() {
	t.mu.Lock()
	cancel := t.cancel
	cmd := t.cmd
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
}

// Poll reports whether the current run has finished without blocking.
// It returns true if the task was never started or has already
// finished.
func (t *Task) Poll() bool {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// MarkInactive resets a finished task back to inactive, so it can be
// evaluated against StartCond again next cycle.
func (t *Task) MarkInactive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		t.status = StatusInactive
	}
}
