package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Grigoriy457/rocketry/src/config"
	"github.com/Grigoriy457/rocketry/src/history"
	"github.com/Grigoriy457/rocketry/src/session"
	"github.com/Grigoriy457/rocketry/src/statement"
	"github.com/Grigoriy457/rocketry/src/task"
)

func newTestSession(cycles int) *session.Session {
	cfg := config.Default()
	cfg.CycleSleep = config.Duration(time.Millisecond)
	cfg.ShutCond = statement.SchedulerCycles(nil).Ge(cycles)
	cfg.Restarting = config.RestartFinish
	return session.New(cfg)
}

func TestSchedulerRunsTaskEachCycleUntilShutCond(t *testing.T) {
	var runs int32
	tk := task.New("greet", func(ctx context.Context, params map[string]any) (any, error) {
		atomic.AddInt32(&runs, 1)
		return nil, nil
	}, task.ExecutionMain)
	tk.StartCond = statement.AlwaysTrue

	s := newTestSession(3)
	sc := New(s)
	if err := sc.AddTask(tk); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := atomic.LoadInt32(&runs); got < 2 {
		t.Errorf("expected the task to run at least twice before shutdown, ran %d times", got)
	}

	events, _ := s.History.Get(context.Background(), history.Filter{TaskName: "greet", Action: history.ActionSuccess})
	if len(events) == 0 {
		t.Error("expected at least one recorded success event for the task")
	}
}

func TestSchedulerHonorsDisabled(t *testing.T) {
	var runs int32
	tk := task.New("skip-me", func(ctx context.Context, params map[string]any) (any, error) {
		atomic.AddInt32(&runs, 1)
		return nil, nil
	}, task.ExecutionMain)
	tk.StartCond = statement.AlwaysTrue
	tk.Disabled = true

	s := newTestSession(2)
	sc := New(s)
	sc.AddTask(tk)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sc.Run(ctx)

	if atomic.LoadInt32(&runs) != 0 {
		t.Error("expected a disabled task to never run")
	}
}

func TestEmptySessionLogsStartCycleShutdownOnce(t *testing.T) {
	cfg := config.Default()
	cfg.ShutCond = statement.AlwaysTrue
	cfg.Restarting = config.RestartFinish
	s := session.New(cfg)
	sc := New(s)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	started, _ := s.History.Get(context.Background(), history.Filter{Action: history.SchedulerStarted})
	cycles, _ := s.History.Get(context.Background(), history.Filter{Action: history.SchedulerCycle})
	shutdowns, _ := s.History.Get(context.Background(), history.Filter{Action: history.SchedulerShutdown})
	if len(started) != 1 || len(cycles) != 1 || len(shutdowns) != 1 {
		t.Errorf("expected exactly one start/cycle/shutdown event, got %d/%d/%d", len(started), len(cycles), len(shutdowns))
	}
}

func TestSchedulerFinishRestartModeReturnsOnShutCond(t *testing.T) {
	s := newTestSession(1)
	sc := New(s)

	done := make(chan struct{})
	go func() {
		sc.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to return once shut_cond held true under finish restart policy")
	}
}

func TestSchedulerTerminatesOnTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	tk := task.New("slow", func(ctx context.Context, params map[string]any) (any, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, ctx.Err()
	}, task.ExecutionThread)
	tk.StartCond = statement.AlwaysTrue
	tk.Timeout = 10 * time.Millisecond

	s := newTestSession(5)
	s.Config.CycleSleep = config.Duration(5 * time.Millisecond)
	sc := New(s)
	sc.AddTask(tk)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sc.Run(ctx)

	events, _ := s.History.Get(context.Background(), history.Filter{TaskName: "slow", Action: history.ActionTerminate})
	if len(events) == 0 {
		t.Error("expected a terminate event recorded after the task's timeout elapsed")
	}
}

func TestSchedulerCrashAlsoLogsFail(t *testing.T) {
	tk := task.New("boom", func(ctx context.Context, params map[string]any) (any, error) {
		panic("boom")
	}, task.ExecutionMain)
	tk.StartCond = statement.AlwaysTrue

	s := newTestSession(1)
	sc := New(s)
	sc.AddTask(tk)
	sc.Run(context.Background())

	ctx := context.Background()
	crashes, _ := s.History.Get(ctx, history.Filter{TaskName: "boom", Action: history.ActionCrash})
	if len(crashes) == 0 {
		t.Fatal("expected a crash event recorded")
	}
	fails, _ := s.History.Get(ctx, history.Filter{TaskName: "boom", Action: history.ActionFail})
	if len(fails) == 0 {
		t.Error("expected a crash to also log a fail event, so TaskFailed/DependFailure observe it")
	}
}
