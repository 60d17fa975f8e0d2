package task

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitDone(t *testing.T, tk *Task) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !tk.Poll() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for task to finish")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestMainExecutionRunsSynchronously(t *testing.T) {
	tk := New("sync-task", func(ctx context.Context, params map[string]any) (any, error) {
		return "ok", nil
	}, ExecutionMain)

	if _, err := tk.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tk.Status() != StatusSuccess {
		t.Fatalf("expected success after synchronous main-mode run, got %s", tk.Status())
	}
	if tk.Result() != "ok" {
		t.Errorf("expected result %q, got %v", "ok", tk.Result())
	}
}

func TestThreadExecutionReturnsImmediately(t *testing.T) {
	release := make(chan struct{})
	tk := New("thread-task", func(ctx context.Context, params map[string]any) (any, error) {
		<-release
		return nil, nil
	}, ExecutionThread)

	if _, err := tk.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !tk.IsRunning() {
		t.Fatal("expected task to still be running immediately after Run returns")
	}
	close(release)
	waitDone(t, tk)
	if tk.Status() != StatusSuccess {
		t.Fatalf("expected success, got %s", tk.Status())
	}
}

func TestTerminateCancelsRunningTask(t *testing.T) {
	tk := New("cancelable", func(ctx context.Context, params map[string]any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, ExecutionThread)

	if _, err := tk.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	tk.Terminate()
	waitDone(t, tk)
	if tk.Status() != StatusTerminate {
		t.Fatalf("expected terminate status, got %s", tk.Status())
	}
	// Idempotent: calling Terminate again on a finished task must not panic.
	tk.Terminate()
}

func TestFailedRunRecordsError(t *testing.T) {
	boom := errors.New("boom")
	tk := New("failing", func(ctx context.Context, params map[string]any) (any, error) {
		return nil, boom
	}, ExecutionMain)

	tk.Run(context.Background(), nil)
	if tk.Status() != StatusFail {
		t.Fatalf("expected fail status, got %s", tk.Status())
	}
	if !errors.Is(tk.LastError(), boom) {
		t.Errorf("expected LastError to wrap %v, got %v", boom, tk.LastError())
	}
}

func TestPanicIsTreatedAsCrash(t *testing.T) {
	tk := New("panics", func(ctx context.Context, params map[string]any) (any, error) {
		panic("kaboom")
	}, ExecutionMain)

	tk.Run(context.Background(), nil)
	if tk.Status() != StatusCrash {
		t.Fatalf("expected crash status, got %s", tk.Status())
	}
	if tk.LastFail().IsZero() {
		t.Error("expected LastFail to be set by a crash, since a crash folds into fail")
	}
}

func TestLastTimestampsTrackEachTerminalOutcome(t *testing.T) {
	tk := New("flaky", func(ctx context.Context, params map[string]any) (any, error) {
		return nil, errors.New("boom")
	}, ExecutionMain)

	if !tk.LastRun().IsZero() || !tk.LastFail().IsZero() || !tk.LastSuccess().IsZero() {
		t.Fatal("expected all timestamps zero before the first run")
	}

	tk.Run(context.Background(), nil)
	if tk.LastRun().IsZero() {
		t.Error("expected LastRun to be set after running")
	}
	if tk.LastFail().IsZero() {
		t.Error("expected LastFail to be set after a failed run")
	}
	if !tk.LastSuccess().IsZero() {
		t.Error("expected LastSuccess to remain zero after a failed run")
	}

	tk.Func = func(ctx context.Context, params map[string]any) (any, error) { return "ok", nil }
	tk.Run(context.Background(), nil)
	if tk.LastSuccess().IsZero() {
		t.Error("expected LastSuccess to be set after a successful run")
	}
}

func TestRunWhileRunningIsRejected(t *testing.T) {
	release := make(chan struct{})
	tk := New("busy", func(ctx context.Context, params map[string]any) (any, error) {
		<-release
		return nil, nil
	}, ExecutionThread)

	tk.Run(context.Background(), nil)
	if _, err := tk.Run(context.Background(), nil); err == nil {
		t.Error("expected Run to reject a second concurrent start")
	}
	close(release)
	waitDone(t, tk)
}

func TestMarkInactiveResetsFinishedTask(t *testing.T) {
	tk := New("resettable", func(ctx context.Context, params map[string]any) (any, error) {
		return nil, nil
	}, ExecutionMain)

	tk.Run(context.Background(), nil)
	tk.MarkInactive()
	if tk.Status() != StatusInactive {
		t.Errorf("expected inactive after MarkInactive, got %s", tk.Status())
	}
}
