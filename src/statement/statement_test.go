package statement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Grigoriy457/rocketry/src/condition"
	"github.com/Grigoriy457/rocketry/src/history"
	"github.com/Grigoriy457/rocketry/src/timeperiod"
)

func evalCtx(c *Context) *condition.EvalContext {
	return &condition.EvalContext{Debug: c.Debug, Domain: c}
}

func TestAlwaysTrueFalse(t *testing.T) {
	ctx := evalCtx(&Context{})
	if !AlwaysTrue.Evaluate(ctx) {
		t.Error("AlwaysTrue should evaluate true")
	}
	if AlwaysFalse.Evaluate(ctx) {
		t.Error("AlwaysFalse should evaluate false")
	}
}

func TestParamExists(t *testing.T) {
	c := &Context{Parameters: map[string]any{"env": "prod", "region": "eu"}}
	ctx := evalCtx(c)

	ok := ParamExists(map[string]any{"env": "prod"})
	if !ok.Evaluate(ctx) {
		t.Error("expected ParamExists to hold for matching param")
	}

	bad := ParamExists(map[string]any{"env": "staging"})
	if bad.Evaluate(ctx) {
		t.Error("expected ParamExists to fail for mismatched param")
	}
}

func TestComparableEqGtLt(t *testing.T) {
	store := history.NewMemoryStore()
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		store.Log(context.Background(), history.Event{
			TaskName: "task-a", Action: history.ActionSuccess, Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
	}

	c := &Context{History: store, Now: base.Add(2 * time.Hour)}
	ctx := evalCtx(c)

	succeeded := TaskSucceeded("task-a", nil)
	if !succeeded.Ge(3).Evaluate(ctx) {
		t.Error("expected TaskSucceeded(task-a) >= 3 to hold")
	}
	if succeeded.Eq(5).Evaluate(ctx) {
		t.Error("expected TaskSucceeded(task-a) == 5 to fail")
	}
	if !succeeded.Lt(10).Evaluate(ctx) {
		t.Error("expected TaskSucceeded(task-a) < 10 to hold")
	}
}

func TestHistoricalInjectsWindow(t *testing.T) {
	store := history.NewMemoryStore()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.Log(context.Background(), history.Event{TaskName: "a", Action: history.ActionRun, Timestamp: base.Add(-48 * time.Hour)})
	store.Log(context.Background(), history.Event{TaskName: "a", Action: history.ActionRun, Timestamp: base})

	daily := timeperiod.NewDaily(nil, nil)
	c := &Context{History: store, Now: base}
	ctx := evalCtx(c)

	started := TaskStarted("a", daily)
	if !started.Gt(0).Evaluate(ctx) {
		t.Error("expected TaskStarted(a, daily) to find today's run")
	}
}

func TestTaskRunning(t *testing.T) {
	c := &Context{Tasks: fakeLookup{"a": true, "b": false}}
	ctx := evalCtx(c)

	if !TaskRunning("a").Evaluate(ctx) {
		t.Error("expected TaskRunning(a) to be true")
	}
	if TaskRunning("b").Evaluate(ctx) {
		t.Error("expected TaskRunning(b) to be false")
	}
	if TaskRunning("missing").Evaluate(ctx) {
		t.Error("expected TaskRunning(missing) to be false")
	}
}

func TestDependSuccess(t *testing.T) {
	store := history.NewMemoryStore()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.Log(context.Background(), history.Event{TaskName: "dependent", Action: history.ActionRun, Timestamp: base})
	store.Log(context.Background(), history.Event{TaskName: "dependency", Action: history.ActionSuccess, Timestamp: base.Add(time.Minute)})

	c := &Context{History: store}
	ctx := evalCtx(c)

	if !DependSuccess("dependent", "dependency").Evaluate(ctx) {
		t.Error("expected DependSuccess to hold when dependency finished after dependent's run")
	}

	store2 := history.NewMemoryStore()
	store2.Log(context.Background(), history.Event{TaskName: "dependent", Action: history.ActionRun, Timestamp: base})
	store2.Log(context.Background(), history.Event{TaskName: "dependency", Action: history.ActionSuccess, Timestamp: base.Add(-time.Minute)})
	c2 := &Context{History: store2}
	if DependSuccess("dependent", "dependency").Evaluate(evalCtx(c2)) {
		t.Error("expected DependSuccess to fail when dependency finished before dependent's run")
	}
}

func TestDependSuccessAllowsFirstRunWithNoPriorHistory(t *testing.T) {
	store := history.NewMemoryStore()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store.Log(context.Background(), history.Event{TaskName: "dependency", Action: history.ActionSuccess, Timestamp: base})

	c := &Context{History: store}
	if !DependSuccess("dependent", "dependency").Evaluate(evalCtx(c)) {
		t.Error("expected DependSuccess to hold for a never-run dependent once the dependency has succeeded at least once")
	}

	empty := &Context{History: history.NewMemoryStore()}
	if DependSuccess("dependent", "dependency").Evaluate(evalCtx(empty)) {
		t.Error("expected DependSuccess to fail when the dependency itself has never succeeded")
	}
}

func TestEqualityIgnoresBindingButComparesStructure(t *testing.T) {
	a := TaskSucceeded("x", nil).Ge(3)
	b := TaskSucceeded("x", nil).Ge(3)
	if !a.EqualCondition(b) {
		t.Error("expected structurally identical statements to be equal")
	}

	c := TaskSucceeded("y", nil).Ge(3)
	if a.EqualCondition(c) {
		t.Error("expected statements with different args to be unequal")
	}
}

func TestSetParamsDoesNotMutateTemplate(t *testing.T) {
	template := FromFunc("echo", func(c *Context, args []any, kwargs map[string]any) (any, error) {
		return true, nil
	})
	bound := template.Bind("task-x")
	if len(template.Args) != 0 {
		t.Errorf("expected template args untouched, got %v", template.Args)
	}
	if len(bound.Args) != 1 || bound.Args[0] != "task-x" {
		t.Errorf("expected bound statement to carry the new arg, got %v", bound.Args)
	}
}

func TestDebugPropagatesObserveError(t *testing.T) {
	boom := FromFunc("boom", func(c *Context, args []any, kwargs map[string]any) (any, error) {
		return nil, errors.New("kaboom")
	})
	ctx := &condition.EvalContext{Debug: true, Domain: &Context{Debug: true}}
	defer func() {
		if recover() == nil {
			t.Error("expected debug mode to propagate the observe error as a panic")
		}
	}()
	boom.Evaluate(ctx)
}

type fakeLookup map[string]bool

func (f fakeLookup) Lookup(name string) (TaskState, bool) {
	running, ok := f[name]
	if !ok {
		return nil, false
	}
	return fakeTaskState(running), true
}

type fakeTaskState bool

func (f fakeTaskState) IsRunning() bool { return bool(f) }
