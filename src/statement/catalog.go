package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/Grigoriy457/rocketry/src/history"
	"github.com/Grigoriy457/rocketry/src/timeperiod"
)

// AlwaysTrue and AlwaysFalse are the two constant statements, expressed
// through the same Statement machinery as everything else rather than
// as a special-cased condition.Constant, so they compose and compare
// identically to every other built-in.
var (
	AlwaysTrue  = FromFunc("AlwaysTrue", func(*Context, []any, map[string]any) (any, error) { return true, nil })
	AlwaysFalse = FromFunc("AlwaysFalse", func(*Context, []any, map[string]any) (any, error) { return false, nil })
)

// ParamExists returns a statement true iff every key in expected exists
// in session parameters with the expected value.
func ParamExists(expected map[string]any) *Statement {
	return FromFunc("ParamExists", func(c *Context, args []any, kwargs map[string]any) (any, error) {
		exp, _ := kwargs["expected"].(map[string]any)
		for k, v := range exp {
			got, ok := c.Parameters[k]
			if !ok || got != v {
				return false, nil
			}
		}
		return true, nil
	}).WithKwargs(map[string]any{"expected": expected})
}

// IsEnv returns a statement true iff the session's declared environment
// matches env (e.g. "prod", "dev", "test").
func IsEnv(env string) *Statement {
	return FromFunc("IsEnv", func(c *Context, args []any, kwargs map[string]any) (any, error) {
		return c.Env == kwargs["env"], nil
	}).WithKwargs(map[string]any{"env": env})
}

func windowFromKwargs(kwargs map[string]any) history.Filter {
	var filter history.Filter
	if start, ok := kwargs["_start_"].(time.Time); ok {
		filter.After = &start
	}
	if end, ok := kwargs["_end_"].(time.Time); ok {
		filter.Before = &end
	}
	return filter
}

func taskEventObserve(action history.Action) ObserveFunc {
	return func(c *Context, args []any, kwargs map[string]any) (any, error) {
		taskName, _ := kwargs["task"].(string)
		if c.History == nil {
			return 0, nil
		}
		filter := windowFromKwargs(kwargs)
		filter.TaskName = taskName
		filter.Action = action
		events, err := c.History.Get(context.Background(), filter)
		if err != nil {
			return 0, fmt.Errorf("statement: query %s history for %q: %w", action, taskName, err)
		}
		return len(events), nil
	}
}

func newTaskEventStatement(name string, action history.Action, task string, period timeperiod.Period) *Statement {
	s := FromFunc(name, taskEventObserve(action), WithHistorical(), WithComparable()).WithKwargs(map[string]any{"task": task})
	s.Period = period
	return s
}

// TaskStarted, TaskSucceeded and TaskFailed are historical, comparable
// statements counting matching events for task within period (the
// whole history if period is nil).
func TaskStarted(task string, period timeperiod.Period) *Statement {
	return newTaskEventStatement("TaskStarted", history.ActionRun, task, period)
}

func TaskSucceeded(task string, period timeperiod.Period) *Statement {
	return newTaskEventStatement("TaskSucceeded", history.ActionSuccess, task, period)
}

func TaskFailed(task string, period timeperiod.Period) *Statement {
	return newTaskEventStatement("TaskFailed", history.ActionFail, task, period)
}

func TaskTerminated(task string, period timeperiod.Period) *Statement {
	return newTaskEventStatement("TaskTerminated", history.ActionTerminate, task, period)
}

// terminalActions are the actions that close out a run. ActionCrash is
// deliberately excluded: the scheduler always logs a crash alongside a
// fail event for the same run, so counting ActionFail already counts
// every crash once; including ActionCrash too would double-count it.
var terminalActions = []history.Action{history.ActionSuccess, history.ActionFail, history.ActionTerminate}

// TaskFinished counts runs of task that reached any terminal state
// within period.
func TaskFinished(task string, period timeperiod.Period) *Statement {
	s := FromFunc("TaskFinished", func(c *Context, args []any, kwargs map[string]any) (any, error) {
		taskName, _ := kwargs["task"].(string)
		if c.History == nil {
			return 0, nil
		}
		base := windowFromKwargs(kwargs)
		base.TaskName = taskName
		total := 0
		for _, action := range terminalActions {
			filter := base
			filter.Action = action
			events, err := c.History.Get(context.Background(), filter)
			if err != nil {
				return 0, fmt.Errorf("statement: query finished history for %q: %w", taskName, err)
			}
			total += len(events)
		}
		return total, nil
	}, WithHistorical(), WithComparable()).WithKwargs(map[string]any{"task": task})
	s.Period = period
	return s
}

// TaskRunning is true iff the named task currently has an outstanding
// execution (an open run with no matching terminal event yet).
func TaskRunning(task string) *Statement {
	return FromFunc("TaskRunning", func(c *Context, args []any, kwargs map[string]any) (any, error) {
		taskName, _ := kwargs["task"].(string)
		if c.Tasks == nil {
			return false, nil
		}
		state, ok := c.Tasks.Lookup(taskName)
		if !ok {
			return false, nil
		}
		return state.IsRunning(), nil
	}).WithKwargs(map[string]any{"task": task})
}

func latestTerminal(ctx context.Context, store history.Store, taskName string) (history.Event, bool, error) {
	var latest history.Event
	found := false
	for _, action := range terminalActions {
		ev, ok, err := store.Latest(ctx, taskName, action)
		if err != nil {
			return history.Event{}, false, err
		}
		if ok && (!found || ev.Timestamp.After(latest.Timestamp)) {
			latest = ev
			found = true
		}
	}
	return latest, found, nil
}

func dependObserve(required history.Action) ObserveFunc {
	return func(c *Context, args []any, kwargs map[string]any) (any, error) {
		task, _ := kwargs["task"].(string)
		depend, _ := kwargs["depend_task"].(string)
		if c.History == nil {
			return false, nil
		}
		ctx := context.Background()
		dependEvent, ok, err := c.History.Latest(ctx, depend, required)
		if err != nil {
			return false, fmt.Errorf("statement: query latest %s for %q: %w", required, depend, err)
		}
		if !ok {
			return false, nil
		}
		taskRun, hasRun, err := c.History.Latest(ctx, task, history.ActionRun)
		if err != nil {
			return false, fmt.Errorf("statement: query latest run for %q: %w", task, err)
		}
		if !hasRun {
			// task has never run: there is no floor timestamp to exceed,
			// so any recorded occurrence of the dependency's required
			// state is enough to let the first run through.
			return true, nil
		}
		return dependEvent.Timestamp.After(taskRun.Timestamp), nil
	}
}

// DependSuccess, DependFailure and DependFinish are true iff dependTask
// reached the required terminal state strictly after task's own last
// run — the mechanism that lets a start_cond implicitly serialize a
// dependent behind its dependency.
func DependSuccess(task, dependTask string) *Statement {
	return FromFunc("DependSuccess", dependObserve(history.ActionSuccess)).
		WithKwargs(map[string]any{"task": task, "depend_task": dependTask})
}

func DependFailure(task, dependTask string) *Statement {
	return FromFunc("DependFailure", dependObserve(history.ActionFail)).
		WithKwargs(map[string]any{"task": task, "depend_task": dependTask})
}

func DependFinish(task, dependTask string) *Statement {
	return FromFunc("DependFinish", func(c *Context, args []any, kwargs map[string]any) (any, error) {
		if c.History == nil {
			return false, nil
		}
		ctx := context.Background()
		task, _ := kwargs["task"].(string)
		depend, _ := kwargs["depend_task"].(string)
		latest, found, err := latestTerminal(ctx, c.History, depend)
		if err != nil {
			return false, err
		}
		if !found {
			return false, nil
		}
		taskRun, hasRun, err := c.History.Latest(ctx, task, history.ActionRun)
		if err != nil {
			return false, err
		}
		if !hasRun {
			return true, nil
		}
		return latest.Timestamp.After(taskRun.Timestamp), nil
	}).WithKwargs(map[string]any{"task": task, "depend_task": dependTask})
}

// SchedulerStarted reports whether the scheduler's boot time falls
// inside period (the whole run if period is nil).
func SchedulerStarted(period timeperiod.Period) *Statement {
	s := FromFunc("SchedulerStarted", func(c *Context, args []any, kwargs map[string]any) (any, error) {
		if c.SchedulerStartedAt.IsZero() {
			return false, nil
		}
		start, hasStart := kwargs["_start_"].(time.Time)
		end, hasEnd := kwargs["_end_"].(time.Time)
		if !hasStart || !hasEnd {
			return true, nil
		}
		return !c.SchedulerStartedAt.Before(start) && c.SchedulerStartedAt.Before(end), nil
	}, WithHistorical())
	s.Period = period
	return s
}

// SchedulerCycles is a comparable statement over the number of cycles
// the scheduler has run, e.g. SchedulerCycles(nil).Gt(0).
func SchedulerCycles(period timeperiod.Period) *Statement {
	s := FromFunc("SchedulerCycles", func(c *Context, args []any, kwargs map[string]any) (any, error) {
		return c.CycleCount, nil
	}, WithHistorical(), WithComparable())
	s.Period = period
	return s
}

// TimeOfDay, TimeOfWeek, TimeOfMonth and TimeOfYear are period-backed
// statements true iff the evaluation instant falls inside the bound
// period's current window.
func TimeOfDay(p timeperiod.Period) *Statement   { return timeBound("TimeOfDay", p) }
func TimeOfWeek(p timeperiod.Period) *Statement  { return timeBound("TimeOfWeek", p) }
func TimeOfMonth(p timeperiod.Period) *Statement { return timeBound("TimeOfMonth", p) }
func TimeOfYear(p timeperiod.Period) *Statement  { return timeBound("TimeOfYear", p) }

// TimeWithin is the unit-agnostic form of TimeOfDay/Week/Month/Year,
// for callers (like the condition mini-language parser) that build a
// period whose unit isn't known until parse time and so can't pick one
// of the four named wrappers ahead of time.
func TimeWithin(name string, p timeperiod.Period) *Statement { return timeBound(name, p) }

func timeBound(name string, p timeperiod.Period) *Statement {
	s := FromFunc(name, func(c *Context, args []any, kwargs map[string]any) (any, error) {
		period, _ := kwargs["_period_"].(timeperiod.Period)
		if period == nil {
			return true, nil
		}
		return period.Contains(c.Now), nil
	})
	s.Kwargs["_period_"] = p
	return s
}
