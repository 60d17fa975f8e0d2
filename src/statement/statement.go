// SPDX-License-Identifier: MIT
// Package statement implements the leaf predicates of the condition
// tree: functions that observe domain state (history, parameters, the
// clock) and reduce to true/false, optionally windowed to a time period
// (Historical) or compared against a threshold (Comparable).
package statement

import (
	"log/slog"
	"reflect"
	"time"

	"github.com/Grigoriy457/rocketry/src/condition"
	"github.com/Grigoriy457/rocketry/src/history"
	"github.com/Grigoriy457/rocketry/src/timeperiod"
)

// TaskState is the minimal view a statement needs of a task's live
// state, satisfied structurally by task.Task without this package
// importing it.
type TaskState interface {
	IsRunning() bool
}

// TaskLookup resolves a task by name. The session implements this.
type TaskLookup interface {
	Lookup(name string) (TaskState, bool)
}

// Context is the ambient state available to an observe function: the
// evaluation instant, session parameters, the event log, and a way to
// find other tasks by name.
type Context struct {
	Now                time.Time
	Debug              bool
	Logger             *slog.Logger
	Parameters         map[string]any
	History            history.Store
	Tasks              TaskLookup
	Env                string
	SchedulerStartedAt time.Time
	CycleCount         int
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// FromEvalContext recovers the statement Context that session.Evaluate
// packs into a condition.EvalContext's Domain field. A nil or
// differently-typed Domain yields a minimal Context so leaf statements
// still work in isolation (e.g. in unit tests).
func FromEvalContext(ctx *condition.EvalContext) *Context {
	if ctx == nil {
		return &Context{Now: time.Now()}
	}
	if c, ok := ctx.Domain.(*Context); ok {
		return c
	}
	return &Context{Now: time.Now(), Debug: ctx.Debug, Logger: ctx.Logger}
}

// ObserveFunc is the user logic behind a Statement. It may return a
// bool, a numeric value, or anything with a length (slice, map,
// string) — Comparable statements compare that length/value against
// any thresholds bound via Eq/Ne/Lt/Gt/Le/Ge.
type ObserveFunc func(c *Context, args []any, kwargs map[string]any) (any, error)

// Statement is a leaf Condition built from an ObserveFunc plus bound
// arguments. It implements condition.Condition and condition.Equaler.
type Statement struct {
	Name       string
	Observe    ObserveFunc
	Args       []any
	Kwargs     map[string]any
	Period     timeperiod.Period
	Historical bool
	Comparable bool
	UseGlobals bool
}

// Option configures a Statement at construction time via FromFunc.
type Option func(*Statement)

// WithHistorical marks the statement as period-aware: resolvedKwargs
// injects _start_/_end_ from Period.Rollback(now).
func WithHistorical() Option { return func(s *Statement) { s.Historical = true } }

// WithComparable marks the statement as comparable: its result is
// reduced to a count and checked against any bound Eq/Ne/Lt/Gt/Le/Ge
// thresholds.
func WithComparable() Option { return func(s *Statement) { s.Comparable = true } }

// WithGlobals merges session.Parameters into kwargs at evaluation time,
// with statement-local kwargs winning on collision.
func WithGlobals() Option { return func(s *Statement) { s.UseGlobals = true } }

// WithPeriod binds a time window to a historical statement.
func WithPeriod(p timeperiod.Period) Option {
	return func(s *Statement) { s.Period = p }
}

// FromFunc builds a Statement template from an ObserveFunc, named for
// equality/debugging/logging purposes (two statements of the same
// "class" in the original engine are two Statements here built from
// the same name).
func FromFunc(name string, fn ObserveFunc, opts ...Option) *Statement {
	s := &Statement{Name: name, Observe: fn, Kwargs: map[string]any{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind returns a copy of the template with args/kwargs attached,
// mirroring set_params binding a task= argument without mutating the
// shared template other call sites hold a reference to.
func (s *Statement) Bind(args ...any) *Statement {
	c := s.Copy()
	c.Args = append(c.Args, args...)
	return c
}

// WithKwargs returns a copy with the given kwargs merged in.
func (s *Statement) WithKwargs(kwargs map[string]any) *Statement {
	c := s.Copy()
	for k, v := range kwargs {
		c.Kwargs[k] = v
	}
	return c
}

// Copy performs the shallow copy the original engine relies on:
// args/kwargs get their own backing storage, but values inside them
// (e.g. a bound task reference) are shared with the original.
func (s *Statement) Copy() *Statement {
	c := *s
	c.Args = append([]any(nil), s.Args...)
	c.Kwargs = make(map[string]any, len(s.Kwargs))
	for k, v := range s.Kwargs {
		c.Kwargs[k] = v
	}
	return &c
}

// SetParams is the mutating counterpart of Bind/WithKwargs, used when
// a caller owns the Statement outright and wants to extend it in
// place rather than branch off a copy.
func (s *Statement) SetParams(args []any, kwargs map[string]any) {
	s.Args = append(s.Args, args...)
	for k, v := range kwargs {
		s.Kwargs[k] = v
	}
}

func (s *Statement) String() string { return s.Name }

// resolvedKwargs builds the kwargs an observe call actually receives:
// global session parameters merged in first (if UseGlobals), local
// kwargs winning on collision, then the historical window if Period is
// set.
func (s *Statement) resolvedKwargs(c *Context) map[string]any {
	kwargs := s.Kwargs
	if s.UseGlobals && c.Parameters != nil {
		merged := make(map[string]any, len(c.Parameters)+len(s.Kwargs))
		for k, v := range c.Parameters {
			merged[k] = v
		}
		for k, v := range s.Kwargs {
			merged[k] = v
		}
		kwargs = merged
	}
	if s.Historical && s.Period != nil {
		cloned := make(map[string]any, len(kwargs)+2)
		for k, v := range kwargs {
			cloned[k] = v
		}
		iv := s.Period.Rollback(c.Now)
		cloned["_start_"] = iv.Left
		cloned["_end_"] = iv.Right
		kwargs = cloned
	}
	return kwargs
}

// Evaluate runs the bound observe function under the engine-wide
// failure policy (condition.Safe): an error swallows to false and logs
// unless ctx.Debug or the error must always propagate.
func (s *Statement) Evaluate(ctx *condition.EvalContext) bool {
	c := FromEvalContext(ctx)
	return condition.Safe(ctx, s.Name, func() (bool, error) {
		kwargs := s.resolvedKwargs(c)
		result, err := s.Observe(c, s.Args, kwargs)
		if err != nil {
			return false, err
		}
		return s.toBool(result, kwargs), nil
	})
}

func (s *Statement) toBool(result any, kwargs map[string]any) bool {
	if b, ok := result.(bool); ok {
		return b
	}
	count := toCount(result)
	if !s.Comparable {
		return count > 0
	}
	comps := extractComparators(kwargs)
	if len(comps) == 0 {
		return count > 0
	}
	for op, val := range comps {
		if !compareCount(op, count, val) {
			return false
		}
	}
	return true
}

// toCount reduces an observe result to an integer: pass-through for
// numeric results, length for anything with one (slice, map, string).
func toCount(result any) int {
	switch v := result.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	rv := reflect.ValueOf(result)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return 0
	}
}

const (
	compEq = "_eq_"
	compNe = "_ne_"
	compLt = "_lt_"
	compGt = "_gt_"
	compLe = "_le_"
	compGe = "_ge_"
)

func extractComparators(kwargs map[string]any) map[string]any {
	comps := make(map[string]any, 6)
	for _, key := range []string{compEq, compNe, compLt, compGt, compLe, compGe} {
		if v, ok := kwargs[key]; ok {
			comps[key] = v
		}
	}
	return comps
}

func compareCount(op string, count int, val any) bool {
	threshold := toCount(val)
	switch op {
	case compEq:
		return count == threshold
	case compNe:
		return count != threshold
	case compLt:
		return count < threshold
	case compGt:
		return count > threshold
	case compLe:
		return count <= threshold
	case compGe:
		return count >= threshold
	default:
		return false
	}
}

// Eq, Ne, Lt, Gt, Le, Ge bind a comparison threshold to a Comparable
// statement, returning a copy rather than mutating the receiver — the
// same template can be compared multiple ways from different call
// sites. These are explicit builder methods rather than operator
// overloading, since Go has none to give them.
func (s *Statement) Eq(v any) *Statement { return s.withComparator(compEq, v) }
func (s *Statement) Ne(v any) *Statement { return s.withComparator(compNe, v) }
func (s *Statement) Lt(v any) *Statement { return s.withComparator(compLt, v) }
func (s *Statement) Gt(v any) *Statement { return s.withComparator(compGt, v) }
func (s *Statement) Le(v any) *Statement { return s.withComparator(compLe, v) }
func (s *Statement) Ge(v any) *Statement { return s.withComparator(compGe, v) }

func (s *Statement) withComparator(key string, v any) *Statement {
	c := s.Copy()
	c.Kwargs[key] = v
	return c
}

// EqualCondition implements condition.Equaler: two statements are equal
// if built from the same named observe function with structurally
// identical args, kwargs and (for historical statements) period. This
// deliberately ignores any session/task binding carried only via
// pointer identity inside Args/Kwargs.
func (s *Statement) EqualCondition(other condition.Condition) bool {
	o, ok := other.(*Statement)
	if !ok || o == nil {
		return false
	}
	if s.Name != o.Name {
		return false
	}
	if !reflect.DeepEqual(s.Args, o.Args) {
		return false
	}
	if !reflect.DeepEqual(s.Kwargs, o.Kwargs) {
		return false
	}
	if s.Historical {
		return reflect.DeepEqual(s.Period, o.Period)
	}
	return true
}
