// SPDX-License-Identifier: MIT
// Package condition implements the boolean predicate algebra the
// scheduler evaluates once per cycle against each task's start, run and
// end conditions. Leaf predicates are supplied by the statement package;
// this package only provides the combinators (And, Or, Not, All, Any)
// and the shared failure policy for evaluating a leaf that panics or
// returns an error.
package condition

import (
	"log/slog"

	"github.com/Grigoriy457/rocketry/src/errs"
)

// Condition is any node of the predicate tree. Evaluate must be pure
// with respect to domain state: it may read history, parameters and the
// clock, but must never mutate them.
type Condition interface {
	Evaluate(ctx *EvalContext) bool
	String() string
}

// EvalContext carries the ambient state a Condition tree needs to
// evaluate itself: whether failures should propagate (debug mode) and
// where to log swallowed failures. Domain holds whatever
// session/statement-level state leaf conditions need (session
// parameters, the history store, task lookups); this package never
// looks inside it, it just threads it through the tree unchanged.
type EvalContext struct {
	Debug  bool
	Logger *slog.Logger
	Domain any
}

func (c *EvalContext) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Safe runs fn and applies the engine-wide failure policy: a returned
// error makes the predicate evaluate to false and gets logged at error
// level, unless ctx.Debug is set (in which case it panics so the caller
// sees the failure) or the error is one of the two classes that must
// always propagate — interrupt-style cancellation and a dependency
// failing to load.
func Safe(ctx *EvalContext, name string, fn func() (bool, error)) bool {
	result, err := fn()
	if err == nil {
		return result
	}
	if errs.AlwaysReraise(err) {
		panic(err)
	}
	if ctx != nil && ctx.Debug {
		panic(err)
	}
	logger := slog.Default()
	if ctx != nil {
		logger = ctx.logger()
	}
	logger.Error("condition evaluation failed", slog.String("condition", name), slog.String("error", err.Error()))
	return false
}
