// SPDX-License-Identifier: MIT
package dictconfig

import (
	"fmt"

	"github.com/Grigoriy457/rocketry/src/condition"
	"github.com/Grigoriy457/rocketry/src/condlang"
	"github.com/Grigoriy457/rocketry/src/errs"
	"github.com/Grigoriy457/rocketry/src/statement"
	"github.com/Grigoriy457/rocketry/src/task"
)

// expandSequences rewrites every task named in a sequence's task list
// into a dependency chain: the first task's start_cond is its own
// declared condition ANDed with the sequence's own declared start_cond
// (either may be absent); every later task's start_cond is its own
// declared condition ANDed with DependSuccess on the task immediately
// before it in the list. A task referenced by more than one sequence
// is rewritten by whichever sequence is processed last — chaining the
// same task into two independent predecessor relationships at once
// isn't expressible as a single start_cond without an explicit Any(),
// which the grammar doesn't provide for sequences.
func expandSequences(built map[string]*task.Task, sequences []struct {
	name string
	spec SequenceSpec
}) error {
	for _, seq := range sequences {
		var seqStartCond condition.Condition
		if seq.spec.StartCond != "" {
			cond, err := condlang.Parse(seq.spec.StartCond)
			if err != nil {
				return errs.New(errs.KindConfig, "parse sequence start_cond").WithInternal(err).WithTask(seq.name)
			}
			seqStartCond = cond
		}

		var prev string
		for i, taskName := range seq.spec.Tasks {
			tk, ok := built[taskName]
			if !ok {
				return errs.New(errs.KindConfig, fmt.Sprintf("sequence %q references unknown task %q", seq.name, taskName))
			}

			if i == 0 {
				tk.StartCond = andOptional(tk.StartCond, seqStartCond)
			} else {
				tk.StartCond = andOptional(tk.StartCond, statement.DependSuccess(taskName, prev))
			}
			prev = taskName
		}
	}
	return nil
}

// andOptional ANDs a and b together, treating either as absent if nil:
// both nil yields nil, exactly one yields the other unchanged.
func andOptional(a, b condition.Condition) condition.Condition {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return condition.And(a, b)
	}
}
