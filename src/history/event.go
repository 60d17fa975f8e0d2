// SPDX-License-Identifier: MIT
// Package history defines the event log the scheduler appends to on
// every task state transition, and the pluggable Store interface
// statements query when evaluating historical conditions.
package history

import "time"

// Action names a task lifecycle transition recorded in the log.
type Action string

const (
	ActionRun         Action = "run"
	ActionSuccess     Action = "success"
	ActionFail        Action = "fail"
	ActionTerminate   Action = "terminate"
	ActionCrash       Action = "crash"
	ActionInactive    Action = "inactive"
	SchedulerCycle    Action = "scheduler_cycle"
	SchedulerStarted  Action = "scheduler_started"
	SchedulerShutdown Action = "scheduler_shutdown"
)

// Event is one row of the log: a task transitioning through Action at
// Timestamp, optionally tagged with the RunID of the execution it
// belongs to and a free-form Detail (e.g. an error message on fail).
type Event struct {
	TaskName  string
	Action    Action
	Timestamp time.Time
	RunID     string
	Detail    string
}
