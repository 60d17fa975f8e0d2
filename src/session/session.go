// SPDX-License-Identifier: MIT
// Package session implements the registry tasks, conditions and the
// scheduler use to find each other: named task lookup, shared
// parameters/returns, the event store, and the process-wide default
// session handle.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Grigoriy457/rocketry/src/condition"
	"github.com/Grigoriy457/rocketry/src/config"
	"github.com/Grigoriy457/rocketry/src/errs"
	"github.com/Grigoriy457/rocketry/src/history"
	"github.com/Grigoriy457/rocketry/src/statement"
)

// Task is the minimal view a session needs of a registered task: a
// name to index by, and the TaskState statement-level conditions query
// through TaskLookup. The task package's *task.Task satisfies this
// structurally; session never imports task, avoiding the ownership
// cycle the original engine had between Task and Session.
type Task interface {
	Name() string
	statement.TaskState
}

// Session is the registry: named tasks, shared parameters/returns, the
// event store, and the environment tag statements like IsEnv read.
// Parameters and Returns follow a single-writer/multi-reader
// discipline: the scheduler loop is the only writer, but any goroutine
// may read concurrently under the RWMutex.
type Session struct {
	mu         sync.RWMutex
	tasks      map[string]Task
	parameters map[string]any
	returns    map[string]any

	Config  *config.Config
	History history.Store
	Env     string
	Logger  *slog.Logger

	startedAt  time.Time
	cycleCount int
}

func New(cfg *config.Config) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.ShutCond == nil {
		cfg.ShutCond = statement.AlwaysFalse
	}
	s := &Session{
		tasks:      make(map[string]Task),
		parameters: make(map[string]any),
		returns:    make(map[string]any),
		Config:     cfg,
		History:    history.NewMemoryStore(),
		Logger:     slog.Default(),
	}
	return s
}

// GetTask returns the named task, or an error if it is not registered.
func (s *Session) GetTask(name string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[name]
	if !ok {
		return nil, errs.New(errs.KindConfig, "task not registered").WithTask(name)
	}
	return t, nil
}

// AddTask registers task, honoring Config.TaskPreExist when a task of
// the same name already exists.
func (s *Session) AddTask(t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := t.Name()
	if _, exists := s.tasks[name]; exists {
		switch s.Config.TaskPreExist {
		case "ignore":
			return nil
		case "replace":
			s.tasks[name] = t
			return nil
		default:
			return errs.New(errs.KindConfig, "task already registered").WithTask(name)
		}
	}
	s.tasks[name] = t
	return nil
}

// Tasks returns a snapshot of all registered tasks, ordered by
// insertion is NOT guaranteed here — the scheduler keeps its own
// ordered task list for launch-order purposes; this is for
// introspection (the HTTP API, the dashboard).
func (s *Session) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

// Lookup implements statement.TaskLookup.
func (s *Session) Lookup(name string) (statement.TaskState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[name]
	if !ok {
		return nil, false
	}
	return t, true
}

// SetParameter and Parameter give single-key access without copying
// the whole map; Parameters below returns the full map for the
// scheduler's bulk-bind-per-cycle use.
func (s *Session) SetParameter(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parameters[key] = value
}

func (s *Session) Parameter(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.parameters[key]
	return v, ok
}

// Parameters returns a snapshot copy of the session parameters, safe
// for the caller to read without holding the session lock.
func (s *Session) Parameters() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.parameters))
	for k, v := range s.parameters {
		out[k] = v
	}
	return out
}

func (s *Session) SetReturn(taskName string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returns[taskName] = value
}

func (s *Session) Returns() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.returns))
	for k, v := range s.returns {
		out[k] = v
	}
	return out
}

// EvalContext builds the condition.EvalContext the scheduler threads
// through every condition evaluation this cycle: a fresh snapshot of
// parameters, the shared history store and task lookup, and the
// debug/logging policy from Config.
func (s *Session) EvalContext(now time.Time) *condition.EvalContext {
	domain := &statement.Context{
		Now:                now,
		Debug:              s.Config.Debug,
		Logger:             s.Logger,
		Parameters:         s.Parameters(),
		History:            s.History,
		Tasks:              s,
		Env:                s.Env,
		SchedulerStartedAt: s.startedAt,
		CycleCount:         s.cycleCount,
	}
	return &condition.EvalContext{Debug: s.Config.Debug, Logger: s.Logger, Domain: domain}
}

// MarkStarted and IncrementCycle are called by the scheduler loop to
// keep the SchedulerStarted/SchedulerCycles built-in statements
// accurate; they are not meant to be called from task or condition
// code.
func (s *Session) MarkStarted(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = now
}

func (s *Session) IncrementCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycleCount++
}

func (s *Session) CycleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycleCount
}

// StartedAt returns the instant MarkStarted last recorded, or the zero
// time if the scheduler loop has never started.
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}
