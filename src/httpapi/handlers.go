// SPDX-License-Identifier: MIT
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Grigoriy457/rocketry/src/history"
	"github.com/Grigoriy457/rocketry/src/task"
)

// taskView is the JSON shape a task is rendered as, for both the list
// and detail endpoints.
type taskView struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Execution string    `json:"execution"`
	Disabled  bool      `json:"disabled"`
	RunID     string    `json:"run_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.sc.Tasks()
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, toTaskView(t))
	}
	writeOK(w, views)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t := s.sc.Task(name)
	if t == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "task not registered")
		return
	}
	writeOK(w, toTaskView(t))
}

func toTaskView(t *task.Task) taskView {
	v := taskView{
		Name:      t.Name(),
		Status:    string(t.Status()),
		Execution: string(t.Execution),
		Disabled:  t.Disabled,
		RunID:     t.RunID(),
	}
	if started := t.StartedAt(); !started.IsZero() {
		v.StartedAt = started
	}
	if err := t.LastError(); err != nil {
		v.LastError = err.Error()
	}
	return v
}

// handleTaskHistory returns the named task's recorded events, newest
// last, optionally narrowed by ?action= / ?after= / ?before= (RFC 3339
// timestamps) query parameters.
func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.sc.Task(name) == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "task not registered")
		return
	}

	filter := history.Filter{TaskName: name}
	if action := r.URL.Query().Get("action"); action != "" {
		filter.Action = history.Action(action)
	}
	if after := r.URL.Query().Get("after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid after timestamp: "+err.Error())
			return
		}
		filter.After = &t
	}
	if before := r.URL.Query().Get("before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid before timestamp: "+err.Error())
			return
		}
		filter.Before = &t
	}

	events, err := s.sc.Session.History.Get(r.Context(), filter)
	if err != nil {
		s.logger().Error("history query failed", "task", name, "error", err.Error())
		writeError(w, http.StatusInternalServerError, codeServer, "failed to query task history")
		return
	}
	writeOK(w, events)
}

// handleForceRun sets the named task's ForceRun flag, so the next
// scheduler cycle launches it regardless of start_cond. The launch
// itself happens asynchronously on the scheduler's own loop; this
// handler only requests it.
func (s *Server) handleForceRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t := s.sc.Task(name)
	if t == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "task not registered")
		return
	}
	t.ForceRun = true
	writeOK(w, map[string]any{"task": name, "force_run": true})
}

// handleHealthz reports process liveness plus, when the configured
// history backend can report its own connectivity, that backend's
// reachability.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"ok":     true,
		"uptime": strconv.FormatFloat(time.Since(s.sc.Session.StartedAt()).Seconds(), 'f', 0, 64) + "s",
		"cycles": s.sc.Session.CycleCount(),
	}

	if p, ok := s.sc.Session.History.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			body["ok"] = false
			body["history_error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["history"] = "ok"
	}

	writeJSON(w, http.StatusOK, body)
}
