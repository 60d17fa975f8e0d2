// SPDX-License-Identifier: MIT
// Package dictconfig loads a session's parameters, tasks, sequences
// and scheduler-level settings from a single YAML (or already-decoded
// dict-shaped) document — the narrowly-scoped config front-end §6
// names as the boundary of this engine's concern, not a replacement
// for one. It operates entirely on an in-memory document; discovering
// task files on a filesystem or importing Go code by name is out of
// scope, the same way the original engine's project/module finders
// were never part of its core.
package dictconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Grigoriy457/rocketry/src/condlang"
	"github.com/Grigoriy457/rocketry/src/config"
	"github.com/Grigoriy457/rocketry/src/errs"
	"github.com/Grigoriy457/rocketry/src/scheduler"
	"github.com/Grigoriy457/rocketry/src/session"
	"github.com/Grigoriy457/rocketry/src/task"
)

// Task classes recognized in a task entry's "class" field. There is no
// dynamic import in Go the way the original engine resolved a dotted
// module path at load time, so FuncTask's "func" field is a lookup key
// into the Funcs registry the caller supplies, not an import path.
const (
	ClassFuncTask    = "FuncTask"
	ClassProcessTask = "ProcessTask"
)

// TaskSpec is one entry under the document's "tasks" key.
type TaskSpec struct {
	Class      string   `yaml:"class"`
	Func       string   `yaml:"func"`
	Command    []string `yaml:"command"`
	Execution  string   `yaml:"execution"`
	StartCond  string   `yaml:"start_cond"`
	EndCond    string   `yaml:"end_cond"`
	Timeout    any      `yaml:"timeout"`
	OnStartup  bool     `yaml:"on_startup"`
	OnShutdown bool     `yaml:"on_shutdown"`
	Disabled   bool     `yaml:"disabled"`
}

// SequenceSpec is one entry under the document's "sequences" key: an
// ordered task list rewritten into a DependSuccess chain at load time.
type SequenceSpec struct {
	StartCond string   `yaml:"start_cond"`
	Tasks     []string `yaml:"tasks"`
}

// SchedulerSpec is the document's "scheduler" key: settings applied to
// the session/scheduler once every task is registered.
type SchedulerSpec struct {
	Restarting string         `yaml:"restarting"`
	ShutCond   string         `yaml:"shut_cond"`
	Parameters map[string]any `yaml:"parameters"`
}

// document is the raw decode target. Tasks and Sequences are kept as
// yaml.Node rather than plain maps so load order survives — Go map
// iteration order is random, but task registration order is observable
// (it's the scheduler's per-cycle launch order), so the document's own
// declaration order must be preserved.
type document struct {
	Parameters map[string]any `yaml:"parameters"`
	Tasks      yaml.Node      `yaml:"tasks"`
	Sequences  yaml.Node      `yaml:"sequences"`
	// Scheduler is a pointer so Parse can distinguish an absent
	// "scheduler" key from one present but empty ("scheduler: {}"),
	// which is what tells an entirely empty document apart from one
	// that just declares an empty scheduler section.
	Scheduler *SchedulerSpec `yaml:"scheduler"`
}

// empty reports whether the document declares nothing at all — no
// parameters, tasks, sequences, or scheduler key. Such a document
// builds no Scheduler; Parse returns (nil, nil) for it instead of a
// Scheduler with zero tasks.
func (d document) empty() bool {
	return d.Parameters == nil && d.Tasks.Kind == 0 && d.Sequences.Kind == 0 && d.Scheduler == nil
}

// orderedMapping decodes a YAML mapping node into name-ordered pairs,
// each value further decoded into T. A zero-valued (absent) node
// yields no pairs.
func orderedMapping[T any](node yaml.Node) ([]struct {
	name string
	spec T
}, error) {
	var out []struct {
		name string
		spec T
	}
	if node.Kind == 0 {
		return out, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping, got %v", node.Kind)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var spec T
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return nil, fmt.Errorf("%s: %w", node.Content[i].Value, err)
		}
		out = append(out, struct {
			name string
			spec T
		}{name: node.Content[i].Value, spec: spec})
	}
	return out, nil
}

// Load reads path and builds a Scheduler from it, as Parse.
func Load(path string, funcs map[string]task.Func) (*scheduler.Scheduler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.KindConfig, "read dict config file").WithInternal(err).WithTask(path)
	}
	return Parse(data, funcs)
}

// Parse decodes a YAML dict-config document into a fully wired
// Scheduler: a fresh Session carrying Config.Default() overlaid with
// the document's "scheduler" settings, every declared task registered
// in declaration order, and every sequence expanded into its
// DependSuccess start_cond chain. funcs resolves a FuncTask's "func"
// key to the Go function that runs it; an entry with no match is a
// ConfigError, not a panic. A document with none of "parameters",
// "tasks", "sequences" or "scheduler" produces (nil, nil) rather than
// an empty Scheduler.
func Parse(data []byte, funcs map[string]task.Func) (*scheduler.Scheduler, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.New(errs.KindConfig, "parse dict config").WithInternal(err)
	}
	if doc.empty() {
		return nil, nil
	}

	schedSpec := SchedulerSpec{}
	if doc.Scheduler != nil {
		schedSpec = *doc.Scheduler
	}

	cfg := config.Default()
	if schedSpec.Restarting != "" {
		cfg.Restarting = config.RestartMode(schedSpec.Restarting)
	}
	if schedSpec.ShutCond != "" {
		cond, err := condlang.Parse(schedSpec.ShutCond)
		if err != nil {
			return nil, errs.New(errs.KindConfig, "parse scheduler.shut_cond").WithInternal(err)
		}
		cfg.ShutCond = cond
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sess := session.New(cfg)
	for k, v := range doc.Parameters {
		sess.SetParameter(k, v)
	}
	for k, v := range schedSpec.Parameters {
		sess.SetParameter(k, v)
	}

	sc := scheduler.New(sess)

	taskPairs, err := orderedMapping[TaskSpec](doc.Tasks)
	if err != nil {
		return nil, errs.New(errs.KindConfig, "parse tasks").WithInternal(err)
	}

	built := make(map[string]*task.Task, len(taskPairs))
	for _, pair := range taskPairs {
		tk, err := buildTask(pair.name, pair.spec, funcs)
		if err != nil {
			return nil, err
		}
		built[pair.name] = tk
	}

	seqPairs, err := orderedMapping[SequenceSpec](doc.Sequences)
	if err != nil {
		return nil, errs.New(errs.KindConfig, "parse sequences").WithInternal(err)
	}
	if err := expandSequences(built, seqPairs); err != nil {
		return nil, err
	}

	for _, pair := range taskPairs {
		if err := sc.AddTask(built[pair.name]); err != nil {
			return nil, errs.New(errs.KindConfig, "register task").WithInternal(err).WithTask(pair.name)
		}
	}

	return sc, nil
}

func buildTask(name string, spec TaskSpec, funcs map[string]task.Func) (*task.Task, error) {
	execution := task.Execution(spec.Execution)
	if execution == "" {
		execution = task.ExecutionThread
	}

	var tk *task.Task
	switch spec.Class {
	case ClassFuncTask:
		fn, ok := funcs[spec.Func]
		if !ok {
			return nil, errs.New(errs.KindConfig, fmt.Sprintf("unknown function %q", spec.Func)).WithTask(name)
		}
		tk = task.New(name, fn, execution)
	case ClassProcessTask:
		if len(spec.Command) == 0 {
			return nil, errs.New(errs.KindConfig, "ProcessTask requires a non-empty command").WithTask(name)
		}
		tk = task.NewProcess(name, spec.Command)
	case "":
		return nil, errs.New(errs.KindConfig, "task entry missing required \"class\" field").WithTask(name)
	default:
		return nil, errs.New(errs.KindConfig, fmt.Sprintf("unknown task class %q", spec.Class)).WithTask(name)
	}

	if spec.StartCond != "" {
		cond, err := condlang.Parse(spec.StartCond)
		if err != nil {
			return nil, errs.New(errs.KindConfig, "parse start_cond").WithInternal(err).WithTask(name)
		}
		tk.StartCond = cond
	}
	if spec.EndCond != "" {
		cond, err := condlang.Parse(spec.EndCond)
		if err != nil {
			return nil, errs.New(errs.KindConfig, "parse end_cond").WithInternal(err).WithTask(name)
		}
		tk.EndCond = cond
	}
	if spec.Timeout != nil {
		d, err := config.ParseDuration(spec.Timeout)
		if err != nil {
			return nil, errs.New(errs.KindConfig, "parse timeout").WithInternal(err).WithTask(name)
		}
		tk.Timeout = d
	}
	tk.OnStartup = spec.OnStartup
	tk.OnShutdown = spec.OnShutdown
	tk.Disabled = spec.Disabled

	return tk, nil
}
