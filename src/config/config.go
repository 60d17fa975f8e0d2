package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Grigoriy457/rocketry/src/condition"
	"github.com/Grigoriy457/rocketry/src/errs"
	"github.com/Grigoriy457/rocketry/src/statement"
)

// TaskPreExist governs what AddTask does when a task with the same
// name is already registered.
type TaskPreExist string

const (
	TaskPreExistRaise   TaskPreExist = "raise"
	TaskPreExistIgnore  TaskPreExist = "ignore"
	TaskPreExistReplace TaskPreExist = "replace"
)

// RestartMode governs what the scheduler does after its main loop
// exits normally (shut_cond became true).
type RestartMode string

const (
	RestartRelaunch RestartMode = "relaunch"
	RestartRecall   RestartMode = "recall"
	RestartFresh    RestartMode = "fresh"
	RestartFinish   RestartMode = "finish"
)

// Config is the scheduler's runtime configuration: the recognized
// options and their defaults, loadable from YAML.
type Config struct {
	SilenceTaskPrerun  bool         `yaml:"silence_task_prerun"`
	SilenceTaskLogging bool         `yaml:"silence_task_logging"`
	SilenceCondCheck   bool         `yaml:"silence_cond_check"`
	TaskPreExist       TaskPreExist `yaml:"task_pre_exist"`
	Timeout            Duration     `yaml:"timeout"`
	CycleSleep         Duration     `yaml:"cycle_sleep"`
	ShutCycleTimeout   Duration     `yaml:"shut_cycle_timeout"`
	Debug              bool         `yaml:"debug"`
	Restarting         RestartMode  `yaml:"restarting"`
	InstantShutdown    bool         `yaml:"instant_shutdown"`

	// ShutCond is not YAML-serializable (it is a Condition tree, not a
	// scalar); it is set programmatically or by the condition-language
	// parser, and defaults to AlwaysFalse.
	ShutCond condition.Condition `yaml:"-"`
}

// Default returns the configuration with every option at the value
// documented for an unconfigured session.
func Default() *Config {
	return &Config{
		TaskPreExist:     TaskPreExistRaise,
		Timeout:          Duration(30 * time.Minute),
		CycleSleep:       Duration(100 * time.Millisecond),
		ShutCycleTimeout: Duration(30 * time.Second),
		Restarting:       RestartRelaunch,
		ShutCond:         statement.AlwaysFalse,
	}
}

// Load reads and validates a YAML configuration document, starting
// from Default() and overriding only the fields present in the
// document — an absent key keeps its default, never a Go zero value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.KindConfig, "read config file").WithInternal(err).WithTask(path)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a Config, overlaying Default().
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.New(errs.KindConfig, "parse config").WithInternal(err)
	}
	if cfg.ShutCond == nil {
		cfg.ShutCond = statement.AlwaysFalse
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configuration that is syntactically well-formed
// but semantically invalid (an unknown enum value, a negative
// duration).
func (c *Config) Validate() error {
	switch c.TaskPreExist {
	case TaskPreExistRaise, TaskPreExistIgnore, TaskPreExistReplace:
	default:
		return errs.New(errs.KindConfig, fmt.Sprintf("invalid task_pre_exist: %q", c.TaskPreExist))
	}
	switch c.Restarting {
	case RestartRelaunch, RestartRecall, RestartFresh, RestartFinish:
	default:
		return errs.New(errs.KindConfig, fmt.Sprintf("invalid restarting mode: %q", c.Restarting))
	}
	if c.Timeout.Duration() < 0 {
		return errs.New(errs.KindConfig, "timeout must not be negative")
	}
	if c.CycleSleep.Duration() < 0 {
		return errs.New(errs.KindConfig, "cycle_sleep must not be negative")
	}
	return nil
}
