package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.TaskPreExist != TaskPreExistRaise {
		t.Errorf("expected task_pre_exist default %q, got %q", TaskPreExistRaise, cfg.TaskPreExist)
	}
	if cfg.Timeout.Duration() != 30*time.Minute {
		t.Errorf("expected timeout default 30m, got %s", cfg.Timeout.Duration())
	}
	if cfg.Restarting != RestartRelaunch {
		t.Errorf("expected restarting default %q, got %q", RestartRelaunch, cfg.Restarting)
	}
	if cfg.SilenceTaskPrerun || cfg.SilenceTaskLogging || cfg.SilenceCondCheck || cfg.Debug || cfg.InstantShutdown {
		t.Error("expected all boolean options to default false")
	}
	if cfg.ShutCond == nil {
		t.Error("expected ShutCond to default to AlwaysFalse, got nil")
	}
}

func TestTimeoutParsingVariants(t *testing.T) {
	cases := []string{
		`timeout: 0.1`,
		`timeout: "0.1 seconds"`,
		`timeout: 100ms`,
	}
	for _, doc := range cases {
		cfg, err := Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse(%q): %v", doc, err)
		}
		if cfg.Timeout.Duration() != 100*time.Millisecond {
			t.Errorf("Parse(%q).Timeout = %s, want 100ms", doc, cfg.Timeout.Duration())
		}
	}
}

func TestInvalidTaskPreExist(t *testing.T) {
	_, err := Parse([]byte(`task_pre_exist: bogus`))
	if err == nil {
		t.Error("expected error for invalid task_pre_exist value")
	}
}

func TestInvalidRestarting(t *testing.T) {
	_, err := Parse([]byte(`restarting: bogus`))
	if err == nil {
		t.Error("expected error for invalid restarting value")
	}
}

func TestCycleSleepDefault(t *testing.T) {
	cfg := Default()
	if cfg.CycleSleep.Duration() != 100*time.Millisecond {
		t.Errorf("expected cycle_sleep default 100ms, got %s", cfg.CycleSleep.Duration())
	}
}
