package condlang

import (
	"context"
	"testing"
	"time"

	"github.com/Grigoriy457/rocketry/src/condition"
	"github.com/Grigoriy457/rocketry/src/history"
	"github.com/Grigoriy457/rocketry/src/statement"
)

func evalCtx(now time.Time, params map[string]any, store history.Store) *condition.EvalContext {
	return &condition.EvalContext{
		Domain: &statement.Context{
			Now:        now,
			Parameters: params,
			History:    store,
		},
	}
}

func TestParseLiterals(t *testing.T) {
	c, err := Parse("true")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.Evaluate(evalCtx(time.Now(), nil, nil)) {
		t.Error("expected true literal to evaluate true")
	}

	c, err = Parse("false")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Evaluate(evalCtx(time.Now(), nil, nil)) {
		t.Error("expected false literal to evaluate false")
	}
}

func TestParseAndOrNot(t *testing.T) {
	c, err := Parse("true & false")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Evaluate(evalCtx(time.Now(), nil, nil)) {
		t.Error("expected 'true & false' to evaluate false")
	}

	c, err = Parse("true | false")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.Evaluate(evalCtx(time.Now(), nil, nil)) {
		t.Error("expected 'true | false' to evaluate true")
	}

	c, err = Parse("~false")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.Evaluate(evalCtx(time.Now(), nil, nil)) {
		t.Error("expected '~false' to evaluate true")
	}
}

func TestParseParens(t *testing.T) {
	c, err := Parse("(true & false) | true")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.Evaluate(evalCtx(time.Now(), nil, nil)) {
		t.Error("expected parenthesized expression to evaluate true")
	}
}

func TestParseTimeCond(t *testing.T) {
	c, err := Parse("daily starting 09:00 ending 17:00")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	inside := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2026, 1, 5, 20, 0, 0, 0, time.UTC)
	if !c.Evaluate(evalCtx(inside, nil, nil)) {
		t.Error("expected 12:00 to fall within the 09:00-17:00 daily window")
	}
	if c.Evaluate(evalCtx(outside, nil, nil)) {
		t.Error("expected 20:00 to fall outside the 09:00-17:00 daily window")
	}
}

func TestParseTaskCond(t *testing.T) {
	store := history.NewMemoryStore()
	now := time.Now()
	if err := store.Log(context.Background(), history.Event{TaskName: "backup", Action: history.ActionSuccess, Timestamp: now}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	c, err := Parse("has succeeded task backup")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.Evaluate(evalCtx(now.Add(time.Minute), nil, store)) {
		t.Error("expected 'has succeeded task backup' to be true after a recorded success")
	}
}

func TestParseTaskCondPastDuration(t *testing.T) {
	store := history.NewMemoryStore()
	now := time.Now()
	stale := now.Add(-2 * time.Hour)
	if err := store.Log(context.Background(), history.Event{TaskName: "backup", Action: history.ActionSuccess, Timestamp: stale}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	c, err := Parse("has succeeded task backup past 10m")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Evaluate(evalCtx(now, nil, store)) {
		t.Error("expected a success two hours ago not to satisfy 'past 10m'")
	}

	c, err = Parse("has succeeded task backup past 3h")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.Evaluate(evalCtx(now, nil, store)) {
		t.Error("expected a success two hours ago to satisfy 'past 3h'")
	}
}

func TestParseParamCond(t *testing.T) {
	c, err := Parse("param env = prod")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.Evaluate(evalCtx(time.Now(), map[string]any{"env": "prod"}, nil)) {
		t.Error("expected matching param value to satisfy the condition")
	}
	if c.Evaluate(evalCtx(time.Now(), map[string]any{"env": "dev"}, nil)) {
		t.Error("expected mismatched param value to fail the condition")
	}

	c, err = Parse("param feature_flag")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.Evaluate(evalCtx(time.Now(), map[string]any{"feature_flag": false}, nil)) {
		t.Error("expected bare 'param name' to be true when the key exists regardless of value")
	}
	if c.Evaluate(evalCtx(time.Now(), map[string]any{}, nil)) {
		t.Error("expected bare 'param name' to be false when the key is absent")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	cases := []string{"", "   ", "bogus", "daily starting", "has task x", "(true"}
	for _, src := range cases {
		if _, err := Parse(src); err == nil {
			t.Errorf("expected Parse(%q) to fail", src)
		}
	}
}
