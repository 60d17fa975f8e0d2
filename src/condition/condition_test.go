package condition

import (
	"errors"
	"testing"

	"github.com/Grigoriy457/rocketry/src/errs"
)

func TestAndShortCircuit(t *testing.T) {
	calls := 0
	second := fnCondition(func() bool { calls++; return true })
	c := All(Constant(false), second)
	if c.Evaluate(nil) {
		t.Error("expected And(false, true) to be false")
	}
	if calls != 0 {
		t.Errorf("expected short-circuit, second child evaluated %d times", calls)
	}
}

func TestOrShortCircuit(t *testing.T) {
	calls := 0
	second := fnCondition(func() bool { calls++; return false })
	c := Any(Constant(true), second)
	if !c.Evaluate(nil) {
		t.Error("expected Or(true, false) to be true")
	}
	if calls != 0 {
		t.Errorf("expected short-circuit, second child evaluated %d times", calls)
	}
}

func TestAllFlattensNestedAnd(t *testing.T) {
	a := All(Constant(true), Constant(true))
	flat := All(a, Constant(false))
	n, ok := flat.(andNode)
	if !ok {
		t.Fatalf("expected andNode, got %T", flat)
	}
	if len(n.children) != 3 {
		t.Errorf("expected flattening to yield 3 children, got %d", len(n.children))
	}
}

func TestNotUnwrapsDoubleNegation(t *testing.T) {
	c := Constant(true)
	if Not(Not(c)) != Condition(c) {
		t.Error("expected Not(Not(c)) == c")
	}
}

func TestEqualStructural(t *testing.T) {
	a := All(Constant(true), Constant(false))
	b := All(Constant(true), Constant(false))
	if !Equal(a, b) {
		t.Error("expected structurally identical trees to be equal")
	}
	c := All(Constant(false), Constant(true))
	if Equal(a, c) {
		t.Error("expected differently-ordered children to be unequal")
	}
}

func TestSafeSwallowsErrorOutsideDebug(t *testing.T) {
	ctx := &EvalContext{Debug: false}
	result := Safe(ctx, "test", func() (bool, error) {
		return false, errors.New("boom")
	})
	if result {
		t.Error("expected Safe to swallow the error as false")
	}
}

func TestSafePanicsInDebug(t *testing.T) {
	ctx := &EvalContext{Debug: true}
	defer func() {
		if recover() == nil {
			t.Error("expected Safe to panic when Debug is set")
		}
	}()
	Safe(ctx, "test", func() (bool, error) {
		return false, errors.New("boom")
	})
}

func TestSafeAlwaysReraisesInterrupt(t *testing.T) {
	ctx := &EvalContext{Debug: false}
	defer func() {
		if recover() == nil {
			t.Error("expected Safe to re-panic an interrupt error even without debug")
		}
	}()
	Safe(ctx, "test", func() (bool, error) {
		return false, errs.New(errs.KindInterrupt, "aborted")
	})
}

// fnCondition adapts a plain bool func into a Condition, for tests.
type fnCondition func() bool

func (f fnCondition) Evaluate(ctx *EvalContext) bool { return f() }
func (f fnCondition) String() string                 { return "fn" }
