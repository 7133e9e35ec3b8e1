package workflow

import "testing"

func TestEvaluator_Eval(t *testing.T) {
	ev := NewEvaluator()
	if err := ev.Bind("run", map[string]any{"id": "r1"}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	v, err := ev.Eval("run.id")
	if err != nil || v != "r1" {
		t.Fatalf("Eval(run.id) = %v, %v; want r1", v, err)
	}

	v, err = ev.Eval("1 + 2")
	if err != nil || v != int64(3) {
		t.Fatalf("Eval(1+2) = %v (%T), %v; want int64(3)", v, v, err)
	}

	if _, err := ev.Eval("nope.deref"); err == nil {
		t.Fatal("expected error for unresolvable expression")
	}
}

func TestEvaluator_StepBindingsVisibleLater(t *testing.T) {
	ev := NewEvaluator()
	steps := make(map[string]any)
	if err := ev.Bind("steps", steps); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	// Results added after the bind are visible, matching how the runner
	// feeds each step's output to later ones.
	steps["ins"] = map[string]any{"affected": int64(2)}
	v, err := ev.Eval("steps.ins.affected * 10")
	if err != nil || v != int64(20) {
		t.Fatalf("Eval = %v, %v; want 20", v, err)
	}
}

func TestEvaluator_EvalArgs(t *testing.T) {
	ev := NewEvaluator()
	if err := ev.Bind("run", map[string]any{"id": "r9"}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	args, err := ev.EvalArgs([]any{"plain", 42, "${run.id}", "${'x' + 'y'}"})
	if err != nil {
		t.Fatalf("EvalArgs: %v", err)
	}
	if args[0] != "plain" || args[1] != 42 {
		t.Fatalf("pass-through args changed: %v", args)
	}
	if args[2] != "r9" || args[3] != "xy" {
		t.Fatalf("evaluated args = %v; want [... r9 xy]", args)
	}

	if _, err := ev.EvalArgs([]any{"${missing.thing}"}); err == nil {
		t.Fatal("expected evaluation error to surface")
	}

	out, err := ev.EvalArgs(nil)
	if err != nil || out != nil {
		t.Fatalf("EvalArgs(nil) = %v, %v; want nil, nil", out, err)
	}
}
