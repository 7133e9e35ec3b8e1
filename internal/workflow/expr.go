package workflow

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// Evaluator runs the "${...}" step expressions. One evaluator lives for
// one run; bindings added as steps complete stay visible to later steps.
type Evaluator struct {
	vm *goja.Runtime
}

// NewEvaluator creates an expression evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{vm: goja.New()}
}

// Bind exposes a Go value to expressions under the given name.
func (e *Evaluator) Bind(name string, value any) error {
	if err := e.vm.Set(name, value); err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}
	return nil
}

// Eval runs a bare JavaScript expression and returns its exported value.
func (e *Evaluator) Eval(expr string) (any, error) {
	v, err := e.vm.RunString(expr)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", expr, err)
	}
	return v.Export(), nil
}

// isExpr reports whether a step argument is an expression.
func isExpr(s string) bool {
	return strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}")
}

// EvalArgs resolves a step's argument list, evaluating any "${...}"
// strings and passing everything else through unchanged.
func (e *Evaluator) EvalArgs(args []any) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]any, len(args))
	for i, arg := range args {
		s, ok := arg.(string)
		if !ok || !isExpr(s) {
			out[i] = arg
			continue
		}
		v, err := e.Eval(s[2 : len(s)-1])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
