package script

import (
	"context"
	"fmt"
	"go/parser"
	"reflect"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
)

// conditionTimeout bounds a single evaluation. Conditions run on the
// dispatch goroutine.
const conditionTimeout = 250 * time.Millisecond

// Evaluator decides candidate conditions.
type Evaluator struct {
	logger  Logger
	timeout time.Duration
}

// NewEvaluator creates an evaluator. A nil logger discards output.
func NewEvaluator(logger Logger) *Evaluator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Evaluator{logger: logger, timeout: conditionTimeout}
}

// Evaluate reports whether expr holds over vars. An empty expression is
// true. Any failure is logged against id and counts as false.
func (e *Evaluator) Evaluate(expr string, vars map[string]any, id string) bool {
	ok, err := e.Check(expr, vars)
	if err != nil {
		e.logger.Warn("condition failed, treating as false", "id", id, "condition", expr, "error", err)
		return false
	}
	e.logger.Debug("condition evaluated", "id", id, "condition", expr, "result", ok)
	return ok
}

// Check is Evaluate with the error returned rather than logged.
func (e *Evaluator) Check(expr string, vars map[string]any) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	if _, err := parser.ParseExpr(expr); err != nil {
		return false, fmt.Errorf("%w: %v", ErrCompile, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	i := interp.New(interp.Options{})
	src := "package main\n\n" + declarations(vars, nil) + "\nfunc Cond() bool { return " + expr + " }\n"
	if _, err := i.EvalWithContext(ctx, src); err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("condition abandoned: %w", ctx.Err())
		}
		return false, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	v, err := i.EvalWithContext(ctx, "main.Cond()")
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("condition abandoned: %w", ctx.Err())
		}
		return false, fmt.Errorf("%w: %v", ErrPanic, err)
	}
	if !v.IsValid() || v.Kind() != reflect.Bool {
		return false, ErrNotBoolean
	}
	return v.Bool(), nil
}
