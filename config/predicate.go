package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/cel-go/cel"
)

// predicateEvaluator compiles and caches CEL programs for overrides
// predicates, one per distinct expression string. Grounded directly on
// teacher cel/cel.go's Evaluator, narrowed to a single "attrs" variable
// (the teacher's mapX/mapY pair compares two records against each other;
// an overrides predicate only ever tests one path's attributes) and
// widened to a boolean-ish result: any nonzero int is truthy.
type predicateEvaluator struct {
	mu       sync.Mutex
	programs map[string]cel.Program
	env      *cel.Env
}

func newPredicateEvaluator() (*predicateEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("attrs", cel.MapType(cel.StringType, cel.AnyType)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}
	return &predicateEvaluator{
		programs: make(map[string]cel.Program),
		env:      env,
	}, nil
}

func (e *predicateEvaluator) compile(expression string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.programs[expression]; ok {
		return p, nil
	}
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling CEL expression %q: %w", expression, issues.Err())
	}
	p, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building CEL program for %q: %w", expression, err)
	}
	e.programs[expression] = p
	return p, nil
}

// Evaluate runs expression against attrs, returning 1/0 for bool results
// and the native int for integer results — overrides predicates are
// conventionally boolean but the teacher's Evaluate supports int results
// too, so this keeps that flexibility.
func (e *predicateEvaluator) Evaluate(expression string, attrs map[string]any) (int, error) {
	p, err := e.compile(expression)
	if err != nil {
		return 0, err
	}
	out, _, err := p.Eval(map[string]any{"attrs": attrs})
	if err != nil {
		return 0, fmt.Errorf("evaluating CEL expression %q: %w", expression, err)
	}
	if b, err := out.ConvertToNative(reflect.TypeOf(true)); err == nil {
		if bv, ok := b.(bool); ok {
			if bv {
				return 1, nil
			}
			return 0, nil
		}
	}
	nv, err := out.ConvertToNative(reflect.TypeOf(int(0)))
	if err != nil {
		return 0, fmt.Errorf("converting CEL result for %q to bool or int: %w", expression, err)
	}
	iv, ok := nv.(int)
	if !ok {
		return 0, fmt.Errorf("unexpected CEL result type for %q: %T", expression, nv)
	}
	return iv, nil
}
