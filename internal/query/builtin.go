package query

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/roach88/docql/internal/expr"
)

// ErrUnknownBuiltin is returned by Builtin for an unregistered name.
var ErrUnknownBuiltin = errors.New("unknown builtin")

// builtin is a deterministic function usable both in the host evaluator
// and in the native query language.
type builtin struct {
	method *expr.Method
	result *expr.Type
	arity  int // -1 for variadic
}

var builtins = map[string]builtin{}

func register(name string, result *expr.Type, arity int, fn func(args []any) (any, error)) *expr.Method {
	m := &expr.Method{Name: name, Fn: func(_ any, args []any) (any, error) {
		if arity >= 0 && len(args) != arity {
			return nil, fmt.Errorf("%s takes %d arguments, got %d", name, arity, len(args))
		}
		return fn(args)
	}}
	builtins[name] = builtin{method: m, result: result, arity: arity}
	return m
}

// Builtin methods.
var (
	UpperFn    = register("upper", expr.StringType, 1, stringFn(strings.ToUpper))
	LowerFn    = register("lower", expr.StringType, 1, stringFn(strings.ToLower))
	ConcatFn   = register("concat", expr.StringType, -1, concat)
	LenFn      = register("len", expr.IntType, 1, length)
	ContainsFn = register("contains", expr.BoolType, 2, contains)
	AbsFn      = register("abs", expr.AnyType, 1, abs)
	RoundFn    = register("round", expr.FloatType, 1, round)
)

// Builtin builds a call of the named builtin.
func Builtin(name string, args ...expr.Node) (*expr.Call, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownBuiltin)
	}
	if b.arity >= 0 && len(args) != b.arity {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", name, b.arity, len(args))
	}
	return expr.CallOf(b.result, nil, b.method, args...), nil
}

// IsBuiltin reports whether m is one of the registered builtins.
func IsBuiltin(m *expr.Method) bool {
	if m == nil {
		return false
	}
	b, ok := builtins[m.Name]
	return ok && b.method == m
}

// BuiltinNames returns the registered builtin names in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Upper(x expr.Node) *expr.Call { return expr.CallOf(expr.StringType, nil, UpperFn, x) }

func Lower(x expr.Node) *expr.Call { return expr.CallOf(expr.StringType, nil, LowerFn, x) }

func Concat(xs ...expr.Node) *expr.Call { return expr.CallOf(expr.StringType, nil, ConcatFn, xs...) }

func Len(x expr.Node) *expr.Call { return expr.CallOf(expr.IntType, nil, LenFn, x) }

func Contains(s, sub expr.Node) *expr.Call {
	return expr.CallOf(expr.BoolType, nil, ContainsFn, s, sub)
}

func Abs(x expr.Node) *expr.Call { return expr.CallOf(x.Type(), nil, AbsFn, x) }

func Round(x expr.Node) *expr.Call { return expr.CallOf(expr.FloatType, nil, RoundFn, x) }

func stringFn(f func(string) string) func([]any) (any, error) {
	return func(args []any) (any, error) {
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", args[0])
		}
		return f(s), nil
	}
}

func concat(args []any) (any, error) {
	var b strings.Builder
	for _, a := range args {
		if a == nil {
			continue
		}
		fmt.Fprint(&b, a)
	}
	return b.String(), nil
}

func length(args []any) (any, error) {
	switch v := args[0].(type) {
	case string:
		return int64(utf8.RuneCountInString(v)), nil
	case []any:
		return int64(len(v)), nil
	case map[string]any:
		return int64(len(v)), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("len of %T", args[0])
}

func contains(args []any) (any, error) {
	s, ok1 := args[0].(string)
	sub, ok2 := args[1].(string)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("contains expects strings, got %T and %T", args[0], args[1])
	}
	return strings.Contains(s, sub), nil
}

func abs(args []any) (any, error) {
	switch v := args[0].(type) {
	case int:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case int64:
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case float64:
		return math.Abs(v), nil
	}
	return nil, fmt.Errorf("abs of %T", args[0])
}

func round(args []any) (any, error) {
	switch v := args[0].(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return math.Round(v), nil
	}
	return nil, fmt.Errorf("round of %T", args[0])
}
