package partial

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/roach88/docql/internal/expr"
)

// Env binds lambda parameters to host values during evaluation.
type Env map[*expr.Parameter]any

// FieldSetter is implemented by host values that a MemberInit can assign
// members on. map[string]any documents are handled directly.
type FieldSetter interface {
	SetField(name string, v any) error
}

// Fielder is implemented by host values that expose named members to
// Member nodes. map[string]any documents and exported struct fields are
// handled directly.
type Fielder interface {
	Field(name string) (any, bool)
}

// Eval computes the value of a closed subtree in the host environment.
func Eval(n expr.Node) (any, error) {
	return EvalWith(n, nil)
}

// EvalWith computes the value of n with parameters bound by env.
// Lambdas evaluate to an expr.Func closing over env.
func EvalWith(n expr.Node, env Env) (any, error) {
	if n == nil {
		return nil, ErrNilTree
	}
	out := expr.Walk[outcome](&evaluator{env: env}, n)
	return out.val, out.err
}

// Value returns the value held by a folded slot: the value of a Constant or
// the error of a Failure. Any other node is an error wrapping ErrNotFolded.
func Value(n expr.Node) (any, error) {
	switch n := n.(type) {
	case *expr.Constant:
		return n.Value, nil
	case *expr.Failure:
		return nil, n.Err
	case nil:
		return nil, ErrNilTree
	}
	return nil, fmt.Errorf("%s: %w", n.Kind(), ErrNotFolded)
}

type outcome struct {
	val any
	err error
}

type evaluator struct {
	env Env
}

func (e *evaluator) Enter(n expr.Node) bool {
	switch n.(type) {
	case *expr.Lambda, *expr.Extension, *expr.Failure:
		return false
	}
	return true
}

// Next stops at the first failed child and short-circuits &&, || and ??.
func (e *evaluator) Next(n expr.Node, i int, done []outcome) bool {
	if i > 0 && done[i-1].err != nil {
		return false
	}
	b, ok := n.(*expr.Binary)
	if !ok || i != 1 {
		return true
	}
	left := done[0].val
	switch b.Op {
	case expr.OpAnd:
		lb, isBool := left.(bool)
		return !isBool || lb
	case expr.OpOr:
		lb, isBool := left.(bool)
		return !isBool || !lb
	case expr.OpCoalesce:
		return left == nil
	}
	return true
}

func (e *evaluator) Leave(n expr.Node, done []outcome) outcome {
	for _, d := range done {
		if d.err != nil {
			return d
		}
	}
	v, err := e.eval(n, done)
	return outcome{val: v, err: err}
}

func (e *evaluator) eval(n expr.Node, done []outcome) (any, error) {
	switch n := n.(type) {
	case *expr.Constant:
		return n.Value, nil
	case *expr.Parameter:
		v, ok := e.env[n]
		if !ok {
			return nil, fmt.Errorf("%s: %w", n.Name, ErrUnboundParameter)
		}
		return v, nil
	case *expr.Call:
		return evalCall(n, values(done))
	case *expr.Member:
		return lookupMember(done[0].val, n.Name)
	case *expr.Binary:
		if len(done) == 1 {
			return shortCircuit(n.Op, done[0].val), nil
		}
		return evalBinary(n.Op, done[0].val, done[1].val)
	case *expr.Unary:
		return evalUnary(n.Op, done[0].val)
	case *expr.New:
		return construct(n, values(done))
	case *expr.MemberInit:
		return initMembers(n, values(done))
	case *expr.ListInit:
		return initList(n, values(done))
	case *expr.Lambda:
		return closure(n, e.env), nil
	case *expr.Failure:
		return nil, n.Err
	case *expr.Extension:
		return nil, fmt.Errorf("%s: %w", n.Name, ErrUnsupportedNode)
	default:
		panic(fmt.Sprintf("partial: missing case for %T", n))
	}
}

func values(done []outcome) []any {
	vals := make([]any, len(done))
	for i, d := range done {
		vals[i] = d.val
	}
	return vals
}

func evalCall(n *expr.Call, vals []any) (any, error) {
	if n.Method == nil || n.Method.Fn == nil {
		name := "<nil>"
		if n.Method != nil {
			name = n.Method.Name
		}
		return nil, fmt.Errorf("method %s: %w", name, ErrNoHostFunc)
	}
	var recv any
	if n.Receiver != nil {
		recv, vals = vals[0], vals[1:]
	}
	v, err := n.Method.Fn(recv, vals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.Method.Name, err)
	}
	return v, nil
}

func lookupMember(obj any, name string) (any, error) {
	switch o := obj.(type) {
	case nil:
		return nil, fmt.Errorf("member %q of null: %w", name, ErrTypeMismatch)
	case map[string]any:
		return o[name], nil
	case Fielder:
		if v, ok := o.Field(name); ok {
			return v, nil
		}
		return nil, fmt.Errorf("no member %q on %T: %w", name, obj, ErrTypeMismatch)
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("member %q of nil %T: %w", name, obj, ErrTypeMismatch)
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		if f := rv.FieldByName(name); f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
	}
	return nil, fmt.Errorf("no member %q on %T: %w", name, obj, ErrTypeMismatch)
}

func construct(n *expr.New, args []any) (any, error) {
	if n.Ctor != nil && n.Ctor.Fn != nil {
		return n.Ctor.Fn(args)
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("constructor %s with arguments: %w", expr.FormatLimit(n, maxExprLen), ErrNoHostFunc)
	}
	if n.Typ != nil && n.Typ.Kind == expr.TList {
		return []any{}, nil
	}
	return map[string]any{}, nil
}

func initMembers(n *expr.MemberInit, vals []any) (any, error) {
	obj := vals[len(vals)-1]
	for i, b := range n.Bindings {
		switch o := obj.(type) {
		case map[string]any:
			o[b.Name] = vals[i]
		case FieldSetter:
			if err := o.SetField(b.Name, vals[i]); err != nil {
				return nil, fmt.Errorf("set %s: %w", b.Name, err)
			}
		default:
			return nil, fmt.Errorf("cannot assign member %q on %T: %w", b.Name, obj, ErrTypeMismatch)
		}
	}
	return obj, nil
}

func initList(n *expr.ListInit, vals []any) (any, error) {
	list, ok := vals[len(vals)-1].([]any)
	if !ok {
		return nil, fmt.Errorf("cannot append to %T: %w", vals[len(vals)-1], ErrTypeMismatch)
	}
	return append(list, vals[:len(n.Items)]...), nil
}

func closure(n *expr.Lambda, env Env) expr.Func {
	return func(args ...any) (any, error) {
		if len(args) != len(n.Params) {
			return nil, fmt.Errorf("lambda takes %d arguments, got %d: %w", len(n.Params), len(args), ErrTypeMismatch)
		}
		inner := make(Env, len(env)+len(args))
		for p, v := range env {
			inner[p] = v
		}
		for i, p := range n.Params {
			inner[p] = args[i]
		}
		return EvalWith(n.Body, inner)
	}
}

func shortCircuit(op expr.BinaryOp, left any) any {
	switch op {
	case expr.OpAnd:
		return false
	case expr.OpOr:
		return true
	}
	return left
}

func evalBinary(op expr.BinaryOp, l, r any) (any, error) {
	switch op {
	case expr.OpAnd, expr.OpOr:
		lb, lok := l.(bool)
		rb, rok := r.(bool)
		if !lok || !rok {
			return nil, fmt.Errorf("%T %s %T: %w", l, op, r, ErrTypeMismatch)
		}
		if op == expr.OpAnd {
			return lb && rb, nil
		}
		return lb || rb, nil
	case expr.OpCoalesce:
		if l == nil {
			return r, nil
		}
		return l, nil
	case expr.OpEq:
		return equal(l, r), nil
	case expr.OpNe:
		return !equal(l, r), nil
	case expr.OpLt, expr.OpLe, expr.OpGt, expr.OpGe:
		c, err := compare(l, r)
		if err != nil {
			return nil, err
		}
		switch op {
		case expr.OpLt:
			return c < 0, nil
		case expr.OpLe:
			return c <= 0, nil
		case expr.OpGt:
			return c > 0, nil
		}
		return c >= 0, nil
	}
	if op == expr.OpAdd {
		ls, lstr := l.(string)
		rs, rstr := r.(string)
		if lstr || rstr {
			if !lstr {
				ls = stringify(l)
			}
			if !rstr {
				rs = stringify(r)
			}
			return ls + rs, nil
		}
	}
	return arith(op, l, r)
}

func arith(op expr.BinaryOp, l, r any) (any, error) {
	li, lint := asInt(l)
	ri, rint := asInt(r)
	if lint && rint {
		switch op {
		case expr.OpAdd:
			sum := li + ri
			if (sum > li) != (ri > 0) {
				return nil, fmt.Errorf("%d + %d: %w", li, ri, ErrOverflow)
			}
			return sum, nil
		case expr.OpSub:
			diff := li - ri
			if (diff < li) != (ri > 0) {
				return nil, fmt.Errorf("%d - %d: %w", li, ri, ErrOverflow)
			}
			return diff, nil
		case expr.OpMul:
			if li == 0 || ri == 0 {
				return int64(0), nil
			}
			prod := li * ri
			if prod/ri != li || (li == -1 && ri == math.MinInt64) || (ri == -1 && li == math.MinInt64) {
				return nil, fmt.Errorf("%d * %d: %w", li, ri, ErrOverflow)
			}
			return prod, nil
		case expr.OpDiv:
			if ri == 0 {
				return nil, ErrDivisionByZero
			}
			if li == math.MinInt64 && ri == -1 {
				return nil, fmt.Errorf("%d / %d: %w", li, ri, ErrOverflow)
			}
			return li / ri, nil
		case expr.OpMod:
			if ri == 0 {
				return nil, ErrDivisionByZero
			}
			if ri == -1 {
				return int64(0), nil
			}
			return li % ri, nil
		}
	}
	lf, lnum := asFloat(l)
	rf, rnum := asFloat(r)
	if !lnum || !rnum {
		return nil, fmt.Errorf("%T %s %T: %w", l, op, r, ErrTypeMismatch)
	}
	switch op {
	case expr.OpAdd:
		return lf + rf, nil
	case expr.OpSub:
		return lf - rf, nil
	case expr.OpMul:
		return lf * rf, nil
	case expr.OpDiv:
		return lf / rf, nil
	case expr.OpMod:
		return math.Mod(lf, rf), nil
	}
	return nil, fmt.Errorf("operator %s: %w", op, ErrTypeMismatch)
}

func evalUnary(op expr.UnaryOp, v any) (any, error) {
	switch op {
	case expr.OpNot:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("!%T: %w", v, ErrTypeMismatch)
		}
		return !b, nil
	case expr.OpNeg:
		if i, ok := asInt(v); ok {
			if i == math.MinInt64 {
				return nil, fmt.Errorf("-%d: %w", i, ErrOverflow)
			}
			return -i, nil
		}
		if f, ok := asFloat(v); ok {
			return -f, nil
		}
		return nil, fmt.Errorf("-%T: %w", v, ErrTypeMismatch)
	}
	return nil, fmt.Errorf("operator %s: %w", op, ErrTypeMismatch)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func equal(l, r any) bool {
	if li, ok := asInt(l); ok {
		if ri, ok := asInt(r); ok {
			return li == ri
		}
	}
	if lf, ok := asFloat(l); ok {
		if rf, ok := asFloat(r); ok {
			return lf == rf
		}
		return false
	}
	return reflect.DeepEqual(l, r)
}

func compare(l, r any) (int, error) {
	li, lint := asInt(l)
	ri, rint := asInt(r)
	if lint && rint {
		return cmp3(li < ri, li > ri), nil
	}
	if lf, ok := asFloat(l); ok {
		if rf, ok := asFloat(r); ok {
			return cmp3(lf < rf, lf > rf), nil
		}
	}
	switch lv := l.(type) {
	case string:
		if rv, ok := r.(string); ok {
			return strings.Compare(lv, rv), nil
		}
	case bool:
		if rv, ok := r.(bool); ok {
			return cmp3(!lv && rv, lv && !rv), nil
		}
	case nil:
		if r == nil {
			return 0, nil
		}
	}
	return 0, fmt.Errorf("compare %T with %T: %w", l, r, ErrTypeMismatch)
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
