package partial

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/expr"
)

var (
	users = expr.TypedConst(expr.SourceOf(expr.ObjectType), "users")

	where = &expr.Method{Name: "where"}
	count = &expr.Method{Name: "count"}
	upper = &expr.Method{Name: "upper", Fn: func(recv any, _ []any) (any, error) {
		s, ok := recv.(string)
		if !ok {
			return nil, ErrTypeMismatch
		}
		out := []byte(s)
		for i, c := range out {
			if c >= 'a' && c <= 'z' {
				out[i] = c - 'a' + 'A'
			}
		}
		return string(out), nil
	}}
)

func TestAnalyze_AllConstant(t *testing.T) {
	two, three := expr.Const(2), expr.Const(3)
	sum := expr.Add(two, three)

	reg, err := Analyze(sum)
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.True(t, reg.Contains(two))
	assert.True(t, reg.Contains(three))
	assert.True(t, reg.Contains(sum))
	assert.Equal(t, []expr.Node{two, three, sum}, reg.Nodes(), "post-order")
}

func TestFold_AllConstant(t *testing.T) {
	sum := expr.Add(expr.Const(2), expr.Const(3))

	reg, err := Analyze(sum)
	require.NoError(t, err)
	out, err := Fold(sum, reg)
	require.NoError(t, err)

	c, ok := out.(*expr.Constant)
	require.True(t, ok, "expected Constant, got %T", out)
	assert.Equal(t, int64(5), c.Value)
	assert.True(t, c.Type().Equal(expr.IntType))
}

func TestAnalyze_ParameterPoisonsAncestors(t *testing.T) {
	x := expr.Param("x", expr.IntType)
	three := expr.Const(3)
	sum := expr.Add(x, three)

	reg, err := Analyze(sum)
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Len())
	assert.True(t, reg.Contains(three), "constant operand registers independently of its parent")
	assert.False(t, reg.Contains(x))
	assert.False(t, reg.Contains(sum))

	out, err := Fold(sum, reg)
	require.NoError(t, err)
	assert.Same(t, sum, out, "a tree with nothing to fold is returned as-is")
}

func TestAnalyze_DataSourceCall(t *testing.T) {
	x := expr.Param("x", expr.ObjectType)
	eighteen := expr.Const(18)
	pred := expr.LambdaOf(expr.Gt(expr.MemberOf(x, "age", expr.IntType), eighteen), x)
	call := expr.CallOf(expr.SourceOf(expr.ObjectType), nil, where, users, pred)

	reg, err := Analyze(call)
	require.NoError(t, err)

	assert.False(t, reg.Contains(users), "data-source typed constant")
	assert.False(t, reg.Contains(call))
	assert.False(t, reg.Contains(pred))
	assert.True(t, reg.Contains(eighteen))
	assert.Equal(t, 1, reg.Len())

	out, err := Fold(call, reg)
	require.NoError(t, err)
	assert.Same(t, call, out)
}

func TestAnalyze_SourceOperandByStaticType(t *testing.T) {
	// count(users) yields a plain int but still reads the source.
	n := expr.CallOf(expr.IntType, nil, count, users)

	reg, err := Analyze(n)
	require.NoError(t, err)
	assert.False(t, reg.Contains(n))

	m := expr.MemberOf(users, "length", expr.IntType)
	reg, err = Analyze(m)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestAnalyze_SourceReceiver(t *testing.T) {
	take := &expr.Method{Name: "take"}
	five := expr.Const(5)
	call := expr.CallOf(expr.IntType, users, take, five)

	reg, err := Analyze(call)
	require.NoError(t, err)

	assert.False(t, reg.Contains(call), "call on a data-source receiver")
	assert.False(t, reg.Contains(users))
	assert.Equal(t, []expr.Node{five}, reg.Nodes())
}

func TestAnalyze_MemberInitWithParameterBinding(t *testing.T) {
	x := expr.Param("x", expr.IntType)
	one := expr.Const(1)
	mi := expr.MemberInitOf(expr.NewOf(expr.ObjectType, nil),
		expr.Bind("a", one),
		expr.Bind("b", x))

	reg, err := Analyze(mi)
	require.NoError(t, err)

	assert.True(t, reg.Contains(one))
	assert.False(t, reg.Contains(mi))
	assert.False(t, reg.Contains(mi.New), "constructor is not visited once a binding is poisoned")
	assert.Equal(t, 1, reg.Len())

	out, err := Fold(mi, reg)
	require.NoError(t, err)
	assert.Same(t, mi, out)
}

func TestAnalyze_ListInitWithParameterItem(t *testing.T) {
	x := expr.Param("x", expr.IntType)
	one := expr.Const(1)
	li := expr.ListInitOf(expr.NewOf(expr.ListOf(expr.AnyType), nil), one, x)

	reg, err := Analyze(li)
	require.NoError(t, err)

	assert.True(t, reg.Contains(one))
	assert.False(t, reg.Contains(li))
	assert.False(t, reg.Contains(li.New), "constructor is not visited once an item is poisoned")
	assert.Equal(t, 1, reg.Len())

	out, err := Fold(li, reg)
	require.NoError(t, err)
	assert.Same(t, li, out)
}

func TestFold_MemberInit(t *testing.T) {
	mi := expr.MemberInitOf(expr.NewOf(expr.ObjectType, nil),
		expr.Bind("a", expr.Const(1)),
		expr.Bind("b", expr.Add(expr.Const(1), expr.Const(2))))

	res, err := Reduce(mi, Options{})
	require.NoError(t, err)

	c, ok := res.Tree.(*expr.Constant)
	require.True(t, ok, "expected Constant, got %T", res.Tree)
	assert.Equal(t, map[string]any{"a": 1, "b": int64(3)}, c.Value)
	assert.Equal(t, 1, res.Folded, "only the outermost node is evaluated")
}

func TestFold_ListInit(t *testing.T) {
	li := expr.ListInitOf(expr.NewOf(expr.ListOf(expr.AnyType), nil),
		expr.Const("a"), expr.Const("b"))

	res, err := Reduce(li, Options{})
	require.NoError(t, err)

	v, err := Value(res.Tree)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestFold_ConstructorSlotStaysNew(t *testing.T) {
	ctor := expr.NewOf(expr.ObjectType, nil)
	mi := &expr.MemberInit{
		Typ:      expr.SourceOf(expr.ObjectType),
		New:      ctor,
		Bindings: []expr.Binding{expr.Bind("a", expr.Add(expr.Const(1), expr.Const(1)))},
	}

	reg, err := Analyze(mi)
	require.NoError(t, err)
	require.True(t, reg.Contains(ctor))
	require.False(t, reg.Contains(mi))

	out, err := Fold(mi, reg)
	require.NoError(t, err)

	got, ok := out.(*expr.MemberInit)
	require.True(t, ok)
	assert.Same(t, ctor, got.New)
	c, ok := got.Bindings[0].Value.(*expr.Constant)
	require.True(t, ok)
	assert.Equal(t, int64(2), c.Value)
	assert.NotSame(t, mi, got)
}

func TestFold_OnlyChangedPathRebuilt(t *testing.T) {
	x := expr.Param("x", expr.IntType)
	left := expr.Mul(x, expr.Const(2))
	right := expr.Add(expr.Const(1), expr.Const(2))
	tree := expr.Add(left, right)

	out, err := Reduce(tree, Options{})
	require.NoError(t, err)

	got, ok := out.Tree.(*expr.Binary)
	require.True(t, ok)
	assert.NotSame(t, tree, got)
	assert.Same(t, left, got.Left, "unchanged subtree is shared")
	assert.Equal(t, "((x * 2) + 3)", expr.Format(got))
}

func TestFold_DeferredFailure(t *testing.T) {
	x := expr.Param("x", expr.IntType)
	bad := expr.Div(expr.Const(1), expr.Const(0))
	tree := expr.Add(x, bad)

	res, err := Reduce(tree, Options{})
	require.NoError(t, err, "failures are deferred to the consumer")
	require.Len(t, res.Failures, 1)

	got := res.Tree.(*expr.Binary)
	fail, ok := got.Right.(*expr.Failure)
	require.True(t, ok, "expected Failure, got %T", got.Right)
	assert.True(t, fail.Type().Equal(expr.IntType))
	assert.ErrorIs(t, fail.Err, ErrDivisionByZero)
	assert.True(t, IsEvaluationError(fail.Err))
	assert.Contains(t, fail.Err.Error(), "(1 / 0)")

	_, err = Value(fail)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestFold_OverflowDeferred(t *testing.T) {
	x := expr.Param("x", expr.IntType)
	tree := expr.Add(x, expr.Add(expr.Const(int64(math.MaxInt64)), expr.Const(1)))

	res, err := Reduce(tree, Options{})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, ErrOverflow)
}

func TestFold_DeepFailureMessageIsCut(t *testing.T) {
	var n expr.Node = expr.Div(expr.Const(1), expr.Const(0))
	for i := 0; i < 100000; i++ {
		n = expr.Add(n, expr.Const(1))
	}

	res, err := Reduce(n, Options{})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)

	var ee *EvaluationError
	require.True(t, errors.As(res.Failures[0].Err, &ee))
	assert.LessOrEqual(t, len(ee.Expr), maxExprLen)
	assert.True(t, strings.HasPrefix(ee.Expr, "(((("), ee.Expr)
	assert.True(t, strings.HasSuffix(ee.Expr, "..."), ee.Expr)
	assert.ErrorIs(t, ee, ErrDivisionByZero)
}

func TestReduce_StrictSurfacesFailure(t *testing.T) {
	tree := expr.CallOf(expr.StringType, expr.Const("a"), &expr.Method{Name: "native_only"})

	res, err := Reduce(tree, Options{Strict: true})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.ErrorIs(t, err, ErrNoHostFunc)
	assert.True(t, IsEvaluationError(err))

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrCodeEvaluationFailed, pe.Code)
}

func TestAnalyze_OpaqueAndTerminalNodes(t *testing.T) {
	inner := expr.Const(1)
	ext := expr.Ext("raw", expr.IntType, inner)
	failed := expr.Fail(expr.IntType, errors.New("boom"))
	two := expr.Const(2)
	tree := expr.Add(expr.Add(ext, failed), two)

	reg, err := Analyze(tree)
	require.NoError(t, err)

	assert.False(t, reg.Contains(ext))
	assert.False(t, reg.Contains(inner), "extension operands are not entered")
	assert.False(t, reg.Contains(failed))
	assert.True(t, reg.Contains(two))
	assert.Equal(t, 1, reg.Len())

	for _, n := range reg.Nodes() {
		assert.NotEqual(t, expr.KindParameter, n.Kind())
		assert.NotEqual(t, expr.KindFailure, n.Kind())
	}
}

func TestReduce_LoneParameter(t *testing.T) {
	x := expr.Param("x", expr.IntType)

	res, err := Reduce(x, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Registry.Len())
	assert.Same(t, x, res.Tree)
}

func TestReduce_LoneConstant(t *testing.T) {
	c := expr.Const("hello")

	res, err := Reduce(c, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Registry.Len())
	assert.Same(t, c, res.Tree)
	assert.Equal(t, 0, res.Folded)
}

func TestReduce_Idempotent(t *testing.T) {
	x := expr.Param("x", expr.StringType)
	tree := expr.And(
		expr.Eq(expr.CallOf(expr.StringType, expr.Const("ab"), upper), x),
		expr.Lt(expr.Neg(expr.Const(4)), expr.Mod(expr.Const(7), expr.Const(0))))

	first, err := Reduce(tree, Options{})
	require.NoError(t, err)
	second, err := Reduce(first.Tree, Options{})
	require.NoError(t, err)

	assert.Same(t, first.Tree, second.Tree)
	assert.Equal(t, 0, second.Folded)
}

func TestFold_MatchesEval(t *testing.T) {
	tests := []struct {
		name string
		tree expr.Node
	}{
		{"arithmetic", expr.Sub(expr.Mul(expr.Const(6), expr.Const(7)), expr.Div(expr.Const(9), expr.Const(2)))},
		{"float arithmetic", expr.Add(expr.Const(0.5), expr.Mod(expr.Const(7.5), expr.Const(2)))},
		{"comparison", expr.And(expr.Lt(expr.Const(1), expr.Const(2)), expr.Ne(expr.Const("a"), expr.Const("b")))},
		{"large int equality", expr.Eq(expr.Const(int64(1<<53+1)), expr.Const(int64(1<<53)))},
		{"concat", expr.Add(expr.Const("n="), expr.Neg(expr.Const(3)))},
		{"method call", expr.CallOf(expr.StringType, expr.Const("ab"), upper)},
		{"member of document", expr.MemberOf(expr.Const(map[string]any{"a": "b"}), "a", expr.StringType)},
		{"coalesce", expr.Coalesce(expr.Const(nil), expr.Add(expr.Const(1), expr.Const(1)))},
		{"member init", expr.MemberInitOf(expr.NewOf(expr.ObjectType, nil),
			expr.Bind("a", expr.Const(1)), expr.Bind("b", expr.Add(expr.Const(1), expr.Const(2))))},
		{"list init", expr.ListInitOf(expr.NewOf(expr.ListOf(expr.AnyType), nil),
			expr.Const("x"), expr.Mul(expr.Const(2), expr.Const(3)))},
		{"lone constant", expr.Const("hello")},
		{"division by zero", expr.Add(expr.Const(1), expr.Div(expr.Const(1), expr.Const(0)))},
		{"overflow", expr.Mul(expr.Const(int64(math.MaxInt64)), expr.Const(2))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, wantErr := Eval(tt.tree)

			res, err := Reduce(tt.tree, Options{})
			require.NoError(t, err)
			got, gotErr := Value(res.Tree)

			if wantErr != nil {
				require.Error(t, gotErr)
				assert.True(t, IsEvaluationError(gotErr))
				assert.Contains(t, gotErr.Error(), wantErr.Error())
				return
			}
			require.NoError(t, gotErr)
			assert.Equal(t, want, got)
		})
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	x := expr.Param("x", expr.ObjectType)
	tree := expr.ListInitOf(expr.NewOf(expr.ListOf(expr.AnyType), nil),
		expr.Const(1),
		expr.MemberOf(x, "name", expr.StringType),
		expr.Add(expr.Const("a"), expr.Const("b")))

	first, err := Analyze(tree)
	require.NoError(t, err)
	second, err := Analyze(tree)
	require.NoError(t, err)

	assert.Equal(t, first.Nodes(), second.Nodes())
}

func TestReduce_ConcurrentSharedTree(t *testing.T) {
	x := expr.Param("x", expr.IntType)
	tree := expr.Add(x, expr.Mul(expr.Const(6), expr.Const(7)))

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := Reduce(tree, Options{})
			if err == nil {
				results[i] = expr.Format(res.Tree)
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, "(x + 42)", got)
	}
}

func TestReduce_DeepTree(t *testing.T) {
	var n expr.Node = expr.Const(0)
	for i := 0; i < 100000; i++ {
		n = expr.Add(n, expr.Const(1))
	}

	res, err := Reduce(n, Options{})
	require.NoError(t, err)

	v, err := Value(res.Tree)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), v)
}

func TestInvalidArguments(t *testing.T) {
	_, err := Analyze(nil)
	assert.ErrorIs(t, err, ErrNilTree)
	assert.True(t, IsInvalidArgument(err))

	_, err = Fold(nil, &Registry{})
	assert.ErrorIs(t, err, ErrNilTree)

	_, err = Fold(expr.Const(1), nil)
	assert.ErrorIs(t, err, ErrNilRegistry)
	assert.True(t, IsInvalidArgument(err))

	_, err = Reduce(nil, Options{})
	assert.True(t, IsInvalidArgument(err))
}

func TestValue_NotFolded(t *testing.T) {
	_, err := Value(expr.Param("x", expr.IntType))
	assert.ErrorIs(t, err, ErrNotFolded)
}
