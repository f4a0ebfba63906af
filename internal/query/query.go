// Package query builds query expression trees from lazy collection
// operators.
//
// A Queryable wraps an expression whose static type is a data source. Each
// operator returns a new Queryable whose expression is a static Call with
// the previous source as its first argument:
//
//	q := query.From("users").
//		Where(func(u query.Var) expr.Node { return expr.Gt(u.Field("age"), expr.Const(18)) }).
//		OrderBy(func(u query.Var) expr.Node { return u.Field("name") }).
//		Take(expr.Const(10))
//
// Nothing is evaluated while building; the tree is handed to
// partial.Reduce and then to the native-query translator.
package query

import (
	"strings"

	"github.com/roach88/docql/internal/expr"
)

// Source is the host value behind a collection constant.
type Source struct {
	Collection string
}

func (s *Source) String() string {
	return "collection(" + s.Collection + ")"
}

// Operator methods. They only have a meaning in the native query language,
// so none has a host implementation.
var (
	WhereOp       = &expr.Method{Name: "where"}
	SelectOp      = &expr.Method{Name: "select"}
	OrderByOp     = &expr.Method{Name: "order_by"}
	OrderByDescOp = &expr.Method{Name: "order_by_desc"}
	ThenByOp      = &expr.Method{Name: "then_by"}
	ThenByDescOp  = &expr.Method{Name: "then_by_desc"}
	SkipOp        = &expr.Method{Name: "skip"}
	TakeOp        = &expr.Method{Name: "take"}
	JoinOp        = &expr.Method{Name: "join"}
	CountOp       = &expr.Method{Name: "count"}
)

// Queryable is a lazily composed query over a collection.
type Queryable struct {
	node expr.Node
}

// From starts a query over the named collection.
func From(collection string) Queryable {
	return Queryable{node: SourceConst(collection)}
}

// SourceConst returns the data-source typed constant for a collection.
func SourceConst(collection string) *expr.Constant {
	t := expr.SourceOf(expr.ObjectType)
	t.Name = collection
	return expr.TypedConst(t, &Source{Collection: collection})
}

// Wrap turns an existing data-source typed expression into a Queryable.
// It returns false if n is not data-source typed.
func Wrap(n expr.Node) (Queryable, bool) {
	if n == nil || !n.Type().IsDataSource() {
		return Queryable{}, false
	}
	return Queryable{node: n}, true
}

// Node returns the expression tree of the query.
func (q Queryable) Node() expr.Node {
	return q.node
}

func (q Queryable) String() string {
	return expr.Format(q.node)
}

func (q Queryable) op(m *expr.Method, args ...expr.Node) Queryable {
	all := append([]expr.Node{q.node}, args...)
	return Queryable{node: expr.CallOf(q.node.Type(), nil, m, all...)}
}

// Where keeps the documents for which pred is true.
func (q Queryable) Where(pred func(x Var) expr.Node) Queryable {
	return q.op(WhereOp, Lambda1(pred))
}

// Select projects each document.
func (q Queryable) Select(proj func(x Var) expr.Node) Queryable {
	return q.op(SelectOp, Lambda1(proj))
}

// OrderBy sorts ascending by key, replacing any earlier ordering.
func (q Queryable) OrderBy(key func(x Var) expr.Node) Queryable {
	return q.op(OrderByOp, Lambda1(key))
}

// OrderByDesc sorts descending by key, replacing any earlier ordering.
func (q Queryable) OrderByDesc(key func(x Var) expr.Node) Queryable {
	return q.op(OrderByDescOp, Lambda1(key))
}

// ThenBy adds an ascending secondary sort key.
func (q Queryable) ThenBy(key func(x Var) expr.Node) Queryable {
	return q.op(ThenByOp, Lambda1(key))
}

// ThenByDesc adds a descending secondary sort key.
func (q Queryable) ThenByDesc(key func(x Var) expr.Node) Queryable {
	return q.op(ThenByDescOp, Lambda1(key))
}

// Skip drops the first n documents. n may be any closed expression.
func (q Queryable) Skip(n expr.Node) Queryable {
	return q.op(SkipOp, n)
}

// Take keeps at most n documents. n may be any closed expression.
func (q Queryable) Take(n expr.Node) Queryable {
	return q.op(TakeOp, n)
}

// Join correlates q with inner on equal keys and projects each matching
// pair with result.
func (q Queryable) Join(inner Queryable, outerKey, innerKey func(x Var) expr.Node, result func(outer, inner Var) expr.Node) Queryable {
	return q.op(JoinOp, inner.node, Lambda1(outerKey), Lambda1(innerKey), Lambda2(result))
}

// Count returns an expression counting the documents of q.
func (q Queryable) Count() expr.Node {
	return expr.CallOf(expr.IntType, nil, CountOp, q.node)
}

// Var is a lambda range variable.
type Var struct {
	P *expr.Parameter
}

// Node returns the parameter itself.
func (v Var) Node() expr.Node {
	return v.P
}

// Field accesses a dotted attribute path of the range variable.
func (v Var) Field(path string) expr.Node {
	return FieldOf(v.P, path)
}

// FieldOf builds a chain of member accesses for a dotted path on obj.
func FieldOf(obj expr.Node, path string) expr.Node {
	n := obj
	for _, name := range strings.Split(path, ".") {
		n = expr.MemberOf(n, name, expr.AnyType)
	}
	return n
}

// Lambda1 builds a one-parameter lambda from a Go closure.
func Lambda1(fn func(x Var) expr.Node) *expr.Lambda {
	x := expr.Param("x", expr.ObjectType)
	return expr.LambdaOf(fn(Var{P: x}), x)
}

// Lambda2 builds a two-parameter lambda from a Go closure.
func Lambda2(fn func(a, b Var) expr.Node) *expr.Lambda {
	a := expr.Param("a", expr.ObjectType)
	b := expr.Param("b", expr.ObjectType)
	return expr.LambdaOf(fn(Var{P: a}, Var{P: b}), a, b)
}

// Object builds a document from bindings.
func Object(fields ...expr.Binding) *expr.MemberInit {
	return expr.MemberInitOf(expr.NewOf(expr.ObjectType, nil), fields...)
}

// Field is a named binding for Object.
func Field(name string, v expr.Node) expr.Binding {
	return expr.Bind(name, v)
}

// List builds a list from items.
func List(items ...expr.Node) *expr.ListInit {
	return expr.ListInitOf(expr.NewOf(expr.ListOf(expr.AnyType), nil), items...)
}
