package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/docql/internal/doc"
	"github.com/roach88/docql/internal/expr"
	"github.com/roach88/docql/internal/query"
)

// Translation errors.
var (
	ErrNilTree          = errors.New("cannot compile nil expression tree")
	ErrUnsupported      = errors.New("not expressible in SQL")
	ErrUnboundParameter = errors.New("unbound parameter")
)

// DefaultTable is the table documents are stored in.
const DefaultTable = "documents"

// Statement is a translated query: SQLite SQL with positional
// placeholders and the values they bind. Every statement returns a single
// column named value holding JSON text.
type Statement struct {
	SQL    string
	Params []any
}

// Hash identifies the statement by its text and parameters.
func (s Statement) Hash() (string, error) {
	return doc.QueryHash(s.SQL, s.Params)
}

// Compiler translates folded query expression trees into SQLite SQL over
// the JSON1 functions.
//
// All constants are bound as parameters, never interpolated. Every
// row-returning statement ends with an ORDER BY whose last terms are the
// document keys under COLLATE BINARY, so results are deterministic.
type Compiler struct {
	// Table is the document table name.
	Table string
}

// NewCompiler creates a Compiler for the default table.
func NewCompiler() *Compiler {
	return &Compiler{Table: DefaultTable}
}

// Compile translates n. A Failure anywhere in the translated part of the
// tree makes Compile return its captured error.
func (c *Compiler) Compile(n expr.Node) (Statement, error) {
	if n == nil {
		return Statement{}, ErrNilTree
	}
	table := c.Table
	if table == "" {
		table = DefaultTable
	}
	if !isIdent(table) {
		return Statement{}, fmt.Errorf("table name %q: %w", table, ErrUnsupported)
	}

	t := &translation{table: table, bindings: make(map[*expr.Parameter]element)}
	f, err := t.statement(n)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: f.sql, Params: f.params}, nil
}

type orderKey struct {
	expr frag
	desc bool
}

// stage is a SELECT under construction.
type stage struct {
	from   frag
	joined bool
	where  []frag
	elem   element
	order  []orderKey
	ties   []string
	limit  *frag
	offset *frag
}

func (s *stage) paged() bool {
	return s.limit != nil || s.offset != nil
}

// element describes how the current range element is read: a stored
// document row, the v column of a subquery, or a projected expression.
type element struct {
	alias   string
	wrapped bool
	value   frag
}

func (e element) whole() frag {
	switch {
	case e.alias == "":
		return e.value
	case e.wrapped:
		return raw("json_extract(" + e.alias + ".v, '$')")
	}
	return raw(fmt.Sprintf("json_set(%[1]s.body, '$._key', %[1]s.key, '$._rev', %[1]s.rev)", e.alias))
}

func (e element) path(path []string) (frag, error) {
	if e.alias != "" && !e.wrapped && len(path) == 1 {
		switch path[0] {
		case doc.KeyAttr:
			return raw(e.alias + ".key"), nil
		case doc.RevAttr:
			return raw(e.alias + ".rev"), nil
		}
	}
	p, err := jsonPath(path)
	if err != nil {
		return frag{}, err
	}
	switch {
	case e.alias == "":
		return call("json_extract", e.value, raw(p)), nil
	case e.wrapped:
		return raw("json_extract(" + e.alias + ".v, " + p + ")"), nil
	}
	return raw("json_extract(" + e.alias + ".body, " + p + ")"), nil
}

type translation struct {
	table    string
	aliases  int
	bindings map[*expr.Parameter]element
}

func (t *translation) alias(prefix string) string {
	a := fmt.Sprintf("%s%d", prefix, t.aliases)
	t.aliases++
	return a
}

func (t *translation) statement(n expr.Node) (frag, error) {
	if f, ok := n.(*expr.Failure); ok {
		return frag{}, f.Err
	}
	if n.Type().IsDataSource() {
		st, err := t.stage(n)
		if err != nil {
			return frag{}, err
		}
		return t.render(st, []frag{as(call("json_quote", st.elem.whole()), "value")}, true), nil
	}
	if c, ok := n.(*expr.Call); ok && c.Method == query.CountOp {
		if len(c.Args) != 1 {
			return frag{}, fmt.Errorf("count takes 1 argument: %w", ErrUnsupported)
		}
		st, err := t.stage(c.Args[0])
		if err != nil {
			return frag{}, err
		}
		if st.paged() {
			st = t.wrap(st)
		}
		return t.render(st, []frag{raw("json_quote(COUNT(*)) AS value")}, false), nil
	}
	f, err := t.scalar(n)
	if err != nil {
		return frag{}, err
	}
	var b builder
	b.raw("SELECT ").frag(as(call("json_quote", f), "value"))
	return b.build(), nil
}

// stage translates a data-source typed expression: a collection constant
// under a chain of operator calls.
func (t *translation) stage(n expr.Node) (*stage, error) {
	var chain []*expr.Call
	for {
		c, ok := n.(*expr.Call)
		if !ok || c.Receiver != nil || c.Method == nil || len(c.Args) == 0 {
			break
		}
		chain = append(chain, c)
		n = c.Args[0]
	}

	st, err := t.base(n)
	if err != nil {
		return nil, err
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if st, err = t.apply(st, chain[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", chain[i].Method.Name, err)
		}
	}
	return st, nil
}

func (t *translation) base(n expr.Node) (*stage, error) {
	switch n := n.(type) {
	case *expr.Failure:
		return nil, n.Err
	case *expr.Constant:
		src, ok := n.Value.(*query.Source)
		if !ok {
			return nil, fmt.Errorf("collection constant holds %T: %w", n.Value, ErrUnsupported)
		}
		alias := t.alias("d")
		var from, cond builder
		from.raw(t.table, " AS ", alias)
		cond.raw(alias, ".collection = ").frag(bound(src.Collection))
		return &stage{
			from:  from.build(),
			where: []frag{cond.build()},
			elem:  element{alias: alias},
			ties:  []string{alias + ".key"},
		}, nil
	}
	return nil, fmt.Errorf("%s as a collection: %w", n.Kind(), ErrUnsupported)
}

func (t *translation) apply(st *stage, c *expr.Call) (*stage, error) {
	switch c.Method {
	case query.WhereOp:
		if st.paged() {
			st = t.wrap(st)
		}
		pred, err := t.lambda(c, st.elem)
		if err != nil {
			return nil, err
		}
		st.where = append(st.where, pred)

	case query.SelectOp:
		proj, err := t.lambda(c, st.elem)
		if err != nil {
			return nil, err
		}
		st.elem = element{value: proj}

	case query.OrderByOp, query.OrderByDescOp, query.ThenByOp, query.ThenByDescOp:
		if st.paged() {
			st = t.wrap(st)
		}
		key, err := t.lambda(c, st.elem)
		if err != nil {
			return nil, err
		}
		k := orderKey{expr: key, desc: c.Method == query.OrderByDescOp || c.Method == query.ThenByDescOp}
		if c.Method == query.OrderByOp || c.Method == query.OrderByDescOp {
			st.order = []orderKey{k}
		} else {
			st.order = append(st.order, k)
		}

	case query.SkipOp:
		if st.paged() {
			st = t.wrap(st)
		}
		n, err := t.count(c)
		if err != nil {
			return nil, err
		}
		st.offset = &n

	case query.TakeOp:
		if st.limit != nil {
			st = t.wrap(st)
		}
		n, err := t.count(c)
		if err != nil {
			return nil, err
		}
		st.limit = &n

	case query.JoinOp:
		return t.join(st, c)

	default:
		return nil, fmt.Errorf("operator %s: %w", c.Method.Name, ErrUnsupported)
	}
	return st, nil
}

func (t *translation) join(outer *stage, c *expr.Call) (*stage, error) {
	if len(c.Args) != 5 {
		return nil, fmt.Errorf("join takes 5 arguments, got %d: %w", len(c.Args), ErrUnsupported)
	}
	inner, err := t.stage(c.Args[1])
	if err != nil {
		return nil, err
	}
	if outer.paged() {
		outer = t.wrap(outer)
	}
	if inner.paged() || inner.joined {
		inner = t.wrap(inner)
	}

	outerKey, err := t.lambdaArg(c, 2, outer.elem)
	if err != nil {
		return nil, err
	}
	innerKey, err := t.lambdaArg(c, 3, inner.elem)
	if err != nil {
		return nil, err
	}
	result, err := t.lambdaArg(c, 4, outer.elem, inner.elem)
	if err != nil {
		return nil, err
	}

	var eq builder
	eq.frag(outerKey).raw(" = ").frag(innerKey)
	on := append(append([]frag(nil), inner.where...), eq.build())

	var from builder
	from.frag(outer.from).raw(" JOIN ").frag(inner.from).raw(" ON ").join(on, " AND ")

	outer.from = from.build()
	outer.joined = true
	outer.ties = append(outer.ties, inner.ties...)
	outer.elem = element{value: result}
	return outer, nil
}

// wrap turns st into a subquery so that further operators apply to its
// result. The subquery carries its order keys and tie-breakers as columns
// so the outer query keeps the same order.
func (t *translation) wrap(st *stage) *stage {
	alias := t.alias("s")
	cols := []frag{as(call("json_quote", st.elem.whole()), "v")}

	order := make([]orderKey, len(st.order))
	for i, o := range st.order {
		col := fmt.Sprintf("o%d", i)
		cols = append(cols, as(o.expr, col))
		order[i] = orderKey{expr: raw(alias + "." + col), desc: o.desc}
	}
	ties := make([]string, len(st.ties))
	for i, k := range st.ties {
		col := fmt.Sprintf("k%d", i)
		cols = append(cols, raw(k+" AS "+col))
		ties[i] = alias + "." + col
	}

	var from builder
	from.raw("(").frag(t.render(st, cols, true)).raw(") AS ", alias)
	return &stage{
		from:  from.build(),
		elem:  element{alias: alias, wrapped: true},
		order: order,
		ties:  ties,
	}
}

func (t *translation) render(st *stage, cols []frag, ordered bool) frag {
	var b builder
	b.raw("SELECT ").join(cols, ", ").raw(" FROM ").frag(st.from)
	if len(st.where) > 0 {
		b.raw(" WHERE ").join(st.where, " AND ")
	}
	if ordered {
		terms := make([]frag, 0, len(st.order)+len(st.ties))
		for _, o := range st.order {
			dir := " ASC"
			if o.desc {
				dir = " DESC"
			}
			var term builder
			term.frag(o.expr).raw(dir)
			terms = append(terms, term.build())
		}
		for _, k := range st.ties {
			terms = append(terms, raw(k+" COLLATE BINARY ASC"))
		}
		b.raw(" ORDER BY ").join(terms, ", ")
	}
	switch {
	case st.limit != nil:
		b.raw(" LIMIT ").frag(*st.limit)
	case st.offset != nil:
		b.raw(" LIMIT -1")
	}
	if st.offset != nil {
		b.raw(" OFFSET ").frag(*st.offset)
	}
	return b.build()
}

// lambda translates the body of the operator's lambda argument with its
// parameters bound to elems.
func (t *translation) lambda(c *expr.Call, elems ...element) (frag, error) {
	if len(c.Args) != 2 {
		return frag{}, fmt.Errorf("%s takes 2 arguments, got %d: %w", c.Method.Name, len(c.Args), ErrUnsupported)
	}
	return t.lambdaArg(c, 1, elems...)
}

func (t *translation) lambdaArg(c *expr.Call, i int, elems ...element) (frag, error) {
	switch arg := c.Args[i].(type) {
	case *expr.Failure:
		return frag{}, arg.Err
	case *expr.Lambda:
		if len(arg.Params) != len(elems) {
			return frag{}, fmt.Errorf("lambda takes %d parameters, want %d: %w", len(arg.Params), len(elems), ErrUnsupported)
		}
		for j, p := range arg.Params {
			t.bindings[p] = elems[j]
		}
		return t.scalar(arg.Body)
	default:
		return frag{}, fmt.Errorf("argument %d is %s, want lambda: %w", i, arg.Kind(), ErrUnsupported)
	}
}

// count translates the row count argument of skip and take.
func (t *translation) count(c *expr.Call) (frag, error) {
	if len(c.Args) != 2 {
		return frag{}, fmt.Errorf("%s takes 2 arguments, got %d: %w", c.Method.Name, len(c.Args), ErrUnsupported)
	}
	return t.scalar(c.Args[1])
}

func (t *translation) scalar(n expr.Node) (frag, error) {
	f := expr.Walk[frag](&scalar{t: t}, n)
	return f, f.err
}

func as(f frag, name string) frag {
	return frag{sql: f.sql + " AS " + name, params: f.params}
}

func describe(n expr.Node) string {
	return strings.TrimSpace(expr.FormatLimit(n, 80))
}
