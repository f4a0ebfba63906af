package querydef

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/docql/internal/doc"
	"github.com/roach88/docql/internal/expr"
	"github.com/roach88/docql/internal/query"
)

var binaryOps = map[string]func(l, r expr.Node) *expr.Binary{
	"add":      expr.Add,
	"sub":      expr.Sub,
	"mul":      expr.Mul,
	"div":      expr.Div,
	"mod":      expr.Mod,
	"eq":       expr.Eq,
	"ne":       expr.Ne,
	"lt":       expr.Lt,
	"le":       expr.Le,
	"gt":       expr.Gt,
	"ge":       expr.Ge,
	"and":      expr.And,
	"or":       expr.Or,
	"coalesce": expr.Coalesce,
}

// variadic operators fold left over two or more operands.
var variadic = map[string]bool{"add": true, "mul": true, "and": true, "or": true, "coalesce": true}

var unaryOps = map[string]func(x expr.Node) *expr.Unary{
	"not": expr.Not,
	"neg": expr.Neg,
}

// isOperator reports whether key makes a map an expression rather than an
// object literal.
func isOperator(key string) bool {
	if _, ok := binaryOps[key]; ok {
		return true
	}
	if _, ok := unaryOps[key]; ok {
		return true
	}
	switch key {
	case "field", "of", "const":
		return true
	}
	return builtins[key]
}

var builtins = func() map[string]bool {
	m := make(map[string]bool)
	for _, name := range query.BuiltinNames() {
		m[name] = true
	}
	return m
}()

// scope is what {field: ...} refers to inside a lambda.
type scope struct {
	x *query.Var

	// sides maps side names to the attribute holding that side once a
	// join has combined both documents. Empty before a join.
	sides map[string]string
	outer string
}

func (s scope) field(path, of, at string) (expr.Node, error) {
	if s.x == nil {
		return nil, errAt(at, "field %q outside a document context", path)
	}
	if path == "" {
		return nil, errAt(at, "field path is empty")
	}
	if s.sides == nil {
		if of != "" && of != s.outer {
			return nil, errAt(at, "unknown side %q (no join)", of)
		}
		return s.x.Field(path), nil
	}
	if of == "" {
		of = s.outer
	}
	attr, ok := s.sides[of]
	if !ok {
		return nil, errAt(at, "unknown side %q", of)
	}
	return s.x.Field(attr + "." + path), nil
}

// Build turns def into a query. Count is ignored; see Node.
func Build(def *Definition) (query.Queryable, error) {
	if def == nil || def.From == "" {
		return query.Queryable{}, errAt("from", "collection name is required")
	}

	var err error
	// lambda adapts a parse function to the builder's closures; the first
	// error is kept in err.
	lambda := func(sc scope, v doc.Value, at string, objects bool) func(x query.Var) expr.Node {
		return func(x query.Var) expr.Node {
			sc.x = &x
			n, e := parseValue(v, at, sc, objects)
			if e != nil && err == nil {
				err = e
			}
			if n == nil {
				n = expr.Const(nil)
			}
			return n
		}
	}

	q := query.From(def.From)
	sc := scope{outer: def.From}

	if j := def.Join; j != nil {
		if err := checkJoin(def.From, j); err != nil {
			return query.Queryable{}, err
		}
		innerScope := scope{outer: j.Collection}
		inner := query.From(j.Collection)
		if j.Where != nil {
			inner = inner.Where(lambda(innerScope, j.Where, "join.where", false))
		}
		alias := j.Alias()
		q = q.Join(inner,
			lambda(sc, j.OuterKey, "join.outer_key", false),
			lambda(innerScope, j.InnerKey, "join.inner_key", false),
			func(a, b query.Var) expr.Node {
				return query.Object(query.Field(def.From, a.Node()), query.Field(alias, b.Node()))
			})
		sc.sides = map[string]string{def.From: def.From, alias: alias}
	}

	if def.Where != nil {
		q = q.Where(lambda(sc, def.Where, "where", false))
	}

	for i, term := range def.OrderBy {
		at := fmt.Sprintf("order_by[%d]", i)
		key, desc, e := orderTerm(term, at)
		if e != nil {
			return query.Queryable{}, e
		}
		by := lambda(sc, key, at, false)
		switch {
		case i == 0 && desc:
			q = q.OrderByDesc(by)
		case i == 0:
			q = q.OrderBy(by)
		case desc:
			q = q.ThenByDesc(by)
		default:
			q = q.ThenBy(by)
		}
	}

	if def.Select != nil {
		q = q.Select(lambda(sc, def.Select, "select", true))
	}

	if def.Skip != nil {
		n, err := parse(def.Skip, "skip", scope{})
		if err != nil {
			return query.Queryable{}, err
		}
		q = q.Skip(n)
	}
	if def.Take != nil {
		n, err := parse(def.Take, "take", scope{})
		if err != nil {
			return query.Queryable{}, err
		}
		q = q.Take(n)
	}

	if err != nil {
		return query.Queryable{}, err
	}
	return q, nil
}

// Node builds def and applies Count when requested.
func Node(def *Definition) (expr.Node, error) {
	q, err := Build(def)
	if err != nil {
		return nil, err
	}
	if def.Count {
		return q.Count(), nil
	}
	return q.Node(), nil
}

func checkJoin(from string, j *Join) error {
	switch {
	case j.Collection == "":
		return errAt("join.collection", "collection name is required")
	case j.Alias() == from:
		return errAt("join.as", "alias %q clashes with the outer collection; set join.as", from)
	case j.OuterKey == nil:
		return errAt("join.outer_key", "key is required")
	case j.InnerKey == nil:
		return errAt("join.inner_key", "key is required")
	}
	return nil
}

// orderTerm splits an order_by entry into its key expression and direction.
func orderTerm(v doc.Value, at string) (doc.Value, bool, error) {
	obj, err := normalizedObject(v, at)
	if err != nil {
		return nil, false, err
	}
	d, ok := obj["desc"]
	if !ok {
		return obj, false, nil
	}
	desc, isBool := d.(bool)
	if !isBool {
		return nil, false, errAt(at+".desc", "must be a boolean, got %s", doc.TypeName(d))
	}
	key := make(doc.Object, len(obj)-1)
	for k, v := range obj {
		if k != "desc" {
			key[k] = v
		}
	}
	return key, desc, nil
}

func normalizedObject(v doc.Value, at string) (doc.Object, error) {
	n, err := doc.Normalize(v)
	if err != nil {
		return nil, errAt(at, "%v", err)
	}
	obj, ok := n.(doc.Object)
	if !ok {
		return nil, errAt(at, "must be a map, got %s", doc.TypeName(n))
	}
	return obj, nil
}

// parse builds the expression for v found at path at.
func parse(v doc.Value, at string, sc scope) (expr.Node, error) {
	return parseValue(v, at, sc, false)
}

// parseValue is parse with control over maps without an operator key:
// objects builds them as object literals, otherwise they are errors.
func parseValue(v doc.Value, at string, sc scope, objects bool) (expr.Node, error) {
	n, err := doc.Normalize(v)
	if err != nil {
		return nil, errAt(at, "%v", err)
	}

	switch n := n.(type) {
	case []any:
		items, err := parseList(n, at, sc, objects)
		if err != nil {
			return nil, err
		}
		return query.List(items...), nil
	case doc.Object:
		return parseMap(n, at, sc, objects)
	}
	return expr.Const(n), nil
}

func parseList(list []any, at string, sc scope, objects bool) ([]expr.Node, error) {
	out := make([]expr.Node, len(list))
	for i, item := range list {
		n, err := parseValue(item, fmt.Sprintf("%s[%d]", at, i), sc, objects)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func parseMap(obj doc.Object, at string, sc scope, objects bool) (expr.Node, error) {
	keys := doc.SortedKeys(obj)

	var ops []string
	for _, k := range keys {
		if isOperator(k) {
			ops = append(ops, k)
		}
	}
	if len(ops) == 0 && !objects {
		return nil, &Error{Path: at, Err: fmt.Errorf("%w: %s", ErrUnknownOperator, strings.Join(keys, ", "))}
	}
	if len(ops) == 0 {
		fields := make([]expr.Binding, len(keys))
		for i, k := range keys {
			n, err := parseValue(obj[k], at+"."+k, sc, true)
			if err != nil {
				return nil, err
			}
			fields[i] = query.Field(k, n)
		}
		return query.Object(fields...), nil
	}

	if _, ok := obj["field"]; ok {
		return parseField(obj, at, sc)
	}
	if len(keys) != 1 {
		return nil, errAt(at, "expected a single operator, got %s", strings.Join(keys, ", "))
	}

	op := keys[0]
	arg := obj[op]
	at = at + "." + op

	if op == "const" {
		return expr.Const(arg), nil
	}

	args, err := operands(arg, at, sc)
	if err != nil {
		return nil, err
	}

	if fn, ok := unaryOps[op]; ok {
		if len(args) != 1 {
			return nil, errAt(at, "takes 1 operand, got %d", len(args))
		}
		return fn(args[0]), nil
	}

	if fn, ok := binaryOps[op]; ok {
		if len(args) != 2 && !(variadic[op] && len(args) > 2) {
			return nil, errAt(at, "takes 2 operands, got %d", len(args))
		}
		n := expr.Node(fn(args[0], args[1]))
		for _, rest := range args[2:] {
			n = fn(n, rest)
		}
		return n, nil
	}

	if op == "of" {
		return nil, errAt(at, "of without field")
	}

	call, err := query.Builtin(op, args...)
	if err != nil {
		return nil, errAt(at, "%v", err)
	}
	return call, nil
}

// operands parses an operator argument: a list of expressions, or a single
// non-list value taken as the only operand.
func operands(arg doc.Value, at string, sc scope) ([]expr.Node, error) {
	if list, ok := arg.([]any); ok {
		return parseList(list, at, sc, false)
	}
	n, err := parse(arg, at, sc)
	if err != nil {
		return nil, err
	}
	return []expr.Node{n}, nil
}

func parseField(obj doc.Object, at string, sc scope) (expr.Node, error) {
	extra := make([]string, 0, len(obj))
	for k := range obj {
		if k != "field" && k != "of" {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, errAt(at, "unexpected keys next to field: %s", strings.Join(extra, ", "))
	}

	path, ok := obj["field"].(string)
	if !ok {
		return nil, errAt(at+".field", "must be a string, got %s", doc.TypeName(obj["field"]))
	}
	of := ""
	if raw, present := obj["of"]; present {
		if of, ok = raw.(string); !ok {
			return nil, errAt(at+".of", "must be a string, got %s", doc.TypeName(raw))
		}
	}
	return sc.field(path, of, at)
}
