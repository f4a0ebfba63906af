package querysql

import (
	"fmt"

	"github.com/roach88/docql/internal/expr"
	"github.com/roach88/docql/internal/query"
)

// binaryOps maps operators onto SQL. Add is handled separately because it
// doubles as string concatenation.
var binaryOps = map[expr.BinaryOp]string{
	expr.OpSub: "-",
	expr.OpMul: "*",
	expr.OpDiv: "/",
	expr.OpMod: "%",
	expr.OpEq:  "=",
	expr.OpNe:  "<>",
	expr.OpLt:  "<",
	expr.OpLe:  "<=",
	expr.OpGt:  ">",
	expr.OpGe:  ">=",
	expr.OpAnd: "AND",
	expr.OpOr:  "OR",
}

// builtinSQL renders a builtin call given its translated arguments.
var builtinSQL = map[*expr.Method]func(args []frag) frag{
	query.UpperFn:  func(a []frag) frag { return call("UPPER", a...) },
	query.LowerFn:  func(a []frag) frag { return call("LOWER", a...) },
	query.ConcatFn: func(a []frag) frag { return call("CONCAT", a...) },
	query.LenFn:    func(a []frag) frag { return call("LENGTH", a...) },
	query.AbsFn:    func(a []frag) frag { return call("ABS", a...) },
	query.RoundFn:  func(a []frag) frag { return call("ROUND", a...) },
	query.ContainsFn: func(a []frag) frag {
		var b builder
		b.raw("(").frag(call("INSTR", a...)).raw(" > 0)")
		return b.build()
	},
}

// scalar translates a value expression. Member chains rooted at a bound
// lambda parameter collapse into a single JSON path lookup.
type scalar struct {
	t *translation
}

func (s *scalar) Enter(n expr.Node) bool {
	switch n := n.(type) {
	case *expr.Member:
		_, _, rooted := paramPath(n)
		return !rooted
	case *expr.Lambda, *expr.Extension, *expr.Failure:
		return false
	}
	return true
}

func (s *scalar) Next(_ expr.Node, i int, done []frag) bool {
	return i == 0 || done[i-1].err == nil
}

func (s *scalar) Leave(n expr.Node, done []frag) frag {
	for _, d := range done {
		if d.err != nil {
			return d
		}
	}
	f, err := s.leave(n, done)
	if err != nil {
		return frag{err: err}
	}
	return f
}

func (s *scalar) leave(n expr.Node, done []frag) (frag, error) {
	switch n := n.(type) {
	case *expr.Constant:
		if n.Type().IsDataSource() {
			return frag{}, fmt.Errorf("collection in value position: %w", ErrUnsupported)
		}
		return param(n.Value)

	case *expr.Parameter:
		el, ok := s.t.bindings[n]
		if !ok {
			return frag{}, fmt.Errorf("%s: %w", n.Name, ErrUnboundParameter)
		}
		return el.whole(), nil

	case *expr.Member:
		if len(done) == 0 {
			p, path, _ := paramPath(n)
			el, ok := s.t.bindings[p]
			if !ok {
				return frag{}, fmt.Errorf("%s: %w", p.Name, ErrUnboundParameter)
			}
			return el.path(path)
		}
		path, err := jsonPath([]string{n.Name})
		if err != nil {
			return frag{}, err
		}
		return call("json_extract", done[0], raw(path)), nil

	case *expr.Binary:
		return binary(n, done[0], done[1])

	case *expr.Unary:
		var b builder
		switch n.Op {
		case expr.OpNot:
			b.raw("(NOT ").frag(done[0]).raw(")")
		case expr.OpNeg:
			b.raw("(-").frag(done[0]).raw(")")
		default:
			return frag{}, fmt.Errorf("operator %s: %w", n.Op, ErrUnsupported)
		}
		return b.build(), nil

	case *expr.Call:
		render, ok := builtinSQL[n.Method]
		if !ok || n.Receiver != nil {
			return frag{}, fmt.Errorf("call %s: %w", describe(n), ErrUnsupported)
		}
		return render(done), nil

	case *expr.New:
		if n.Ctor != nil || len(n.Args) > 0 {
			return frag{}, fmt.Errorf("constructor %s: %w", describe(n), ErrUnsupported)
		}
		if n.Typ != nil && n.Typ.Kind == expr.TList {
			return raw("json_array()"), nil
		}
		return raw("json_object()"), nil

	case *expr.MemberInit:
		if n.New.Typ != nil && n.New.Typ.Kind == expr.TList {
			return frag{}, fmt.Errorf("member bindings on a list: %w", ErrUnsupported)
		}
		args := make([]frag, 0, 2*len(n.Bindings))
		for i, bind := range n.Bindings {
			args = append(args, raw(sqlString(bind.Name)), done[i])
		}
		return call("json_object", args...), nil

	case *expr.ListInit:
		return call("json_array", done[:len(n.Items)]...), nil

	case *expr.Lambda:
		return frag{}, fmt.Errorf("lambda outside an operator: %w", ErrUnsupported)

	case *expr.Failure:
		return frag{}, n.Err

	case *expr.Extension:
		return frag{}, fmt.Errorf("extension %s: %w", n.Name, ErrUnsupported)

	default:
		panic(fmt.Sprintf("querysql: missing case for %T", n))
	}
}

func binary(n *expr.Binary, l, r frag) (frag, error) {
	var b builder
	switch n.Op {
	case expr.OpAdd:
		op := " + "
		if isString(n.Left) || isString(n.Right) {
			op = " || "
		}
		b.raw("(").frag(l).raw(op).frag(r).raw(")")
	case expr.OpCoalesce:
		return call("COALESCE", l, r), nil
	case expr.OpEq, expr.OpNe:
		op := binaryOps[n.Op]
		if isNull(n.Left) || isNull(n.Right) {
			op = "IS"
			if n.Op == expr.OpNe {
				op = "IS NOT"
			}
		}
		b.raw("(").frag(l).raw(" ", op, " ").frag(r).raw(")")
	default:
		op, ok := binaryOps[n.Op]
		if !ok {
			return frag{}, fmt.Errorf("operator %s: %w", n.Op, ErrUnsupported)
		}
		b.raw("(").frag(l).raw(" ", op, " ").frag(r).raw(")")
	}
	return b.build(), nil
}

func isString(n expr.Node) bool {
	t := n.Type()
	return t != nil && t.Kind == expr.TString
}

func isNull(n expr.Node) bool {
	c, ok := n.(*expr.Constant)
	return ok && c.Value == nil
}

// paramPath reports whether the member chain m ends at a lambda
// parameter, returning the parameter and the attribute path from it.
func paramPath(m *expr.Member) (*expr.Parameter, []string, bool) {
	var rev []string
	var n expr.Node = m
	for {
		switch cur := n.(type) {
		case *expr.Member:
			rev = append(rev, cur.Name)
			n = cur.Object
			continue
		case *expr.Parameter:
			path := make([]string, len(rev))
			for i, name := range rev {
				path[len(rev)-1-i] = name
			}
			return cur, path, true
		}
		return nil, nil, false
	}
}
