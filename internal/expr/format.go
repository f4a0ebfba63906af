package expr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Format renders n as a deterministic single-line string.
//
//	Add(Const(2), Param("x", IntType))  →  (2 + x)
func Format(n Node) string {
	return FormatLimit(n, 0)
}

// FormatLimit is Format with the output cut to at most max bytes, ending in
// "..." when cut. The cut never splits a rune. A max of zero or less means
// no limit.
//
// The tree is written in one pass into a single buffer, so the cost is
// proportional to the output, and to max when the output is cut.
func FormatLimit(n Node, max int) string {
	if n == nil {
		return "<nil>"
	}
	var b strings.Builder
	stack := []piece{{node: n}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.node != nil {
			stack = pushLayout(stack, p.node)
			continue
		}
		b.WriteString(p.text)
		if max > 0 && b.Len() > max {
			return truncate(b.String(), max)
		}
	}
	return b.String()
}

// piece is either a node still to be laid out or literal text.
type piece struct {
	node Node
	text string
}

func text(s string) piece { return piece{text: s} }

func pushLayout(stack []piece, n Node) []piece {
	seq := layout(n)
	for i := len(seq) - 1; i >= 0; i-- {
		stack = append(stack, seq[i])
	}
	return stack
}

func layout(n Node) []piece {
	switch n := n.(type) {
	case *Constant:
		return []piece{text(FormatValue(n.Value))}
	case *Parameter:
		return []piece{text(n.Name)}
	case *Call:
		var seq []piece
		if n.Receiver != nil {
			seq = append(seq, piece{node: n.Receiver}, text("."))
		}
		seq = append(seq, text(methodName(n.Method)+"("))
		seq = appendList(seq, n.Args)
		return append(seq, text(")"))
	case *Member:
		return []piece{{node: n.Object}, text("." + n.Name)}
	case *Binary:
		return []piece{text("("), {node: n.Left}, text(" " + n.Op.String() + " "), {node: n.Right}, text(")")}
	case *Unary:
		return []piece{text(n.Op.String()), {node: n.Operand}}
	case *New:
		seq := []piece{text("new " + ctorName(n.Ctor, n.Typ) + "(")}
		seq = appendList(seq, n.Args)
		return append(seq, text(")"))
	case *MemberInit:
		seq := []piece{{node: n.New}, text("{")}
		for i, b := range n.Bindings {
			if i > 0 {
				seq = append(seq, text(", "))
			}
			seq = append(seq, text(b.Name+": "), piece{node: b.Value})
		}
		return append(seq, text("}"))
	case *ListInit:
		seq := []piece{{node: n.New}, text("{")}
		seq = appendList(seq, n.Items)
		return append(seq, text("}"))
	case *Lambda:
		names := make([]string, len(n.Params))
		for i, p := range n.Params {
			names[i] = p.Name
		}
		return []piece{text("(" + strings.Join(names, ", ") + ") => "), {node: n.Body}}
	case *Failure:
		return []piece{text("fail(" + strconv.Quote(errString(n.Err)) + ")")}
	case *Extension:
		seq := []piece{text("ext:" + n.Name + "(")}
		seq = appendList(seq, n.Operands)
		return append(seq, text(")"))
	default:
		panic(fmt.Sprintf("expr: missing case for %T", n))
	}
}

func appendList(seq []piece, nodes []Node) []piece {
	for i, n := range nodes {
		if i > 0 {
			seq = append(seq, text(", "))
		}
		seq = append(seq, piece{node: n})
	}
	return seq
}

func truncate(s string, max int) string {
	const ellipsis = "..."
	cut := max - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

// FormatValue renders a host value the way Format renders constants.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + FormatValue(v[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Func:
		return "func"
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

func methodName(m *Method) string {
	if m == nil {
		return "<nil>"
	}
	return m.Name
}

func ctorName(c *Ctor, t *Type) string {
	if c != nil && c.Name != "" {
		return c.Name
	}
	return t.String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
