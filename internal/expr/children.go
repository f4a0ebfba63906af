package expr

import "fmt"

// Children returns the children of n in their fixed order:
//
//	Call        receiver (if any), then arguments in call order
//	Member      accessed object
//	Binary      left, right
//	Unary       operand
//	New         constructor arguments
//	MemberInit  binding values in order, then the New
//	ListInit    items in order, then the New
//	Lambda      body, then parameters
//	Extension   operands
//
// Constant, Parameter and Failure have no children.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Constant, *Parameter, *Failure:
		return nil
	case *Call:
		kids := make([]Node, 0, len(n.Args)+1)
		if n.Receiver != nil {
			kids = append(kids, n.Receiver)
		}
		return append(kids, n.Args...)
	case *Member:
		return []Node{n.Object}
	case *Binary:
		return []Node{n.Left, n.Right}
	case *Unary:
		return []Node{n.Operand}
	case *New:
		return append([]Node(nil), n.Args...)
	case *MemberInit:
		kids := make([]Node, 0, len(n.Bindings)+1)
		for _, b := range n.Bindings {
			kids = append(kids, b.Value)
		}
		return append(kids, n.New)
	case *ListInit:
		kids := make([]Node, 0, len(n.Items)+1)
		kids = append(kids, n.Items...)
		return append(kids, n.New)
	case *Lambda:
		kids := make([]Node, 0, len(n.Params)+1)
		kids = append(kids, n.Body)
		for _, p := range n.Params {
			kids = append(kids, p)
		}
		return kids
	case *Extension:
		return append([]Node(nil), n.Operands...)
	default:
		panic(fmt.Sprintf("expr: missing case for %T", n))
	}
}

// WithChildren returns a copy of n whose children are replaced by kids,
// given in the order Children reports them. It panics if the number or
// kind of kids does not fit n; that is a programming error in a visitor.
func WithChildren(n Node, kids []Node) Node {
	want := len(Children(n))
	if len(kids) != want {
		panic(fmt.Sprintf("expr: %s takes %d children, got %d", n.Kind(), want, len(kids)))
	}
	switch n := n.(type) {
	case *Constant, *Parameter, *Failure:
		return n
	case *Call:
		c := *n
		if c.Receiver != nil {
			c.Receiver, kids = kids[0], kids[1:]
		}
		c.Args = kids
		return &c
	case *Member:
		m := *n
		m.Object = kids[0]
		return &m
	case *Binary:
		b := *n
		b.Left, b.Right = kids[0], kids[1]
		return &b
	case *Unary:
		u := *n
		u.Operand = kids[0]
		return &u
	case *New:
		nn := *n
		nn.Args = kids
		return &nn
	case *MemberInit:
		mi := *n
		mi.Bindings = make([]Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			mi.Bindings[i] = Binding{Name: b.Name, Value: kids[i]}
		}
		mi.New = mustNew(kids[len(kids)-1])
		return &mi
	case *ListInit:
		li := *n
		li.Items = kids[:len(kids)-1]
		li.New = mustNew(kids[len(kids)-1])
		return &li
	case *Lambda:
		l := *n
		l.Body = kids[0]
		l.Params = make([]*Parameter, len(n.Params))
		for i, k := range kids[1:] {
			p, ok := k.(*Parameter)
			if !ok {
				panic(fmt.Sprintf("expr: lambda parameter replaced by %s", k.Kind()))
			}
			l.Params[i] = p
		}
		return &l
	case *Extension:
		e := *n
		e.Operands = kids
		return &e
	default:
		panic(fmt.Sprintf("expr: missing case for %T", n))
	}
}

func mustNew(n Node) *New {
	nn, ok := n.(*New)
	if !ok {
		panic(fmt.Sprintf("expr: constructor slot replaced by %s", n.Kind()))
	}
	return nn
}
