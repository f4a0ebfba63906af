package partial

import (
	"fmt"

	"github.com/roach88/docql/internal/expr"
)

// Analyze finds the subtrees of tree that are independent of the data
// source and returns them as a Registry.
//
// A node is registered iff:
//   - it is a standard node (not a Parameter, Extension or Failure),
//   - its static type is not data-source typed,
//   - it is not a Call or Member involving a data-source typed receiver
//     or argument, and
//   - every child that was visited is itself evaluable.
//
// Analyze is deterministic and never fails on a non-nil tree: node kinds it
// cannot reason about degrade to "not evaluable".
func Analyze(tree expr.Node) (*Registry, error) {
	if tree == nil {
		return nil, ErrNilTree
	}
	a := &analyzer{reg: newRegistry()}
	expr.Walk[bool](a, tree)
	return a.reg, nil
}

type analyzer struct {
	reg *Registry
}

// Enter does not descend into opaque or terminal nodes.
func (a *analyzer) Enter(n expr.Node) bool {
	switch n.(type) {
	case *expr.Extension, *expr.Failure:
		return false
	}
	return true
}

// Next visits the constructor of a MemberInit or ListInit only when all of
// its bindings or items are evaluable.
func (a *analyzer) Next(n expr.Node, i int, done []bool) bool {
	switch n := n.(type) {
	case *expr.MemberInit:
		if i == len(n.Bindings) {
			return all(done)
		}
	case *expr.ListInit:
		if i == len(n.Items) {
			return all(done)
		}
	}
	return true
}

func (a *analyzer) Leave(n expr.Node, done []bool) bool {
	ok := standard(n) && !n.Type().IsDataSource() && usesNoSource(n) && all(done)
	if ok {
		a.reg.add(n)
	}
	return ok
}

// standard reports whether a node of n's kind can be evaluated at all.
func standard(n expr.Node) bool {
	switch n.(type) {
	case *expr.Parameter, *expr.Extension, *expr.Failure:
		return false
	case *expr.Constant, *expr.Call, *expr.Member, *expr.Binary, *expr.Unary,
		*expr.New, *expr.MemberInit, *expr.ListInit, *expr.Lambda:
		return true
	default:
		panic(fmt.Sprintf("partial: missing case for %T", n))
	}
}

// usesNoSource checks the receiver and arguments of calls and the object of
// member accesses by static type. A data-source typed operand poisons the
// node regardless of how the operand itself analyzes.
func usesNoSource(n expr.Node) bool {
	switch n := n.(type) {
	case *expr.Call:
		if isSource(n.Receiver) {
			return false
		}
		for _, arg := range n.Args {
			if isSource(arg) {
				return false
			}
		}
	case *expr.Member:
		return !isSource(n.Object)
	}
	return true
}

func isSource(n expr.Node) bool {
	return n != nil && n.Type().IsDataSource()
}

func all(done []bool) bool {
	for _, ok := range done {
		if !ok {
			return false
		}
	}
	return true
}
