package partial

import "github.com/roach88/docql/internal/expr"

// Fold replaces every outermost registered node of tree with a Constant
// holding its value. Registered nodes inside an already replaced subtree are
// not evaluated separately. If evaluating a subtree fails, an *expr.Failure
// carrying an *EvaluationError takes its place and Fold carries on.
//
// Unregistered parts of the tree are rebuilt only along paths that changed;
// everything else is shared with the input.
func Fold(tree expr.Node, reg *Registry) (expr.Node, error) {
	out, _, err := fold(tree, reg)
	return out, err
}

func fold(tree expr.Node, reg *Registry) (expr.Node, *folder, error) {
	if tree == nil {
		return nil, nil, ErrNilTree
	}
	if reg == nil {
		return nil, nil, ErrNilRegistry
	}
	f := &folder{reg: reg}
	return expr.Rewrite(f, tree), f, nil
}

type folder struct {
	expr.Rewriter
	reg *Registry

	// folding parallels the Enter/Leave nesting.
	folding []bool

	// ctorSlot is set while the constructor of a MemberInit or ListInit is
	// about to be entered; that slot must stay a New.
	ctorSlot bool

	folded   int
	failures []*expr.Failure
}

func (f *folder) Enter(n expr.Node) bool {
	replace := f.reg.Contains(n) && !f.ctorSlot
	f.ctorSlot = false
	f.folding = append(f.folding, replace)
	if replace {
		return false
	}
	return f.Rewriter.Enter(n)
}

func (f *folder) Next(n expr.Node, i int, done []expr.Node) bool {
	switch n := n.(type) {
	case *expr.MemberInit:
		f.ctorSlot = i == len(n.Bindings)
	case *expr.ListInit:
		f.ctorSlot = i == len(n.Items)
	}
	return true
}

func (f *folder) Leave(n expr.Node, done []expr.Node) expr.Node {
	replace := f.folding[len(f.folding)-1]
	f.folding = f.folding[:len(f.folding)-1]
	if !replace {
		return f.Rewriter.Leave(n, done)
	}
	if _, ok := n.(*expr.Constant); ok {
		return n
	}
	v, err := Eval(n)
	if err != nil {
		fail := expr.Fail(n.Type(), &EvaluationError{Expr: expr.FormatLimit(n, maxExprLen), Err: err})
		f.failures = append(f.failures, fail)
		return fail
	}
	f.folded++
	return expr.TypedConst(n.Type(), v)
}
