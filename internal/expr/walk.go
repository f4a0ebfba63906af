package expr

// Visitor is driven by Walk. R is the per-node result threaded from
// children to parents.
//
// For every node Walk calls Enter once. If Enter returns true, the node's
// children (in Children order) are offered to Next one at a time; each
// accepted child is walked completely and its result appended to done.
// The first time Next returns false the remaining children are skipped.
// Finally Leave receives the node and the results of the children that were
// visited and returns the node's own result.
type Visitor[R any] interface {
	Enter(n Node) bool
	Next(n Node, i int, done []R) bool
	Leave(n Node, done []R) R
}

type frame[R any] struct {
	node Node
	kids []Node
	done []R
	next int
}

func enter[R any](v Visitor[R], n Node) frame[R] {
	f := frame[R]{node: n}
	if v.Enter(n) {
		f.kids = Children(n)
		f.done = make([]R, 0, len(f.kids))
	}
	return f
}

// Walk runs v over the tree rooted at n and returns the root's result.
// It uses an explicit work stack; its native stack usage does not grow
// with the depth of the tree.
func Walk[R any](v Visitor[R], n Node) R {
	stack := []frame[R]{enter(v, n)}
	for {
		top := &stack[len(stack)-1]
		if top.next < len(top.kids) && v.Next(top.node, top.next, top.done) {
			child := top.kids[top.next]
			top.next++
			stack = append(stack, enter(v, child))
			continue
		}
		res := v.Leave(top.node, top.done)
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return res
		}
		parent := &stack[len(stack)-1]
		parent.done = append(parent.done, res)
	}
}

// Rewriter is the default rebuilding visitor. It descends into every node
// except Extension (opaque) and Failure (terminal), and rebuilds a node only
// if a visited child came back as a different node. Unchanged subtrees are
// returned as-is, so structural sharing survives a rewrite.
//
// Embed Rewriter and override hooks to change the behaviour for some kinds.
type Rewriter struct{}

func (Rewriter) Enter(n Node) bool {
	switch n.(type) {
	case *Extension, *Failure:
		return false
	}
	return true
}

func (Rewriter) Next(Node, int, []Node) bool { return true }

func (Rewriter) Leave(n Node, done []Node) Node {
	return Rebuild(n, done)
}

// Rebuild returns n with its first len(done) children replaced by done, or
// n itself if every entry of done is identical to the child it replaces.
func Rebuild(n Node, done []Node) Node {
	if len(done) == 0 {
		return n
	}
	kids := Children(n)
	changed := false
	for i, d := range done {
		if d != kids[i] {
			changed = true
			break
		}
	}
	if !changed {
		return n
	}
	copy(kids, done)
	return WithChildren(n, kids)
}

// Rewrite runs a rebuilding visitor over n.
func Rewrite(v Visitor[Node], n Node) Node {
	return Walk(v, n)
}

// Inspect calls fn for each node of the tree in depth-first pre-order.
// Children of a node are skipped if fn returns false for it. Unlike the
// Rewriter, Inspect does enter Extension operands.
func Inspect(n Node, fn func(Node) bool) {
	stack := []Node{n}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			continue
		}
		kids := Children(n)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}
