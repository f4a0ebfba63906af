package partial

import "github.com/roach88/docql/internal/expr"

// Registry is the set of evaluable nodes found by Analyze, keyed by node
// identity. It is read-only once Analyze returns.
type Registry struct {
	nodes map[expr.Node]struct{}
	order []expr.Node
}

func newRegistry() *Registry {
	return &Registry{nodes: make(map[expr.Node]struct{})}
}

func (r *Registry) add(n expr.Node) {
	if _, ok := r.nodes[n]; ok {
		return
	}
	r.nodes[n] = struct{}{}
	r.order = append(r.order, n)
}

// Contains reports whether n itself (not an equal node) was found evaluable.
func (r *Registry) Contains(n expr.Node) bool {
	if r == nil {
		return false
	}
	_, ok := r.nodes[n]
	return ok
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Nodes returns the registered nodes in the order they were registered,
// which is post-order: descendants before ancestors.
func (r *Registry) Nodes() []expr.Node {
	if r == nil {
		return nil
	}
	return append([]expr.Node(nil), r.order...)
}
