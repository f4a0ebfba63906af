// Package expr provides the expression tree used by docql's query layer.
//
// A query built from lazy collection operators (Where, Select, Join, ...) is
// represented as a tree of Nodes. The tree is consumed by the partial
// evaluator (internal/partial), which folds data-independent subtrees, and
// then by a native query translator (internal/querysql).
//
// ARCHITECTURE:
//
//	[query builder] → [expr.Node tree] → [partial.Reduce] → [querysql.Compile]
//
// SEALED NODE SET:
//
// Node is a sealed interface using the marker method pattern. Only the node
// types in this package implement it:
//
//	Constant, Parameter, Call, Member, Binary, Unary,
//	New, MemberInit, ListInit, Lambda, Failure, Extension
//
// Consumers switch exhaustively over these types. Extension is the single
// explicit escape hatch for backend-specific nodes; it is opaque to the
// default traversal.
//
// IDENTITY:
//
// Nodes are immutable once constructed and compared by pointer. Two
// syntactically identical nodes are distinct unless they are literally the
// same node, and the same node may appear more than once in a tree.
//
// DATA-SOURCE CAPABILITY:
//
// Every node carries a static result *Type. Types built with SourceOf answer
// true from IsDataSource: such a node is a live handle into the database and
// must be translated, never evaluated.
//
// TRAVERSAL:
//
// Walk drives a Visitor over a tree with an explicit work stack, so deeply
// nested expressions cannot exhaust the goroutine stack. Rewriter is the
// default rebuilding visitor: it rebuilds a node only when one of its
// children changed, preserving structural sharing otherwise. Visitors embed
// Rewriter and override the hooks they need.
package expr
