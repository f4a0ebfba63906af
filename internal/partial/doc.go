// Package partial implements partial evaluation of query expression trees.
//
// Before a query is translated into the native query language, the parts of
// its expression tree that do not depend on the data source are computed
// once on the client. Two passes do this:
//
//  1. Analyze walks the tree and records, in a Registry, every node whose
//     subtree is evaluable: it contains no Parameter, no Extension, no
//     Failure, no data-source typed node, and no Call or Member that uses a
//     data-source typed receiver or argument.
//  2. Fold walks the tree top-down and replaces each outermost registered
//     node by a Constant holding its value, computed by Eval.
//
// EVALUABILITY:
//
// Each node's evaluability is returned from its visit and combined by AND
// into its parent. A node registers itself based only on its own kind and
// its descendants, never on its ancestors, so the constant operand of
// (x + 3) is registered even though the addition is not.
//
// DEFERRED FAILURES:
//
// If evaluating a registered subtree fails, Fold puts an *expr.Failure in
// its place instead of returning the error. The failure surfaces when a
// consumer needs the value (querysql.Compile returns it), which keeps a
// failing branch that is never consumed from aborting the compilation.
// Options.Strict makes Reduce surface the first failure immediately.
//
// All passes use explicit work stacks and own their state; concurrent runs
// on shared trees are safe.
package partial
