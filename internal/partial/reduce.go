package partial

import (
	"log/slog"

	"github.com/roach88/docql/internal/expr"
)

// Options configures Reduce.
type Options struct {
	// Strict makes Reduce return the first evaluation failure instead of
	// leaving it in the tree for the consumer.
	Strict bool
}

// Result is the outcome of Reduce.
type Result struct {
	// Tree is the folded tree.
	Tree expr.Node

	// Registry is the evaluable set found by Analyze on the input tree.
	Registry *Registry

	// Folded counts subtrees replaced by a Constant.
	Folded int

	// Failures lists the Failure nodes Fold put in the tree, in tree order.
	Failures []*expr.Failure
}

// Reduce runs Analyze then Fold over tree.
func Reduce(tree expr.Node, opts Options) (*Result, error) {
	reg, err := Analyze(tree)
	if err != nil {
		return nil, err
	}
	out, f, err := fold(tree, reg)
	if err != nil {
		return nil, err
	}

	slog.Debug("partial evaluation",
		"evaluable", reg.Len(),
		"folded", f.folded,
		"failures", len(f.failures))

	res := &Result{Tree: out, Registry: reg, Folded: f.folded, Failures: f.failures}
	if opts.Strict && len(f.failures) > 0 {
		return res, &Error{
			Code:    ErrCodeEvaluationFailed,
			Message: "subtree evaluation failed",
			Err:     f.failures[0].Err,
		}
	}
	return res, nil
}
