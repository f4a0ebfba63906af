package client

import (
	"github.com/roach88/docql/internal/expr"
	"github.com/roach88/docql/internal/partial"
)

// Plan describes how a query would run.
type Plan struct {
	// Original and Folded render the query tree before and after folding.
	Original string `json:"original"`
	Folded   string `json:"folded"`

	// Evaluable is the number of nodes the analysis found evaluable;
	// FoldedCount how many subtrees were replaced.
	Evaluable   int `json:"evaluable"`
	FoldedCount int `json:"folded_count"`

	// Failures are the evaluation errors captured while folding.
	Failures []string `json:"failures,omitempty"`

	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`
	Hash   string `json:"hash,omitempty"`
}

// Explain folds and translates q without executing it. When translation
// fails the returned plan still describes the folding step.
func (db *DB) Explain(q expr.Node) (*Plan, error) {
	plan := &Plan{}
	if q != nil {
		plan.Original = expr.Format(q)
	}

	res, stmt, err := db.prepare(q)
	if res != nil {
		describeFolding(plan, res)
	}
	if err != nil {
		return plan, err
	}

	plan.SQL = stmt.SQL
	plan.Params = stmt.Params
	if plan.Hash, err = stmt.Hash(); err != nil {
		return plan, err
	}
	return plan, nil
}

func describeFolding(plan *Plan, res *partial.Result) {
	plan.Folded = expr.Format(res.Tree)
	plan.Evaluable = res.Registry.Len()
	plan.FoldedCount = res.Folded
	for _, f := range res.Failures {
		plan.Failures = append(plan.Failures, f.Err.Error())
	}
}
