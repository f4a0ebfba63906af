package harness

import "github.com/roach88/docql/internal/doc"

// TraceEvent records how one query step ran.
type TraceEvent struct {
	Step     string      `json:"step"`
	Original string      `json:"original,omitempty"`
	Folded   string      `json:"folded,omitempty"`
	Failures []string    `json:"failures,omitempty"`
	SQL      string      `json:"sql,omitempty"`
	Params   []any       `json:"params,omitempty"`
	Results  []doc.Value `json:"results,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains the failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Event returns the trace event of the named step.
func (r *Result) Event(step string) (TraceEvent, bool) {
	for _, ev := range r.Trace {
		if ev.Step == step {
			return ev, true
		}
	}
	return TraceEvent{}, false
}
