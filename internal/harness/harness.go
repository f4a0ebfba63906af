package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/docql/internal/client"
	"github.com/roach88/docql/internal/doc"
	"github.com/roach88/docql/internal/docstore"
	"github.com/roach88/docql/internal/querydef"
	"github.com/roach88/docql/internal/testutil"
)

// Harness runs the steps of one scenario against its own database.
type Harness struct {
	db     *client.DB
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with deterministic
// keys. Setup failures are returned as errors; failed expectations are
// recorded in the result.
//
// Execution flow:
// 1. Seed the setup collections
// 2. Fold, translate and run every step, checking its expect clause
// 3. Evaluate the assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := testutil.DiscardLogger()

	db, err := client.Open(ctx, client.Options{
		Path:          ":memory:",
		StrictFolding: scenario.StrictFolding,
		KeyGenerator:  testutil.NewDeterministicKeys("key"),
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory database: %w", err)
	}
	defer db.Close()

	h := &Harness{db: db, logger: logger}

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	actx := &AssertionContext{DB: db, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSetup imports the seed documents. Every seed is complete: one bad
// document fails the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []SeedStep) error {
	for i, seed := range setup {
		docs := make([]doc.Object, len(seed.Documents))
		for j, raw := range seed.Documents {
			if raw == nil {
				continue
			}
			obj, err := doc.NormalizeObject(raw)
			if err != nil {
				return fmt.Errorf("setup step %d: document %d: %w", i, j, err)
			}
			docs[j] = obj
		}

		policy, err := docstore.ParseDuplicatePolicy(seed.OnDuplicate)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		res, err := h.db.Collection(seed.Collection).Import(ctx, docs, docstore.ImportOptions{
			CreateCollection: true,
			OnDuplicate:      policy,
			Complete:         true,
			Details:          true,
		})
		if err != nil {
			return fmt.Errorf("setup step %d: %w %v", i, err, res.Details)
		}

		h.logger.Info("setup step completed",
			"step", i,
			"collection", seed.Collection,
			"created", res.Created,
			"updated", res.Updated,
		)
	}
	return nil
}

// executeSteps runs every query step and validates its expect clause.
// Query errors are part of the trace, not of the returned error; only a
// definition that cannot be built aborts the run.
func (h *Harness) executeSteps(ctx context.Context, steps []QueryStep, result *Result) error {
	for _, step := range steps {
		q, err := querydef.Node(&step.Query)
		if err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}

		event := TraceEvent{Step: step.Name}
		plan, err := h.db.Explain(q)
		if plan != nil {
			event.Original = plan.Original
			event.Folded = plan.Folded
			event.Failures = plan.Failures
			event.SQL = plan.SQL
			event.Params = plan.Params
		}
		if err == nil {
			event.Results, err = h.db.Query(ctx, q)
		}
		if err != nil {
			event.Error = err.Error()
		}
		result.Trace = append(result.Trace, event)

		folded := 0
		if plan != nil {
			folded = plan.FoldedCount
		}
		for _, msg := range checkExpect(step, event, folded) {
			result.AddError(msg)
		}

		h.logger.Info("step completed",
			"step", step.Name,
			"results", len(event.Results),
			"error", event.Error,
		)
	}
	return nil
}

// checkExpect compares one step's outcome with its expect clause.
func checkExpect(step QueryStep, event TraceEvent, folded int) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("step %q: ", step.Name)+fmt.Sprintf(format, args...))
	}

	exp := step.Expect
	if exp == nil {
		if event.Error != "" {
			fail("unexpected error: %s", event.Error)
		}
		return errs
	}

	if exp.Error != "" {
		if !strings.Contains(event.Error, exp.Error) {
			fail("expected error containing %q, got %q", exp.Error, event.Error)
		}
	} else if event.Error != "" {
		fail("unexpected error: %s", event.Error)
	}

	if exp.Results != nil {
		want, err := canonical(exp.Results)
		if err != nil {
			fail("invalid expected results: %v", err)
		} else if got, err := canonical(resultsOrEmpty(event.Results)); err != nil || !bytes.Equal(want, got) {
			fail("expected results %s, got %s", want, got)
		}
	}
	if exp.Count != nil && len(event.Results) != *exp.Count {
		fail("expected %d results, got %d", *exp.Count, len(event.Results))
	}
	if exp.Folded != nil && folded != *exp.Folded {
		fail("expected %d folded subtrees, got %d", *exp.Folded, folded)
	}
	return errs
}

func resultsOrEmpty(results []doc.Value) []doc.Value {
	if results == nil {
		return []doc.Value{}
	}
	return results
}

// canonical normalizes v and renders it as canonical JSON, so that values
// decoded from YAML compare equal to values read from the database.
func canonical(v any) ([]byte, error) {
	n, err := doc.Normalize(v)
	if err != nil {
		return nil, err
	}
	return doc.MarshalCanonical(n)
}
