package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/roach88/docql/internal/client"
	"github.com/roach88/docql/internal/doc"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Steps relevant to the failure
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s: %s\n", i+1, event.Step, event.Folded)
			if event.Error != "" {
				fmt.Fprintf(&buf, "      error: %s\n", event.Error)
			}
		}
	}
	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	DB  *client.DB
	Ctx context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for collection_count and
// document assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertResultCount:
			err = assertResultCount(result, assertion)
		case AssertResultsContain:
			err = assertResultsContain(result, assertion)
		case AssertSQLContains:
			err = assertSQLContains(result, assertion)
		case AssertCollectionCount, AssertDocument:
			if actx == nil || actx.DB == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
			} else if assertion.Type == AssertCollectionCount {
				err = assertCollectionCount(actx, assertion)
			} else {
				err = assertDocument(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func stepEvent(result *Result, typ, step string) (TraceEvent, error) {
	ev, ok := result.Event(step)
	if !ok {
		return ev, &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("step %q in trace", step),
			Actual:   "step not found",
			Trace:    result.Trace,
		}
	}
	return ev, nil
}

// assertResultCount checks that a step returned exactly Count results.
func assertResultCount(result *Result, a Assertion) error {
	ev, err := stepEvent(result, AssertResultCount, a.Step)
	if err != nil {
		return err
	}
	if len(ev.Results) != a.Count {
		return &AssertionError{
			Type:     AssertResultCount,
			Expected: fmt.Sprintf("%d results from step %q", a.Count, a.Step),
			Actual:   fmt.Sprintf("%d results", len(ev.Results)),
			Trace:    []TraceEvent{ev},
		}
	}
	return nil
}

// assertResultsContain checks that some result of a step holds every
// attribute of Expect (subset match).
func assertResultsContain(result *Result, a Assertion) error {
	ev, err := stepEvent(result, AssertResultsContain, a.Step)
	if err != nil {
		return err
	}
	for _, r := range ev.Results {
		obj, ok := r.(doc.Object)
		if ok && matchAttributes(obj, a.Expect) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertResultsContain,
		Expected: fmt.Sprintf("a result of step %q matching %s", a.Step, describe(a.Expect)),
		Actual:   fmt.Sprintf("%d results, none matching", len(ev.Results)),
		Trace:    []TraceEvent{ev},
	}
}

// assertSQLContains checks the SQL generated for a step.
func assertSQLContains(result *Result, a Assertion) error {
	ev, err := stepEvent(result, AssertSQLContains, a.Step)
	if err != nil {
		return err
	}
	if !strings.Contains(ev.SQL, a.Text) {
		return &AssertionError{
			Type:     AssertSQLContains,
			Expected: fmt.Sprintf("SQL of step %q containing %q", a.Step, a.Text),
			Actual:   ev.SQL,
			Trace:    []TraceEvent{ev},
		}
	}
	return nil
}

// assertCollectionCount checks the number of stored documents.
func assertCollectionCount(actx *AssertionContext, a Assertion) error {
	n, err := actx.DB.Collection(a.Collection).Count(actx.Ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertCollectionCount,
			Expected: fmt.Sprintf("count collection %s", a.Collection),
			Actual:   fmt.Sprintf("count error: %v", err),
		}
	}
	if n != int64(a.Count) {
		return &AssertionError{
			Type:     AssertCollectionCount,
			Expected: fmt.Sprintf("%d documents in %s", a.Count, a.Collection),
			Actual:   fmt.Sprintf("%d documents", n),
		}
	}
	return nil
}

// assertDocument checks a stored document with subset semantics.
func assertDocument(actx *AssertionContext, a Assertion) error {
	d, err := actx.DB.Collection(a.Collection).Get(actx.Ctx, a.Key)
	if err != nil {
		return &AssertionError{
			Type:     AssertDocument,
			Expected: fmt.Sprintf("document %s/%s", a.Collection, a.Key),
			Actual:   err.Error(),
		}
	}
	obj := d.Object()
	if !matchAttributes(obj, a.Expect) {
		got, _ := doc.MarshalCanonical(obj)
		return &AssertionError{
			Type:     AssertDocument,
			Expected: fmt.Sprintf("document %s/%s matching %s", a.Collection, a.Key, describe(a.Expect)),
			Actual:   string(got),
		}
	}
	return nil
}

// matchAttributes checks if actual contains all expected attributes
// (subset match). Extra attributes in actual are ignored; nested values
// must be equal.
func matchAttributes(actual doc.Object, expected map[string]any) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares a stored value with a value decoded from YAML by
// their canonical encodings.
func valuesEqual(actual, expected any) bool {
	a, err := canonical(actual)
	if err != nil {
		return false
	}
	e, err := canonical(expected)
	if err != nil {
		return false
	}
	return bytes.Equal(a, e)
}

func describe(v map[string]any) string {
	data, err := canonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
