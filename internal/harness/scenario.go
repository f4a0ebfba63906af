package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/docql/internal/docstore"
	"github.com/roach88/docql/internal/querydef"
)

// Scenario is a query test: seed data, query steps and assertions on the
// outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StrictFolding makes evaluation failures fail at fold time.
	StrictFolding bool `yaml:"strict_folding,omitempty"`

	// Setup loads documents before the steps run.
	Setup []SeedStep `yaml:"setup,omitempty"`

	// Steps are the queries, run in order.
	Steps []QueryStep `yaml:"steps"`

	// Assertions are checked after every step has run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SeedStep bulk-imports documents into a collection.
type SeedStep struct {
	Collection string           `yaml:"collection"`
	Documents  []map[string]any `yaml:"documents"`

	// OnDuplicate is the docstore duplicate policy; empty means error.
	OnDuplicate string `yaml:"on_duplicate,omitempty"`
}

// QueryStep runs one query definition.
type QueryStep struct {
	Name   string              `yaml:"name"`
	Query  querydef.Definition `yaml:"query"`
	Expect *ExpectClause       `yaml:"expect,omitempty"`
}

// ExpectClause specifies the outcome of a step.
type ExpectClause struct {
	// Results must equal the results exactly, in order.
	Results []any `yaml:"results,omitempty"`

	// Count is the expected number of results.
	Count *int `yaml:"count,omitempty"`

	// Error is a substring of the expected error. An empty Error means the
	// step must succeed.
	Error string `yaml:"error,omitempty"`

	// Folded is the expected number of folded subtrees.
	Folded *int `yaml:"folded,omitempty"`
}

// Assertion validates the results of a step or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Step names the step (result_count, results_contain, sql_contains).
	Step string `yaml:"step,omitempty"`

	// Collection and Key address stored documents (collection_count, document).
	Collection string `yaml:"collection,omitempty"`
	Key        string `yaml:"key,omitempty"`

	// Expect holds the attributes to find (results_contain, document).
	// Subset match - only specified attributes are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number (result_count, collection_count).
	Count int `yaml:"count,omitempty"`

	// Text is the SQL fragment to find (sql_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertResultCount     = "result_count"
	AssertResultsContain  = "results_contain"
	AssertSQLContains     = "sql_contains"
	AssertCollectionCount = "collection_count"
	AssertDocument        = "document"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, seed := range s.Setup {
		if seed.Collection == "" {
			return fmt.Errorf("setup[%d]: collection is required", i)
		}
		if _, err := docstore.ParseDuplicatePolicy(seed.OnDuplicate); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	steps := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		if steps[step.Name] {
			return fmt.Errorf("steps[%d]: duplicate step name %q", i, step.Name)
		}
		steps[step.Name] = true
		if step.Query.From == "" {
			return fmt.Errorf("steps[%d]: query.from is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, steps); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertResultCount, AssertResultsContain, AssertSQLContains:
		if !steps[a.Step] {
			return fmt.Errorf("assertions[%d]: unknown step %q for %s", index, a.Step, a.Type)
		}
		if a.Type == AssertResultsContain && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for results_contain", index)
		}
		if a.Type == AssertSQLContains && a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for sql_contains", index)
		}
	case AssertCollectionCount, AssertDocument:
		if a.Collection == "" {
			return fmt.Errorf("assertions[%d]: collection is required for %s", index, a.Type)
		}
		if a.Type == AssertDocument && (a.Key == "" || len(a.Expect) == 0) {
			return fmt.Errorf("assertions[%d]: key and expect are required for document", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
