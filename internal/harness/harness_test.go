package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_TestdataScenarios(t *testing.T) {
	for _, name := range []string{"adults_by_name", "join_orders", "deferred_failure"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.Len(t, result.Trace, len(scenario.Steps))
		})
	}
}

func TestRun_TraceEvents(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "adults_by_name.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	ev, ok := result.Event("adults")
	require.True(t, ok)
	assert.Contains(t, ev.Original, "(18 + 3)")
	assert.Contains(t, ev.Folded, "(x.age > 21)")
	assert.Equal(t, []any{"users", int64(21), int64(10)}, ev.Params)
	assert.Contains(t, ev.SQL, "LIMIT ?")
	assert.Empty(t, ev.Error)

	_, ok = result.Event("missing")
	assert.False(t, ok)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "join_orders.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_GeneratedKeys(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: generated_keys
description: "Documents without _key get deterministic keys"
setup:
  - collection: notes
    documents:
      - {text: first}
      - {text: second}
steps:
  - name: keys
    query:
      from: notes
      select: {key: {field: _key}}
    expect:
      results: [{key: key-1}, {key: key-2}]
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailedExpectations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong
description: "Every expectation is wrong"
setup:
  - collection: users
    documents:
      - {_key: u1, name: Ada, age: 36}
steps:
  - name: all
    query:
      from: users
      select: {name: {field: name}}
    expect:
      results: [{name: Bob}]
      count: 2
      folded: 3
  - name: broken
    query:
      from: users
      skip: {mod: [1, 0]}
  - name: should_fail
    query:
      from: users
    expect:
      error: "division by zero"
assertions:
  - type: collection_count
    collection: users
    count: 5
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], `step "all": expected results [{"name":"Bob"}], got [{"name":"Ada"}]`)
	assert.Contains(t, result.Errors[1], "expected 2 results, got 1")
	assert.Contains(t, result.Errors[2], "expected 3 folded subtrees, got 0")
	assert.Contains(t, result.Errors[3], `step "broken": unexpected error`)
	assert.Contains(t, result.Errors[4], `step "should_fail": expected error containing "division by zero"`)
	assert.Contains(t, result.Errors[5], "5 documents in users")
}

func TestRun_StrictFolding(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: strict
description: "Strict folding fails at fold time"
strict_folding: true
steps:
  - name: skip_by_zero
    query:
      from: users
      skip: {mod: [1, 0]}
    expect:
      error: "fold query"
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Trace[0].Error, "division by zero")
}

func TestRun_SetupFailure(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: dup
description: "Duplicate keys fail the setup"
setup:
  - collection: users
    documents:
      - {_key: u1}
      - {_key: u1}
steps:
  - name: all
    query: {from: users}
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute setup")
}

func TestRun_InvalidQuery(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_query
description: "Unknown operators abort the run"
steps:
  - name: all
    query:
      from: users
      where: {gte: [{field: age}, 1]}
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step "all"`)
}
