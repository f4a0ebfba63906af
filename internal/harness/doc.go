// Package harness runs docql query scenarios.
//
// A scenario seeds collections, runs query definitions against a fresh
// in-memory database and checks what came back: the results, the folded
// tree, the generated SQL and the final state of the collections.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: adults_by_name
//	description: "Folded arithmetic in a filter"
//	strict_folding: false
//	setup:
//	  - collection: users
//	    documents:
//	      - {_key: u1, name: Ada, age: 36}
//	steps:
//	  - name: adults
//	    query:
//	      from: users
//	      where: {gt: [{field: age}, {add: [18, 3]}]}
//	    expect:
//	      results: [{name: Ada}]
//	      folded: 1
//	assertions:
//	  - type: result_count
//	    step: adults
//	    count: 1
//	  - type: document
//	    collection: users
//	    key: u1
//	    expect: {name: Ada}
//
// Setup documents are loaded with docstore.BulkImport, creating the
// collection when needed. The query of a step is a querydef.Definition.
//
// # Assertion Types
//
//   - result_count: the step returned exactly count results
//   - results_contain: some result of the step contains every attribute of expect
//   - sql_contains: the SQL generated for the step contains text
//   - collection_count: the collection holds exactly count documents
//   - document: the stored document contains every attribute of expect
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory database and deterministic document
// keys ("key-1", "key-2", ...) so that the trace of a scenario can be
// compared against a golden file.
package harness
