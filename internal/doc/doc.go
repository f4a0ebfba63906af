// Package doc provides the document value model for docql.
//
// Documents are JSON objects. In memory they are plain Go values restricted
// to a small set of types so that every package (the partial evaluator, the
// store and the CLI) can share them without conversion:
//
//	nil, bool, int64, float64, string, []any, map[string]any
//
// Normalize converts looser host values (int, float32, yaml or json
// decoder output) into this set. MarshalCanonical produces RFC 8785
// canonical JSON, which Revision hashes into a document revision.
//
// This package imports nothing internal.
package doc
