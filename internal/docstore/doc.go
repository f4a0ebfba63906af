// Package docstore provides SQLite-backed storage for docql collections.
//
// Every document lives in a single documents table keyed by
// (collection, key). Bodies are stored as RFC 8785 canonical JSON so the
// JSON1 functions used by translated queries see exactly what
// doc.Revision hashed.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Documents cannot outlive their collection
//
// Writes that read before they write (Replace, Update, Remove, BulkImport)
// run inside a transaction, so an expected revision is checked against the
// row that is actually modified.
package docstore
