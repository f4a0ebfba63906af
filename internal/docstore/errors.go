package docstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when a write names an expected revision that
	// does not match the stored one.
	ErrConflict = errors.New("revision conflict")

	// ErrDuplicateKey is returned when inserting a key that already exists.
	ErrDuplicateKey = errors.New("unique constraint violated")

	// ErrInvalidKey is returned for keys outside the allowed alphabet.
	ErrInvalidKey = errors.New("illegal document key")

	// ErrCollectionNotFound is returned for operations on an unknown collection.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned when creating a collection twice.
	ErrCollectionExists = errors.New("duplicate collection name")

	// ErrInvalidName is returned for collection names outside the allowed alphabet.
	ErrInvalidName = errors.New("illegal collection name")

	// ErrImportIncomplete is returned by BulkImport with Complete set when
	// at least one document failed.
	ErrImportIncomplete = errors.New("import incomplete")
)

// DocumentError records a failed document operation and the document it
// was applied to.
type DocumentError struct {
	Op         string
	Collection string
	Key        string
	Err        error
}

func (e *DocumentError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.Key, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

func docErr(op, coll, key string, err error) error {
	return &DocumentError{Op: op, Collection: coll, Key: key, Err: err}
}

// IsNotFound reports whether err means the document or collection is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrCollectionNotFound)
}

// IsConflict reports whether err is a revision or key conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrDuplicateKey)
}
