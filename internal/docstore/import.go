package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/docql/internal/doc"
)

// DuplicatePolicy decides what BulkImport does with a document whose key
// already exists.
type DuplicatePolicy string

const (
	DuplicateError   DuplicatePolicy = "error"
	DuplicateUpdate  DuplicatePolicy = "update"
	DuplicateReplace DuplicatePolicy = "replace"
	DuplicateIgnore  DuplicatePolicy = "ignore"
)

// ParseDuplicatePolicy parses a policy name. The empty string means
// DuplicateError.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case "":
		return DuplicateError, nil
	case DuplicateError, DuplicateUpdate, DuplicateReplace, DuplicateIgnore:
		return p, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q (want error, update, replace or ignore)", s)
}

// ImportOptions control BulkImport.
type ImportOptions struct {
	// CreateCollection creates the target collection if it is missing.
	CreateCollection bool

	// Overwrite removes all existing documents before importing.
	Overwrite bool

	// OnDuplicate is applied to documents whose key already exists.
	OnDuplicate DuplicatePolicy

	// Complete aborts the whole import if any document fails.
	Complete bool

	// Details collects one message per failed document.
	Details bool
}

// ImportResult summarizes a BulkImport.
type ImportResult struct {
	Created int      `json:"created"`
	Errors  int      `json:"errors"`
	Empty   int      `json:"empty"`
	Updated int      `json:"updated"`
	Ignored int      `json:"ignored"`
	Details []string `json:"details,omitempty"`
}

// BulkImport stores many documents in one transaction. Documents that fail
// are counted in Errors and skipped, unless opts.Complete is set, in which
// case nothing is stored and the error is ErrImportIncomplete. Nil or
// empty documents are counted in Empty.
func (s *Store) BulkImport(ctx context.Context, coll string, docs []doc.Object, opts ImportOptions) (ImportResult, error) {
	policy, err := ParseDuplicatePolicy(string(opts.OnDuplicate))
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		res = ImportResult{}
		if err := s.importTarget(ctx, tx, coll, opts); err != nil {
			return err
		}

		for i, body := range docs {
			if len(body) == 0 {
				res.Empty++
				continue
			}
			outcome, err := s.importOne(ctx, tx, coll, body, policy)
			if err != nil {
				res.Errors++
				if opts.Details {
					res.Details = append(res.Details, fmt.Sprintf("at position %d: %v", i, err))
				}
				continue
			}
			switch outcome {
			case importCreated:
				res.Created++
			case importUpdated:
				res.Updated++
			case importIgnored:
				res.Ignored++
			}
		}

		if opts.Complete && res.Errors > 0 {
			return fmt.Errorf("import %s: %d of %d documents failed: %w", coll, res.Errors, len(docs), ErrImportIncomplete)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	s.log.Info("import finished",
		"collection", coll,
		"created", res.Created,
		"updated", res.Updated,
		"ignored", res.Ignored,
		"empty", res.Empty,
		"errors", res.Errors,
	)
	return res, nil
}

func (s *Store) importTarget(ctx context.Context, tx *sql.Tx, coll string, opts ImportOptions) error {
	err := requireCollection(ctx, tx, coll)
	if errors.Is(err, ErrCollectionNotFound) && opts.CreateCollection {
		if err := ValidateCollectionName(coll); err != nil {
			return err
		}
		return createCollection(ctx, tx, coll)
	}
	if err != nil {
		return err
	}
	if opts.Overwrite {
		if _, err := truncate(ctx, tx, coll); err != nil {
			return err
		}
	}
	return nil
}

type importOutcome int

const (
	importCreated importOutcome = iota
	importUpdated
	importIgnored
)

func (s *Store) importOne(ctx context.Context, tx *sql.Tx, coll string, body doc.Object, policy DuplicatePolicy) (importOutcome, error) {
	_, err := s.insert(ctx, tx, coll, body)
	if err == nil {
		return importCreated, nil
	}
	if !errors.Is(err, ErrDuplicateKey) {
		return 0, err
	}

	var de *DocumentError
	errors.As(err, &de)
	key := de.Key

	switch policy {
	case DuplicateIgnore:
		return importIgnored, nil
	case DuplicateReplace, DuplicateUpdate:
		cur, err := get(ctx, tx, coll, key)
		if err != nil {
			return 0, docErr("import", coll, key, err)
		}
		obj, err := doc.NormalizeObject(body)
		if err != nil {
			return 0, docErr("import", coll, key, err)
		}
		next := doc.StripSystem(obj)
		if policy == DuplicateUpdate {
			next = doc.Merge(cur.Body, next, false)
		}
		if _, err := overwrite(ctx, tx, coll, key, next); err != nil {
			return 0, docErr("import", coll, key, err)
		}
		return importUpdated, nil
	}
	return 0, err
}
