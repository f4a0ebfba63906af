package docstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/docql/internal/doc"
)

// WriteOptions are the preconditions and merge behavior of a write.
type WriteOptions struct {
	// IfRev, when set, must equal the stored revision or the write fails
	// with ErrConflict.
	IfRev string

	// KeepNull keeps null attributes of an Update patch instead of
	// removing them from the document.
	KeepNull bool
}

// Insert stores a new document and returns it with its key and revision.
// The key is taken from the _key attribute or generated.
func (s *Store) Insert(ctx context.Context, coll string, body doc.Object) (*doc.Document, error) {
	var out *doc.Document
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireCollection(ctx, tx, coll); err != nil {
			return err
		}
		d, err := s.insert(ctx, tx, coll, body)
		out = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) insert(ctx context.Context, q querier, coll string, body doc.Object) (*doc.Document, error) {
	d, err := s.prepare(coll, body)
	if err != nil {
		return nil, err
	}
	text, err := marshalBody(d.Body)
	if err != nil {
		return nil, docErr("insert", coll, d.Key, err)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO documents (collection, key, rev, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, key) DO NOTHING
	`, coll, d.Key, d.Rev, text)
	if err != nil {
		return nil, docErr("insert", coll, d.Key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, docErr("insert", coll, d.Key, err)
	}
	if n == 0 {
		return nil, docErr("insert", coll, d.Key, ErrDuplicateKey)
	}
	return d, nil
}

// prepare normalizes a raw body into a Document with a valid key.
func (s *Store) prepare(coll string, body doc.Object) (*doc.Document, error) {
	obj, err := doc.NormalizeObject(body)
	if err != nil {
		return nil, docErr("insert", coll, "", err)
	}
	d, err := doc.New(obj)
	if err != nil {
		return nil, docErr("insert", coll, "", err)
	}
	if d.Key == "" {
		if d.Key, err = s.keys.NewKey(); err != nil {
			return nil, docErr("insert", coll, "", err)
		}
	}
	if err := ValidateKey(d.Key); err != nil {
		return nil, docErr("insert", coll, "", err)
	}
	return d, nil
}

// Replace overwrites the body of an existing document. System attributes
// in body are ignored.
func (s *Store) Replace(ctx context.Context, coll, key string, body doc.Object, opts WriteOptions) (*doc.Document, error) {
	obj, err := doc.NormalizeObject(body)
	if err != nil {
		return nil, docErr("replace", coll, key, err)
	}
	return s.modify(ctx, "replace", coll, key, opts, func(*doc.Document) doc.Object {
		return doc.StripSystem(obj)
	})
}

// Update merges patch into an existing document. Nested objects are merged
// recursively; null attributes are removed unless opts.KeepNull is set.
func (s *Store) Update(ctx context.Context, coll, key string, patch doc.Object, opts WriteOptions) (*doc.Document, error) {
	obj, err := doc.NormalizeObject(patch)
	if err != nil {
		return nil, docErr("update", coll, key, err)
	}
	return s.modify(ctx, "update", coll, key, opts, func(cur *doc.Document) doc.Object {
		return doc.Merge(cur.Body, doc.StripSystem(obj), opts.KeepNull)
	})
}

func (s *Store) modify(ctx context.Context, op, coll, key string, opts WriteOptions, next func(*doc.Document) doc.Object) (*doc.Document, error) {
	var out *doc.Document
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := get(ctx, tx, coll, key)
		if err != nil {
			return docErr(op, coll, key, err)
		}
		if opts.IfRev != "" && opts.IfRev != cur.Rev {
			return docErr(op, coll, key, fmt.Errorf("%w: have %s, expected %s", ErrConflict, cur.Rev, opts.IfRev))
		}
		out, err = overwrite(ctx, tx, coll, key, next(cur))
		if err != nil {
			return docErr(op, coll, key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func overwrite(ctx context.Context, q querier, coll, key string, body doc.Object) (*doc.Document, error) {
	rev, err := doc.Revision(body)
	if err != nil {
		return nil, err
	}
	text, err := marshalBody(body)
	if err != nil {
		return nil, err
	}
	_, err = q.ExecContext(ctx, `
		UPDATE documents SET rev = ?, body = ?
		WHERE collection = ? AND key = ?
	`, rev, text, coll, key)
	if err != nil {
		return nil, err
	}
	return &doc.Document{Key: key, Rev: rev, Body: body}, nil
}

// Remove deletes a document. An empty ifRev removes whatever revision is
// stored.
func (s *Store) Remove(ctx context.Context, coll, key, ifRev string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := get(ctx, tx, coll, key)
		if err != nil {
			return docErr("remove", coll, key, err)
		}
		if ifRev != "" && ifRev != cur.Rev {
			return docErr("remove", coll, key, fmt.Errorf("%w: have %s, expected %s", ErrConflict, cur.Rev, ifRev))
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM documents WHERE collection = ? AND key = ?
		`, coll, key)
		if err != nil {
			return docErr("remove", coll, key, err)
		}
		return nil
	})
}
