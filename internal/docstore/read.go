package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/docql/internal/doc"
	"github.com/roach88/docql/internal/querysql"
)

// Get returns a single document.
func (s *Store) Get(ctx context.Context, coll, key string) (*doc.Document, error) {
	d, err := get(ctx, s.db, coll, key)
	if err != nil {
		return nil, docErr("get", coll, key, err)
	}
	return d, nil
}

func get(ctx context.Context, q querier, coll, key string) (*doc.Document, error) {
	var rev, body string
	err := q.QueryRowContext(ctx, `
		SELECT rev, body FROM documents
		WHERE collection = ? AND key = ?
	`, coll, key).Scan(&rev, &body)
	if errors.Is(err, sql.ErrNoRows) {
		if err := requireCollection(ctx, q, coll); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	obj, err := doc.DecodeObject([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return &doc.Document{Key: key, Rev: rev, Body: obj}, nil
}

// marshalBody converts a body to canonical JSON TEXT for storage.
func marshalBody(body doc.Object) (string, error) {
	data, err := doc.MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// Cursor iterates the rows of a translated query. Each row is the single
// JSON value column a querysql statement produces.
//
//	cur, err := s.Cursor(ctx, stmt)
//	...
//	defer cur.Close()
//	for cur.Next() {
//		v := cur.Value()
//	}
//	err = cur.Err()
type Cursor struct {
	rows  *sql.Rows
	value doc.Value
	err   error
}

// Cursor executes stmt and returns a cursor over its results.
// Callers are responsible for closing the returned cursor.
func (s *Store) Cursor(ctx context.Context, stmt querysql.Statement) (*Cursor, error) {
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return &Cursor{rows: rows}, nil
}

// Next advances to the next result, reporting false at the end or on error.
func (c *Cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	var text sql.NullString
	if err := c.rows.Scan(&text); err != nil {
		c.err = fmt.Errorf("scan result: %w", err)
		return false
	}
	if !text.Valid {
		c.value = nil
		return true
	}
	v, err := doc.Decode([]byte(text.String))
	if err != nil {
		c.err = fmt.Errorf("decode result: %w", err)
		return false
	}
	c.value = v
	return true
}

// Value returns the current result.
func (c *Cursor) Value() doc.Value {
	return c.value
}

// Err returns the first error met while iterating.
func (c *Cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return fmt.Errorf("iterate results: %w", err)
	}
	return nil
}

// Close releases the cursor's rows.
func (c *Cursor) Close() error {
	return c.rows.Close()
}

// All drains the cursor and closes it.
//
// Returns an empty slice (not nil) if there are no results.
func (c *Cursor) All() ([]doc.Value, error) {
	defer c.Close()
	out := []doc.Value{}
	for c.Next() {
		out = append(out, c.value)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Query executes stmt and returns every result.
func (s *Store) Query(ctx context.Context, stmt querysql.Statement) ([]doc.Value, error) {
	cur, err := s.Cursor(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return cur.All()
}
