package client

import (
	"context"

	"github.com/roach88/docql/internal/doc"
	"github.com/roach88/docql/internal/docstore"
	"github.com/roach88/docql/internal/query"
)

// Collection is a handle to a named collection.
type Collection struct {
	db   *DB
	name string
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Query starts a query over the collection.
func (c *Collection) Query() query.Queryable { return query.From(c.name) }

// All returns every document in key order.
func (c *Collection) All(ctx context.Context) ([]doc.Value, error) {
	return c.db.Query(ctx, c.Query().Node())
}

func (c *Collection) Insert(ctx context.Context, body doc.Object) (*doc.Document, error) {
	return c.db.store.Insert(ctx, c.name, body)
}

func (c *Collection) Get(ctx context.Context, key string) (*doc.Document, error) {
	return c.db.store.Get(ctx, c.name, key)
}

func (c *Collection) Replace(ctx context.Context, key string, body doc.Object, opts docstore.WriteOptions) (*doc.Document, error) {
	return c.db.store.Replace(ctx, c.name, key, body, opts)
}

func (c *Collection) Update(ctx context.Context, key string, patch doc.Object, opts docstore.WriteOptions) (*doc.Document, error) {
	return c.db.store.Update(ctx, c.name, key, patch, opts)
}

// Remove deletes a document; ifRev may be empty.
func (c *Collection) Remove(ctx context.Context, key, ifRev string) error {
	return c.db.store.Remove(ctx, c.name, key, ifRev)
}

func (c *Collection) Count(ctx context.Context) (int64, error) {
	return c.db.store.Count(ctx, c.name)
}

func (c *Collection) Truncate(ctx context.Context) (int64, error) {
	return c.db.store.Truncate(ctx, c.name)
}

// Import bulk-loads documents. See docstore.Store.BulkImport.
func (c *Collection) Import(ctx context.Context, docs []doc.Object, opts docstore.ImportOptions) (docstore.ImportResult, error) {
	return c.db.store.BulkImport(ctx, c.name, docs, opts)
}
