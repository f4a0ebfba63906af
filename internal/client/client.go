package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/docql/internal/doc"
	"github.com/roach88/docql/internal/docstore"
	"github.com/roach88/docql/internal/expr"
	"github.com/roach88/docql/internal/partial"
	"github.com/roach88/docql/internal/querysql"
)

// Options configure Open.
type Options struct {
	// Path of the SQLite database file. ":memory:" opens a private
	// in-memory database.
	Path string

	// StrictFolding makes a query fail as soon as folding captures an
	// evaluation failure, instead of when the failing part is translated.
	StrictFolding bool

	// KeyGenerator generates keys for documents inserted without one.
	// Defaults to UUIDv7.
	KeyGenerator docstore.KeyGenerator

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DB is an open docql database.
type DB struct {
	store    *docstore.Store
	compiler *querysql.Compiler
	strict   bool
	log      *slog.Logger
}

// Open opens (creating if needed) the database at opts.Path.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("open: database path is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	store, err := docstore.Open(opts.Path,
		docstore.WithKeyGenerator(opts.KeyGenerator),
		docstore.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Path, err)
	}
	if err := store.DB().PingContext(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("open %s: %w", opts.Path, err)
	}

	log.Debug("database opened", "path", opts.Path, "strict_folding", opts.StrictFolding)
	return &DB{
		store:    store,
		compiler: querysql.NewCompiler(),
		strict:   opts.StrictFolding,
		log:      log,
	}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.store.Close()
}

// Store returns the underlying document store.
func (db *DB) Store() *docstore.Store {
	return db.store
}

// Collections lists every collection with its document count.
func (db *DB) Collections(ctx context.Context) ([]docstore.CollectionInfo, error) {
	return db.store.Collections(ctx)
}

// CreateCollection creates a collection and returns a handle to it.
func (db *DB) CreateCollection(ctx context.Context, name string) (*Collection, error) {
	if err := db.store.CreateCollection(ctx, name); err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// DropCollection removes a collection and its documents.
func (db *DB) DropCollection(ctx context.Context, name string) error {
	return db.store.DropCollection(ctx, name)
}

// Collection returns a handle to the named collection. The collection is
// not checked for existence until it is used.
func (db *DB) Collection(name string) *Collection {
	return &Collection{db: db, name: name}
}

// Query runs q and returns every result.
func (db *DB) Query(ctx context.Context, q expr.Node) ([]doc.Value, error) {
	cur, err := db.Cursor(ctx, q)
	if err != nil {
		return nil, err
	}
	out, err := cur.All()
	if err != nil {
		return nil, err
	}
	db.log.Debug("query finished", "rows", len(out))
	return out, nil
}

// Cursor runs q and returns a cursor over its results.
func (db *DB) Cursor(ctx context.Context, q expr.Node) (*docstore.Cursor, error) {
	res, stmt, err := db.prepare(q)
	if err != nil {
		return nil, err
	}
	if len(res.Failures) > 0 {
		db.log.Warn("query folded with failures", "failures", len(res.Failures))
	}
	return db.store.Cursor(ctx, stmt)
}

// prepare folds and translates q.
func (db *DB) prepare(q expr.Node) (*partial.Result, querysql.Statement, error) {
	res, err := partial.Reduce(q, partial.Options{Strict: db.strict})
	if err != nil {
		return res, querysql.Statement{}, fmt.Errorf("fold query: %w", err)
	}
	db.log.Debug("query folded",
		"evaluable", res.Registry.Len(),
		"folded", res.Folded,
		"failures", len(res.Failures),
	)

	stmt, err := db.compiler.Compile(res.Tree)
	if err != nil {
		return res, querysql.Statement{}, fmt.Errorf("translate query: %w", err)
	}
	db.log.Debug("query translated", "sql", stmt.SQL, "params", len(stmt.Params))
	return res, stmt, nil
}
