package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/client"
	"github.com/roach88/docql/internal/doc"
)

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DBPath returns the path of a fresh database file in a test temp dir.
func DBPath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// OpenDB opens a database at path with deterministic keys ("key-1", ...)
// and silent logging. It is closed when the test ends.
func OpenDB(t testing.TB, path string, strict bool) *client.DB {
	t.Helper()
	db, err := client.Open(context.Background(), client.Options{
		Path:          path,
		StrictFolding: strict,
		KeyGenerator:  NewDeterministicKeys("key"),
		Logger:        DiscardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// Seed creates coll if needed and inserts docs into it.
func Seed(t testing.TB, db *client.DB, coll string, docs ...doc.Object) {
	t.Helper()
	ctx := context.Background()
	ok, err := db.Store().HasCollection(ctx, coll)
	require.NoError(t, err)
	if !ok {
		_, err := db.CreateCollection(ctx, coll)
		require.NoError(t, err)
	}
	for _, d := range docs {
		_, err := db.Collection(coll).Insert(ctx, d)
		require.NoError(t, err)
	}
}

// SeedFile is Seed on the database file at path, closing it afterwards so
// another process or command can open it.
func SeedFile(t testing.TB, path, coll string, docs ...doc.Object) {
	t.Helper()
	db, err := client.Open(context.Background(), client.Options{
		Path:         path,
		KeyGenerator: NewDeterministicKeys("key"),
		Logger:       DiscardLogger(),
	})
	require.NoError(t, err)
	defer db.Close()
	Seed(t, db, coll, docs...)
}
