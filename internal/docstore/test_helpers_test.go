package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/doc"
)

// createTestStore creates a new store in a temp directory with sequential keys.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithKeyGenerator(&Sequence{Prefix: "k"}))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seed creates coll and inserts docs into it.
func seed(t *testing.T, s *Store, coll string, docs ...doc.Object) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, coll))
	for _, d := range docs {
		_, err := s.Insert(ctx, coll, d)
		require.NoError(t, err)
	}
}
