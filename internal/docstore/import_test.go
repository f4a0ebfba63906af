package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/doc"
)

func TestBulkImport(t *testing.T) {
	existing := doc.Object{"_key": "ada", "name": "Ada", "age": 36}
	batch := []doc.Object{
		{"_key": "ada", "age": 37},
		{"_key": "bob", "name": "Bob"},
		nil,
		{},
		{"_key": "bad/key"},
	}

	tests := []struct {
		name    string
		policy  DuplicatePolicy
		want    ImportResult
		wantAda doc.Object
	}{
		{
			name:    "error",
			policy:  DuplicateError,
			want:    ImportResult{Created: 1, Errors: 2, Empty: 2},
			wantAda: doc.Object{"name": "Ada", "age": int64(36)},
		},
		{
			name:    "ignore",
			policy:  DuplicateIgnore,
			want:    ImportResult{Created: 1, Errors: 1, Empty: 2, Ignored: 1},
			wantAda: doc.Object{"name": "Ada", "age": int64(36)},
		},
		{
			name:    "update",
			policy:  DuplicateUpdate,
			want:    ImportResult{Created: 1, Errors: 1, Empty: 2, Updated: 1},
			wantAda: doc.Object{"name": "Ada", "age": int64(37)},
		},
		{
			name:    "replace",
			policy:  DuplicateReplace,
			want:    ImportResult{Created: 1, Errors: 1, Empty: 2, Updated: 1},
			wantAda: doc.Object{"age": int64(37)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			ctx := context.Background()
			seed(t, s, "users", existing)

			res, err := s.BulkImport(ctx, "users", batch, ImportOptions{OnDuplicate: tt.policy})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)

			ada, err := s.Get(ctx, "users", "ada")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAda, ada.Body)

			_, err = s.Get(ctx, "users", "bob")
			assert.NoError(t, err)
		})
	}
}

func TestBulkImport_Details(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, "users", doc.Object{"_key": "ada"})

	res, err := s.BulkImport(ctx, "users", []doc.Object{
		{"_key": "x"},
		{"_key": "ada"},
	}, ImportOptions{Details: true})
	require.NoError(t, err)
	require.Len(t, res.Details, 1)
	assert.Contains(t, res.Details[0], "at position 1")
	assert.Contains(t, res.Details[0], ErrDuplicateKey.Error())
}

func TestBulkImport_Complete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, "users", doc.Object{"_key": "ada"})

	res, err := s.BulkImport(ctx, "users", []doc.Object{
		{"_key": "bob"},
		{"_key": "ada"},
	}, ImportOptions{Complete: true})
	assert.ErrorIs(t, err, ErrImportIncomplete)
	assert.Equal(t, 1, res.Errors)

	_, err = s.Get(ctx, "users", "bob")
	assert.ErrorIs(t, err, ErrNotFound, "nothing is stored")
}

func TestBulkImport_CreateAndOverwrite(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.BulkImport(ctx, "fresh", []doc.Object{{"n": 1}}, ImportOptions{})
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	res, err := s.BulkImport(ctx, "fresh", []doc.Object{{"n": 1}, {"n": 2}}, ImportOptions{CreateCollection: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	res, err = s.BulkImport(ctx, "fresh", []doc.Object{{"n": 3}}, ImportOptions{Overwrite: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	n, err := s.Count(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DuplicateError, p)

	p, err = ParseDuplicatePolicy("replace")
	require.NoError(t, err)
	assert.Equal(t, DuplicateReplace, p)

	_, err = ParseDuplicatePolicy("merge")
	assert.Error(t, err)

	s := createTestStore(t)
	seed(t, s, "c")
	_, err = s.BulkImport(context.Background(), "c", nil, ImportOptions{OnDuplicate: "merge"})
	assert.Error(t, err)
}
