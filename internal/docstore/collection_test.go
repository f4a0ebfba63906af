package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/doc"
)

func TestCollections(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	infos, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.NotNil(t, infos)
	assert.Empty(t, infos)

	seed(t, s, "users", doc.Object{"name": "Ada"}, doc.Object{"name": "Bob"})
	seed(t, s, "Orders")

	infos, err = s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []CollectionInfo{
		{Name: "Orders", Count: 0},
		{Name: "users", Count: 2},
	}, infos, "binary order puts upper case first")

	ok, err := s.HasCollection(ctx, "users")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasCollection(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateCollection_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "users"))
	assert.ErrorIs(t, s.CreateCollection(ctx, "users"), ErrCollectionExists)

	for _, name := range []string{"", "1abc", "has space", "semi;colon"} {
		assert.ErrorIs(t, s.CreateCollection(ctx, name), ErrInvalidName, name)
	}
}

func TestDropCollection(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, "users", doc.Object{"_key": "ada"})

	require.NoError(t, s.DropCollection(ctx, "users"))

	_, err := s.Get(ctx, "users", "ada")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, s.DropCollection(ctx, "users"), ErrCollectionNotFound)

	require.NoError(t, s.CreateCollection(ctx, "users"), "name is free again")
}

func TestTruncateAndCount(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s, "users", doc.Object{}, doc.Object{}, doc.Object{})

	n, err := s.Count(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	removed, err := s.Truncate(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	n, err = s.Count(ctx, "users")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Truncate(ctx, "nope")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	_, err = s.Count(ctx, "nope")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}
