package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docql/internal/doc"
)

func TestOpenDBAndSeed(t *testing.T) {
	db := OpenDB(t, DBPath(t), true)
	Seed(t, db, "users", doc.Object{"name": "Ada"}, doc.Object{"name": "Bob"})
	Seed(t, db, "users", doc.Object{"name": "Cy"})

	ctx := context.Background()
	n, err := db.Collection("users").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	d, err := db.Collection("users").Get(ctx, "key-3")
	require.NoError(t, err)
	assert.Equal(t, "Cy", d.Body["name"])
}

func TestSeedFile(t *testing.T) {
	path := DBPath(t)
	SeedFile(t, path, "orders", doc.Object{"_key": "o1", "total": 5})

	db := OpenDB(t, path, false)
	d, err := db.Collection("orders").Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), d.Body["total"])
}
