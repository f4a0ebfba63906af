package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevisionDeterminism(t *testing.T) {
	body := Object{"name": "ada", "age": 36}

	r1, err := Revision(body)
	require.NoError(t, err)
	r2, err := Revision(Object{"age": int64(36), "name": "ada"})
	require.NoError(t, err)

	assert.Equal(t, r1, r2, "revision depends on content, not construction")
	assert.Len(t, r1, RevisionLength)
}

func TestRevisionIgnoresSystemAttributes(t *testing.T) {
	body := Object{"name": "ada"}
	withMeta := Object{"name": "ada", KeyAttr: "k1", RevAttr: "old"}

	assert.Equal(t, MustRevision(body), MustRevision(withMeta))
	assert.NotEqual(t, MustRevision(body), MustRevision(Object{"name": "bob"}))
}

func TestNewDocument(t *testing.T) {
	d, err := New(Object{KeyAttr: "k1", "name": "ada"})
	require.NoError(t, err)

	assert.Equal(t, "k1", d.Key)
	assert.Equal(t, Object{"name": "ada"}, d.Body)
	assert.Equal(t, MustRevision(d.Body), d.Rev)

	obj := d.Object()
	assert.Equal(t, "k1", obj[KeyAttr])
	assert.Equal(t, d.Rev, obj[RevAttr])
	assert.NotContains(t, d.Body, KeyAttr, "Object does not modify the body")

	_, err = New(Object{KeyAttr: 5})
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := Object{"a": 1, "nested": Object{"x": 1, "y": 2}, "gone": true}
	patch := Object{"b": 2, "nested": Object{"y": 3}, "gone": nil}

	got := Merge(base, patch, false)
	assert.Equal(t, Object{"a": 1, "b": 2, "nested": Object{"x": 1, "y": 3}}, got)
	assert.Equal(t, true, base["gone"], "base is not modified")

	kept := Merge(base, patch, true)
	assert.Contains(t, kept, "gone")
	assert.Nil(t, kept["gone"])
}

func TestLookup(t *testing.T) {
	obj := Object{"a": Object{"b": Object{"c": "deep"}}, "s": "flat"}

	v, ok := Lookup(obj, []string{"a", "b", "c"})
	assert.True(t, ok)
	assert.Equal(t, "deep", v)

	_, ok = Lookup(obj, []string{"s", "x"})
	assert.False(t, ok)

	_, ok = Lookup(obj, []string{"missing"})
	assert.False(t, ok)
}

func TestQueryHash(t *testing.T) {
	h1, err := QueryHash("SELECT ?", []any{int64(1)})
	require.NoError(t, err)
	h2, err := QueryHash("SELECT ?", []any{int64(2)})
	require.NoError(t, err)
	h3, err := QueryHash("SELECT ?", []any{int64(1)})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.Equal(t, h1, h3)
	assert.Len(t, h1, 64)
}
