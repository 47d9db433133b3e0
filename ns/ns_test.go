package ns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShorten(t *testing.T) {
	tbl := Default()

	name, local, ok := tbl.Shorten("https://schema.org/Person")
	assert.True(t, ok)
	assert.Equal(t, "schema", name)
	assert.Equal(t, "Person", local)

	_, _, ok = tbl.Shorten("http://example.org/thing")
	assert.False(t, ok)
}

func TestShortenPrefersLongestNamespace(t *testing.T) {
	tbl := Default().With("ex", "http://example.org/").With("exv", "http://example.org/vocab/")

	name, local, ok := tbl.Shorten("http://example.org/vocab/name")
	assert.True(t, ok)
	assert.Equal(t, "exv", name)
	assert.Equal(t, "name", local)
}

func TestExpand(t *testing.T) {
	tbl := Default()

	iri, ok := tbl.Expand("xsd:integer")
	assert.True(t, ok)
	assert.Equal(t, XSDInteger, iri)

	_, ok = tbl.Expand("http://example.org/")
	assert.False(t, ok)

	_, ok = tbl.Expand("nope:thing")
	assert.False(t, ok)
}

func TestWithDoesNotMutate(t *testing.T) {
	base := Default()
	ext := base.With("ex", "http://example.org/")

	_, ok := base.Lookup("ex")
	assert.False(t, ok)
	assert.Equal(t, base.Len()+1, ext.Len())
}

func TestEntries(t *testing.T) {
	var empty *Table
	assert.Nil(t, empty.Entries())

	tbl := empty.With("zz", "http://example.org/z/").With("aa", "http://example.org/a/").With("mm", "http://example.org/m/")
	assert.Equal(t, []Prefix{
		{Name: "aa", IRI: "http://example.org/a/"},
		{Name: "mm", IRI: "http://example.org/m/"},
		{Name: "zz", IRI: "http://example.org/z/"},
	}, tbl.Entries())
}
