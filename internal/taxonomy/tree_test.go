// internal/taxonomy/tree_test.go
package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRows() []TaxonRow {
	return []TaxonRow{
		{ID: "1", Parent: "1", Name: "root", Rank: "no rank"},
		{ID: "2", Parent: "1", Name: "Bacteria", Rank: "superkingdom"},
		{ID: "816", Parent: "2", Name: "Bacteroidaceae", Rank: "family"},
		{ID: "817", Parent: "816", Name: "Bacteroides", Rank: "genus"},
		{ID: "818", Parent: "817", Name: "Bacteroides fragilis", Rank: "species"},
		{ID: "999", Parent: "", Name: "orphan", Rank: "species"},
	}
}

func TestTreeLookups(t *testing.T) {
	tr := NewTree(testRows())
	require.Equal(t, 6, tr.Len())

	p, ok := tr.Parent("818")
	require.True(t, ok)
	assert.Equal(t, ID("817"), p)

	name, ok := tr.Name("817")
	require.True(t, ok)
	assert.Equal(t, "Bacteroides", name)

	rank, ok := tr.Rank("816")
	require.True(t, ok)
	assert.Equal(t, "family", rank)
}

func TestTreeUnknownID(t *testing.T) {
	tr := NewTree(testRows())

	_, ok := tr.Parent("12345")
	assert.False(t, ok, "unknown ids are absent, never an error")
	_, ok = tr.Name("12345")
	assert.False(t, ok)
	_, ok = tr.Rank("12345")
	assert.False(t, ok)
}

func TestTreeEmptyParentNormalized(t *testing.T) {
	tr := NewTree(testRows())
	p, ok := tr.Parent("999")
	require.True(t, ok)
	assert.Equal(t, Root, p)
}

func TestAncestorsChain(t *testing.T) {
	tr := NewTree(testRows())
	got := tr.Ancestors("818")
	assert.Equal(t, []ID{"818", "817", "816", "2", "1"}, got)
}

func TestAncestorsSelfLoopTerminates(t *testing.T) {
	// Node "1" is its own parent; the walk must stop there, not hang.
	tr := NewTree(testRows())
	got := tr.Ancestors("1")
	assert.Equal(t, []ID{"1"}, got)
}

func TestAncestorsCycleTerminates(t *testing.T) {
	tr := NewTree([]TaxonRow{
		{ID: "10", Parent: "11"},
		{ID: "11", Parent: "10"},
	})
	got := tr.Ancestors("10")
	assert.Equal(t, []ID{"10", "11"}, got)
}

func TestAncestorsUnknownStart(t *testing.T) {
	tr := NewTree(testRows())
	got := tr.Ancestors("12345")
	assert.Equal(t, []ID{"12345"}, got, "unknown start still yields itself")
}

func TestAncestorsStopsAtUnindexedRoot(t *testing.T) {
	// Parent "0" has no row of its own, so the chain ends just past it.
	tr := NewTree([]TaxonRow{{ID: "5", Parent: "0", Name: "x", Rank: "species"}})
	got := tr.Ancestors("5")
	assert.Equal(t, []ID{"5", "0"}, got)
}
