// internal/taxonomy/annotator.go
package taxonomy

type rankKey struct {
	id   ID
	rank string
}

type rankHit struct {
	name string
	ok   bool
}

// Annotator resolves rank-specific names over a Tree with two run-scoped
// caches: ancestor chains by id, and resolved names by (id, rank). The id
// universe is small and closed, so neither cache evicts.
type Annotator struct {
	tree   *Tree
	chains map[ID][]ID
	byRank map[rankKey]rankHit
}

// NewAnnotator wraps a loaded tree.
func NewAnnotator(t *Tree) *Annotator {
	return &Annotator{
		tree:   t,
		chains: make(map[ID][]ID),
		byRank: make(map[rankKey]rankHit),
	}
}

// Ancestors is the memoized form of Tree.Ancestors.
func (a *Annotator) Ancestors(id ID) []ID {
	if c, ok := a.chains[id]; ok {
		return c
	}
	c := a.tree.Ancestors(id)
	a.chains[id] = c
	return c
}

// AncestorAtRank returns the name of the first ancestor (self inclusive)
// whose rank matches, or false if none does. Root and empty ids resolve to
// nothing immediately.
func (a *Annotator) AncestorAtRank(id ID, rank string) (string, bool) {
	if id == "" || id == Root {
		return "", false
	}
	k := rankKey{id, rank}
	if hit, ok := a.byRank[k]; ok {
		return hit.name, hit.ok
	}
	var hit rankHit
	for _, anc := range a.Ancestors(id) {
		if r, ok := a.tree.Rank(anc); ok && r == rank {
			hit.name, _ = a.tree.Name(anc)
			hit.ok = true
			break
		}
	}
	a.byRank[k] = hit
	return hit.name, hit.ok
}
