// internal/taxonomy/tree.go
package taxonomy

// ID is a taxonomic identifier. IDs are string-typed at the load boundary so
// a missing id is representable without numeric sentinels leaking downstream.
type ID string

// Root marks the root of the hierarchy and unknown/unassigned parents.
const Root ID = "0"

// TaxonRow is one parent/name/rank triple from the taxonomy table.
type TaxonRow struct {
	ID     ID
	Parent ID
	Name   string
	Rank   string
}

type node struct {
	parent ID
	name   string
	rank   string
}

// Tree is a parent-pointer taxonomic hierarchy owned for one run.
type Tree struct {
	nodes map[ID]node
}

// NewTree indexes the taxonomy rows by id. Empty parents normalize to Root.
func NewTree(rows []TaxonRow) *Tree {
	t := &Tree{nodes: make(map[ID]node, len(rows))}
	for _, r := range rows {
		p := r.Parent
		if p == "" {
			p = Root
		}
		t.nodes[r.ID] = node{parent: p, name: r.Name, rank: r.Rank}
	}
	return t
}

// Len returns the number of indexed taxa.
func (t *Tree) Len() int { return len(t.nodes) }

// Parent returns the parent id, or false for an unknown id.
func (t *Tree) Parent(id ID) (ID, bool) {
	n, ok := t.nodes[id]
	return n.parent, ok
}

// Name returns the display name, or false for an unknown id.
func (t *Tree) Name(id ID) (string, bool) {
	n, ok := t.nodes[id]
	return n.name, ok
}

// Rank returns the rank label, or false for an unknown id.
func (t *Tree) Rank(id ID) (string, bool) {
	n, ok := t.nodes[id]
	return n.rank, ok
}

// Ancestors returns the chain from id (inclusive) up to the root. The walk
// stops when the parent is unknown or the node is its own parent; a visited
// set defuses longer cycles in malformed tables, so the walk always
// terminates in O(depth).
func (t *Tree) Ancestors(id ID) []ID {
	chain := []ID{id}
	seen := map[ID]struct{}{id: {}}
	cur := id
	for {
		p, ok := t.Parent(cur)
		if !ok || p == cur {
			return chain
		}
		if _, dup := seen[p]; dup {
			return chain
		}
		seen[p] = struct{}{}
		chain = append(chain, p)
		cur = p
	}
}
