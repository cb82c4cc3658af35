// internal/annot/table.go
package annot

import (
	"fmt"

	"go.uber.org/zap"

	"cagstats/internal/taxonomy"
)

// Well-known column names in the gene annotation table.
const (
	ColCAG    = "CAG"
	ColTaxID  = "tax_id"
	ColEggNOG = "eggNOG_desc"
)

// Table is a column-oriented view of the gene annotation table: one row per
// gene, string-valued columns, "" for missing. It is read once from the
// store, enriched in place with rank columns, then treated as immutable.
type Table struct {
	cols []string
	data map[string][]string
	n    int
}

// NewTable creates an empty table with a fixed row count.
func NewTable(n int) *Table {
	return &Table{data: map[string][]string{}, n: n}
}

// Len returns the row count.
func (t *Table) Len() int { return t.n }

// Columns returns column names in insertion order.
func (t *Table) Columns() []string { return t.cols }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Column returns the values of a column, or nil if absent.
func (t *Table) Column(name string) []string { return t.data[name] }

// AddColumn appends a column. Length must match, names must be fresh.
func (t *Table) AddColumn(name string, values []string) error {
	if len(values) != t.n {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.n)
	}
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already present", name)
	}
	t.cols = append(t.cols, name)
	t.data[name] = values
	return nil
}

// TaxIDs returns the tax_id column as taxonomy ids, with missing values
// normalized to the root sentinel. Nil when the column is absent.
func (t *Table) TaxIDs() []taxonomy.ID {
	col := t.Column(ColTaxID)
	if col == nil {
		return nil
	}
	ids := make([]taxonomy.ID, len(col))
	for i, v := range col {
		if v == "" {
			ids[i] = taxonomy.Root
		} else {
			ids[i] = taxonomy.ID(v)
		}
	}
	return ids
}

// DistinctValues returns the non-empty values of a column in first-seen row
// order. Order is deterministic within one run.
func (t *Table) DistinctValues(name string) []string {
	col := t.Column(name)
	seen := make(map[string]struct{}, len(col))
	var out []string
	for _, v := range col {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// FeaturesWithValue returns the set of distinct CAGs whose rows carry the
// given value in the named column.
func (t *Table) FeaturesWithValue(name, value string) map[string]struct{} {
	col := t.Column(name)
	cags := t.Column(ColCAG)
	set := map[string]struct{}{}
	for i, v := range col {
		if v == value && cags[i] != "" {
			set[cags[i]] = struct{}{}
		}
	}
	return set
}

// AddRankColumns appends one column per rank holding the resolved ancestor
// name for each gene's tax id ("" where no ancestor has the rank).
func AddRankColumns(t *Table, ann *taxonomy.Annotator, ranks []string, log *zap.Logger) error {
	ids := t.TaxIDs()
	if ids == nil {
		return fmt.Errorf("annotation table has no %s column", ColTaxID)
	}
	for _, rank := range ranks {
		log.Info("adding taxon names for genes", zap.String("rank", rank))
		vals := make([]string, len(ids))
		for i, id := range ids {
			if name, ok := ann.AncestorAtRank(id, rank); ok {
				vals[i] = name
			}
		}
		if err := t.AddColumn(rank, vals); err != nil {
			return err
		}
	}
	return nil
}
