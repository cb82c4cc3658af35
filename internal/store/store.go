// internal/store/store.go
package store

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"cagstats/internal/annot"
	"cagstats/internal/corncob"
	"cagstats/internal/taxonomy"
)

// Logical dataset paths inside the result store.
const (
	TaxonomyPath  = "/ref/taxonomy"
	GeneAnnotPath = "/annot/gene/all"
	CorncobPath   = "/stats/cag/corncob"
)

// TableName maps a logical dataset path to its SQLite table name.
func TableName(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "_")
}

// Store is the SQLite-backed columnar result store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens an existing result store.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("result store %s: %w", path, err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// Taxonomy reads the taxonomy table (tax_id, parent, name, rank). Missing
// parents normalize to the root sentinel at this boundary, so downstream
// code never sees a numeric-or-missing ambiguity.
func (s *Store) Taxonomy() ([]taxonomy.TaxonRow, error) {
	q := fmt.Sprintf("SELECT tax_id, parent, name, rank FROM %s", TableName(TaxonomyPath))
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TaxonomyPath, err)
	}
	defer func() { _ = rows.Close() }()

	var out []taxonomy.TaxonRow
	for rows.Next() {
		var taxID, parent, name, rank any
		if err := rows.Scan(&taxID, &parent, &name, &rank); err != nil {
			return nil, fmt.Errorf("read %s: %w", TaxonomyPath, err)
		}
		r := taxonomy.TaxonRow{
			ID:     taxonomy.ID(cellString(taxID)),
			Parent: taxonomy.ID(cellString(parent)),
			Name:   cellString(name),
			Rank:   cellString(rank),
		}
		if r.Parent == "" {
			r.Parent = taxonomy.Root
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GeneAnnotations reads the gene annotation table with whatever columns it
// carries. NULLs become empty strings; integral floats (a common artifact of
// missing-value coercion upstream) render without a fraction, so tax ids
// come back as plain integer strings.
func (s *Store) GeneAnnotations() (*annot.Table, error) {
	q := fmt.Sprintf("SELECT * FROM %s", TableName(GeneAnnotPath))
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", GeneAnnotPath, err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", GeneAnnotPath, err)
	}
	cols := make([][]string, len(names))
	cells := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range cells {
		ptrs[i] = &cells[i]
	}
	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("read %s: %w", GeneAnnotPath, err)
		}
		for i, c := range cells {
			cols[i] = append(cols[i], cellString(c))
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", GeneAnnotPath, err)
	}

	tbl := annot.NewTable(n)
	for i, name := range names {
		if err := tbl.AddColumn(name, cols[i]); err != nil {
			return nil, fmt.Errorf("read %s: %w", GeneAnnotPath, err)
		}
	}
	return tbl, nil
}

// WriteCorncob persists the corrected wide table under /stats/cag/corncob,
// replacing any previous run's table. NaN persists as NULL.
func (s *Store) WriteCorncob(w *corncob.WideTable) error {
	name := TableName(CorncobPath)
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("write %s: %w", CorncobPath, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", name)); err != nil {
		return fmt.Errorf("write %s: %w", CorncobPath, err)
	}
	schema := fmt.Sprintf(`CREATE TABLE %s (
		cag TEXT NOT NULL,
		parameter TEXT NOT NULL,
		estimate REAL,
		std_error REAL,
		p_value REAL,
		q_value REAL,
		wald REAL
	)`, name)
	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("write %s: %w", CorncobPath, err)
	}

	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s (cag, parameter, estimate, std_error, p_value, q_value, wald) VALUES (?, ?, ?, ?, ?, ?, ?)", name))
	if err != nil {
		return fmt.Errorf("write %s: %w", CorncobPath, err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < w.Len(); i++ {
		var q any
		if w.HasQValue {
			q = nullFloat(w.QValue[i])
		}
		_, err := stmt.Exec(
			w.CAG[i], w.Parameter[i],
			nullFloat(w.Estimate[i]), nullFloat(w.StdError[i]),
			nullFloat(w.PValue[i]), q, nullFloat(w.Wald[i]),
		)
		if err != nil {
			return fmt.Errorf("write %s row %d: %w", CorncobPath, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write %s: %w", CorncobPath, err)
	}
	return nil
}

// nullFloat maps NaN (and infinities, which SQLite cannot hold) to NULL.
func nullFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// cellString renders a scanned SQLite value as a string, "" for NULL.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}
