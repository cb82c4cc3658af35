// internal/corncob/loader.go
package corncob

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// StatRow is one row of long-format corncob output.
// (CAG, Parameter, Type) is unique within one results file.
type StatRow struct {
	CAG       string
	Parameter string
	Type      string
	Value     float64 // NaN when the field was empty
}

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// openReader keeps gzip + "-" (stdin) behavior.
// Detects gzip by magic number (1F 8B) or by .gz suffix.
func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var sig [2]byte
	n, _ := fh.Read(sig[:])
	_, _ = fh.Seek(0, io.SeekStart)
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
	}
	return fh, nil
}

// sniffDelimiter picks tab for .tsv inputs, comma otherwise.
func sniffDelimiter(path string) rune {
	name := strings.ToLower(strings.TrimSuffix(path, ".gz"))
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}

// Load reads the long-format results table. Required header columns are
// CAG, parameter, type and value (any order, extras ignored). An empty
// value field loads as NaN.
func Load(path string) ([]StatRow, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return Read(rc, sniffDelimiter(path))
}

// Read parses long-format rows from r using the given delimiter.
func Read(r io.Reader, delim rune) ([]StatRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty results table")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, want := range []string{"cag", "parameter", "type", "value"} {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("results table missing %q column", want)
		}
	}

	var rows []StatRow
	ln := 1
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", ln+1, err)
		}
		ln++
		row := StatRow{
			CAG:       strings.TrimSpace(rec[idx["cag"]]),
			Parameter: strings.TrimSpace(rec[idx["parameter"]]),
			Type:      strings.TrimSpace(rec[idx["type"]]),
		}
		raw := strings.TrimSpace(rec[idx["value"]])
		if raw == "" {
			row.Value = math.NaN()
		} else {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad value %q: %v", ln, raw, err)
			}
			row.Value = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DistinctCAGs counts distinct feature identifiers in the long table.
func DistinctCAGs(rows []StatRow) int {
	seen := make(map[string]struct{}, len(rows)/4+1)
	for _, r := range rows {
		seen[r.CAG] = struct{}{}
	}
	return len(seen)
}
