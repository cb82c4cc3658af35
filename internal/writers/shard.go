// internal/writers/shard.go
package writers

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ShardWriter emits rows into a numbered sequence of gzip CSV files. A shard
// closes once it holds maxRows rows; the final partial shard is flushed on
// Close. Shards open lazily, so a writer that never receives a row produces
// no files.
type ShardWriter struct {
	template string
	header   []string
	maxRows  int

	idx    int
	rows   int
	shards int

	fh *os.File
	gz *gzip.Writer
	cw *csv.Writer
}

// NewShardWriter validates the naming template ('{}' is replaced by the
// shard index) and prepares a writer.
func NewShardWriter(template string, header []string, maxRows int) (*ShardWriter, error) {
	if !strings.Contains(template, "{}") {
		return nil, fmt.Errorf("shard template %q has no '{}' index placeholder", template)
	}
	if maxRows < 1 {
		return nil, fmt.Errorf("shard size must be >= 1 (got %d)", maxRows)
	}
	return &ShardWriter{template: template, header: header, maxRows: maxRows}, nil
}

// ShardPath returns the file name for a given shard index.
func ShardPath(template string, idx int) string {
	return strings.Replace(template, "{}", strconv.Itoa(idx), 1)
}

// Write appends one record to the current shard, rotating when full.
func (w *ShardWriter) Write(rec []string) error {
	if w.cw == nil {
		if err := w.open(); err != nil {
			return err
		}
	}
	if err := w.cw.Write(rec); err != nil {
		return fmt.Errorf("shard %d: %w", w.idx, err)
	}
	w.rows++
	if w.rows >= w.maxRows {
		return w.closeShard()
	}
	return nil
}

// Shards returns the number of completed shard files.
func (w *ShardWriter) Shards() int { return w.shards }

// Close flushes the final partial shard, if any.
func (w *ShardWriter) Close() error {
	if w.cw == nil {
		return nil
	}
	return w.closeShard()
}

func (w *ShardWriter) open() error {
	path := ShardPath(w.template, w.idx)
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("shard %d: %w", w.idx, err)
	}
	w.fh = fh
	w.gz = gzip.NewWriter(fh)
	w.cw = csv.NewWriter(w.gz)
	w.rows = 0
	if err := w.cw.Write(w.header); err != nil {
		return fmt.Errorf("shard %d: %w", w.idx, err)
	}
	return nil
}

func (w *ShardWriter) closeShard() error {
	w.cw.Flush()
	err := w.cw.Error()
	if e := w.gz.Close(); err == nil {
		err = e
	}
	if e := w.fh.Close(); err == nil {
		err = e
	}
	w.cw, w.gz, w.fh = nil, nil, nil
	if err != nil {
		return fmt.Errorf("shard %d: %w", w.idx, err)
	}
	w.shards++
	w.idx++
	return nil
}
