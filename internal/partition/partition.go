// internal/partition/partition.go
package partition

import (
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"cagstats/internal/annot"
	"cagstats/internal/corncob"
)

// Intercept is the parameter that never reaches partitioned output: it
// carries no per-condition comparison.
const Intercept = "(Intercept)"

// RowWriter receives one shard record at a time.
type RowWriter interface {
	Write(rec []string) error
}

// Config controls the partitioning pass.
type Config struct {
	// Columns are the annotation columns to partition by, in order.
	Columns []string
	// MaxGroupFeatures skips any (column, value) group covering more
	// distinct CAGs than this. Cost control only; the skip is logged.
	MaxGroupFeatures int
}

// Header returns the shard header for a given wide table. The q_value
// column appears only when the table carries one.
func Header(w *corncob.WideTable) []string {
	h := []string{"CAG", "parameter", "estimate", "std_error", "p_value"}
	if w.HasQValue {
		h = append(h, "q_value")
	}
	return append(h, "wald", "label", "annotation")
}

// Run groups the corrected results by annotation value and streams every
// matching row, tagged with label and annotation, to out. Intercept rows are
// dropped first. Groups are produced column order outer, value order as
// first encountered in the annotation table. When nothing is written — no
// usable columns, no surviving groups, or no matching rows — a single dummy
// row keeps the downstream data flow intact. Returns the rows written.
func Run(w *corncob.WideTable, feats *annot.Table, cfg Config, out RowWriter, log *zap.Logger) (int, error) {
	res := w.DropParameter(Intercept)

	written := 0
	for _, col := range cfg.Columns {
		if !feats.HasColumn(col) {
			return written, fmt.Errorf("partition: annotation table has no %q column", col)
		}
		for _, label := range feats.DistinctValues(col) {
			cags := feats.FeaturesWithValue(col, label)
			if cfg.MaxGroupFeatures > 0 && len(cags) > cfg.MaxGroupFeatures {
				log.Warn("skipping annotation, too many CAGs",
					zap.String("annotation", col),
					zap.String("label", label),
					zap.Int("cags", len(cags)),
				)
				continue
			}
			for i := 0; i < res.Len(); i++ {
				if _, ok := cags[res.CAG[i]]; !ok {
					continue
				}
				if err := out.Write(record(res, i, label, col)); err != nil {
					return written, err
				}
				written++
			}
		}
	}

	if written == 0 {
		if err := out.Write(dummyRecord(res)); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// record formats one result row plus its label/annotation tags, aligned
// with Header.
func record(w *corncob.WideTable, i int, label, annotation string) []string {
	rec := []string{w.CAG[i], w.Parameter[i], cell(w.Estimate[i]), cell(w.StdError[i]), cell(w.PValue[i])}
	if w.HasQValue {
		rec = append(rec, cell(w.QValue[i]))
	}
	return append(rec, cell(w.Wald[i]), label, annotation)
}

// dummyRecord is the placeholder row emitted when no group produced output:
// estimate=1, p_value=1, parameter="dummy", everything else empty.
func dummyRecord(w *corncob.WideTable) []string {
	rec := []string{"", "dummy", "1", "", "1"}
	if w.HasQValue {
		rec = append(rec, "")
	}
	return append(rec, "", "", "")
}

func cell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
