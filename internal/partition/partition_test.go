// internal/partition/partition_test.go
package partition

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"cagstats/internal/annot"
	"cagstats/internal/corncob"
	"cagstats/internal/writers"
)

type recWriter struct{ recs [][]string }

func (w *recWriter) Write(rec []string) error {
	w.recs = append(w.recs, rec)
	return nil
}

// wideFor builds a one-parameter wide table with one row per CAG.
func wideFor(cags []string) *corncob.WideTable {
	w := &corncob.WideTable{HasPValue: true, HasQValue: true}
	for i, c := range cags {
		w.CAG = append(w.CAG, c)
		w.Parameter = append(w.Parameter, "site")
		w.Estimate = append(w.Estimate, float64(i))
		w.StdError = append(w.StdError, 1)
		w.PValue = append(w.PValue, 0.5)
		w.QValue = append(w.QValue, 0.5)
		w.Wald = append(w.Wald, float64(i))
	}
	return w
}

// annotFor builds a single-column annotation table assigning every CAG the
// same label.
func annotFor(col, label string, cags []string) *annot.Table {
	tbl := annot.NewTable(len(cags))
	if err := tbl.AddColumn(annot.ColCAG, cags); err != nil {
		panic(err)
	}
	labels := make([]string, len(cags))
	for i := range labels {
		labels[i] = label
	}
	if err := tbl.AddColumn(col, labels); err != nil {
		panic(err)
	}
	return tbl
}

func cagNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("cag_%d", i)
	}
	return out
}

func TestHeader(t *testing.T) {
	w := &corncob.WideTable{HasQValue: true}
	assert.Equal(t,
		[]string{"CAG", "parameter", "estimate", "std_error", "p_value", "q_value", "wald", "label", "annotation"},
		Header(w))

	w.HasQValue = false
	assert.Equal(t,
		[]string{"CAG", "parameter", "estimate", "std_error", "p_value", "wald", "label", "annotation"},
		Header(w))
}

func TestRunTagsRows(t *testing.T) {
	cags := []string{"cag_0", "cag_1", "cag_2"}
	w := wideFor(cags)

	tbl := annot.NewTable(3)
	require.NoError(t, tbl.AddColumn(annot.ColCAG, cags))
	require.NoError(t, tbl.AddColumn("genus", []string{"Bacteroides", "Bacteroides", ""}))
	require.NoError(t, tbl.AddColumn(annot.ColEggNOG, []string{"", "transporter", "transporter"}))

	out := &recWriter{}
	n, err := Run(w, tbl, Config{Columns: []string{"genus", annot.ColEggNOG}, MaxGroupFeatures: 50000}, out, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, out.recs, 4)

	// Column order outer, value order as encountered.
	assert.Equal(t, []string{"Bacteroides", "genus"}, out.recs[0][7:])
	assert.Equal(t, "cag_0", out.recs[0][0])
	assert.Equal(t, []string{"Bacteroides", "genus"}, out.recs[1][7:])
	assert.Equal(t, []string{"transporter", "eggNOG_desc"}, out.recs[2][7:])
	assert.Equal(t, "cag_1", out.recs[2][0])
	assert.Equal(t, []string{"transporter", "eggNOG_desc"}, out.recs[3][7:])
	assert.Equal(t, "cag_2", out.recs[3][0])
}

func TestRunExcludesIntercept(t *testing.T) {
	w := wideFor([]string{"cag_0"})
	w.CAG = append(w.CAG, "cag_0")
	w.Parameter = append(w.Parameter, Intercept)
	w.Estimate = append(w.Estimate, 1)
	w.StdError = append(w.StdError, 1)
	w.PValue = append(w.PValue, 0.1)
	w.QValue = append(w.QValue, 0.1)
	w.Wald = append(w.Wald, 1)

	tbl := annotFor("genus", "Bacteroides", []string{"cag_0"})
	out := &recWriter{}
	_, err := Run(w, tbl, Config{Columns: []string{"genus"}, MaxGroupFeatures: 50000}, out, zap.NewNop())
	require.NoError(t, err)

	for _, rec := range out.recs {
		assert.NotEqual(t, Intercept, rec[1])
	}
}

func TestRunGroupSizeBoundary(t *testing.T) {
	cfg := Config{Columns: []string{"genus"}, MaxGroupFeatures: 50000}

	t.Run("at the cap is retained", func(t *testing.T) {
		cags := cagNames(50000)
		out := &recWriter{}
		n, err := Run(wideFor(cags), annotFor("genus", "G", cags), cfg, out, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 50000, n)
	})

	t.Run("over the cap is skipped and logged", func(t *testing.T) {
		cags := cagNames(50001)
		core, logs := observer.New(zap.WarnLevel)
		out := &recWriter{}
		n, err := Run(wideFor(cags), annotFor("genus", "G", cags), cfg, out, zap.New(core))
		require.NoError(t, err)

		// The skipped group never reaches any shard; only the dummy row does.
		assert.Equal(t, 1, n)
		require.Len(t, out.recs, 1)
		assert.Equal(t, "dummy", out.recs[0][1])

		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].Message, "skipping annotation")
	})
}

func TestRunDummyWithoutColumns(t *testing.T) {
	w := wideFor([]string{"cag_0"})
	tbl := annotFor("genus", "G", []string{"cag_0"})

	out := &recWriter{}
	n, err := Run(w, tbl, Config{Columns: nil, MaxGroupFeatures: 50000}, out, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// estimate=1, p_value=1, parameter="dummy"; everything else empty.
	rec := out.recs[0]
	require.Len(t, rec, len(Header(w)))
	assert.Equal(t, "dummy", rec[1])
	assert.Equal(t, "1", rec[2])
	assert.Equal(t, "1", rec[4])
	assert.Equal(t, "", rec[0])
	assert.Equal(t, "", rec[3])
}

func TestRunMissingColumn(t *testing.T) {
	w := wideFor([]string{"cag_0"})
	tbl := annotFor("genus", "G", []string{"cag_0"})
	_, err := Run(w, tbl, Config{Columns: []string{"family"}, MaxGroupFeatures: 50000}, &recWriter{}, zap.NewNop())
	assert.Error(t, err)
}

func TestRunNaNCellsEmpty(t *testing.T) {
	w := wideFor([]string{"cag_0"})
	w.PValue[0] = math.NaN()
	tbl := annotFor("genus", "G", []string{"cag_0"})

	out := &recWriter{}
	_, err := Run(w, tbl, Config{Columns: []string{"genus"}, MaxGroupFeatures: 50000}, out, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "", out.recs[0][4])
}

// TestRunShardSplit reproduces the betta-prep scenario: two annotation
// columns each with one 6,000-row group and 10,000-row shards give
// shard 0 the first group plus 4,000 rows of the second, and shard 1 the
// remaining 2,000.
func TestRunShardSplit(t *testing.T) {
	cags := cagNames(12000)
	w := wideFor(cags)

	tbl := annot.NewTable(12000)
	require.NoError(t, tbl.AddColumn(annot.ColCAG, cags))
	genus := make([]string, 12000)
	egg := make([]string, 12000)
	for i := 0; i < 6000; i++ {
		genus[i] = "Bacteroides"
		egg[6000+i] = "transporter"
	}
	require.NoError(t, tbl.AddColumn("genus", genus))
	require.NoError(t, tbl.AddColumn(annot.ColEggNOG, egg))

	dir := t.TempDir()
	tpl := filepath.Join(dir, "corncob.for.betta.{}.csv.gz")
	sw, err := writers.NewShardWriter(tpl, Header(w), 10000)
	require.NoError(t, err)

	n, err := Run(w, tbl, Config{Columns: []string{"genus", annot.ColEggNOG}, MaxGroupFeatures: 50000}, sw, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, sw.Close())

	assert.Equal(t, 12000, n)
	require.Equal(t, 2, sw.Shards())

	shard0 := readShard(t, writers.ShardPath(tpl, 0))
	shard1 := readShard(t, writers.ShardPath(tpl, 1))
	assert.Equal(t, 10001, len(shard0), "header + 10000 rows")
	assert.Equal(t, 2001, len(shard1), "header + remaining 2000 rows")

	// Shard 0: the whole genus group then 4000 eggNOG rows.
	assert.Equal(t, []string{"Bacteroides", "genus"}, shard0[1][7:])
	assert.Equal(t, []string{"Bacteroides", "genus"}, shard0[6000][7:])
	assert.Equal(t, []string{"transporter", "eggNOG_desc"}, shard0[6001][7:])
	assert.Equal(t, []string{"transporter", "eggNOG_desc"}, shard1[1][7:])
}

func readShard(t *testing.T, path string) [][]string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = fh.Close() }()
	gz, err := gzip.NewReader(fh)
	require.NoError(t, err)
	recs, err := csv.NewReader(gz).ReadAll()
	require.NoError(t, err)
	return recs
}
