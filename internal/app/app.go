// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cagstats/internal/annot"
	"cagstats/internal/cli"
	"cagstats/internal/corncob"
	"cagstats/internal/fdr"
	"cagstats/internal/partition"
	"cagstats/internal/store"
	"cagstats/internal/taxonomy"
	"cagstats/internal/version"
	"cagstats/internal/writers"
)

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("cagstats")
	fs.SetOutput(io.Discard)

	if len(argv) == 0 {
		fs.SetOutput(outw)
		fs.Usage()
		if err := outw.Flush(); writers.IsBrokenPipe(err) {
			return 0
		} else if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 3
		}
		return 0
	}

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(outw)
			fs.Usage()
			if e := outw.Flush(); writers.IsBrokenPipe(e) {
				return 0
			} else if e != nil {
				_, _ = fmt.Fprintln(stderr, e)
				return 3
			}
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	if opts.Version {
		_, _ = fmt.Fprintf(outw, "cagstats version %s\n", version.Version)
		if e := outw.Flush(); writers.IsBrokenPipe(e) {
			return 0
		} else if e != nil {
			_, _ = fmt.Fprintln(stderr, e)
			return 3
		}
		return 0
	}

	log := newLogger(stderr, opts.Quiet)
	defer func() { _ = log.Sync() }()

	if err := run(parent, opts, log); err != nil {
		log.Error("run failed", zap.Error(err))
		var uerr usageError
		if errors.As(err, &uerr) {
			return 2
		}
		return 3
	}
	return 0
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

// usageError marks failures caused by the invocation or its input files
// rather than the run itself.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// run is the whole pipeline: reshape → correct → shard by annotation →
// persist the corrected table.
func run(ctx context.Context, opts cli.Options, log *zap.Logger) error {
	method, err := fdr.ParseMethod(opts.FDRMethod)
	if err != nil {
		return usageError{err}
	}

	rows, err := corncob.Load(opts.Results)
	if err != nil {
		return usageError{fmt.Errorf("load results: %w", err)}
	}
	log.Info("read corncob results", zap.Int("cags", corncob.DistinctCAGs(rows)))

	wide, err := corncob.Reshape(rows, opts.Prefix)
	if err != nil {
		// No matching parameter rows means the wrong input file entirely.
		return usageError{err}
	}
	if err := fdr.Correct(wide, method); err != nil {
		return err
	}
	if wide.HasQValue {
		log.Info("corrected p-values",
			zap.String("method", string(method)),
			zap.Int("tests", wide.Len()),
			zap.Int("significant", fdr.Significant(wide.QValue, opts.Alpha)),
			zap.Float64("alpha", opts.Alpha),
		)
	} else {
		log.Info("no p-values in results, skipping correction")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	st, err := store.Open(opts.Store)
	if err != nil {
		return usageError{err}
	}
	defer func() { _ = st.Close() }()

	feats, err := st.GeneAnnotations()
	if err != nil {
		return err
	}

	// Columns to partition by: rank labels when the catalog has taxonomic
	// assignments, then the eggNOG description when present.
	var cols []string
	if feats.HasColumn(annot.ColTaxID) {
		taxa, err := st.Taxonomy()
		if err != nil {
			return err
		}
		tree := taxonomy.NewTree(taxa)
		log.Info("loaded taxonomy", zap.Int("taxa", tree.Len()))
		ann := taxonomy.NewAnnotator(tree)
		if err := annot.AddRankColumns(feats, ann, opts.Ranks, log); err != nil {
			return err
		}
		log.Info("finished adding taxonomic labels")
		cols = append(cols, opts.Ranks...)
	}
	if feats.HasColumn(annot.ColEggNOG) {
		cols = append(cols, annot.ColEggNOG)
	}

	sw, err := writers.NewShardWriter(opts.Out, partition.Header(wide), opts.ShardRows)
	if err != nil {
		return usageError{err}
	}
	nrows, err := partition.Run(wide, feats, partition.Config{
		Columns:          cols,
		MaxGroupFeatures: opts.MaxGroupFeatures,
	}, sw, log)
	if err != nil {
		return err
	}
	if err := sw.Close(); err != nil {
		return err
	}
	log.Info("wrote annotation shards", zap.Int("rows", nrows), zap.Int("shards", sw.Shards()))

	if err := st.WriteCorncob(wide); err != nil {
		return err
	}
	log.Info("persisted corrected table", zap.String("path", store.CorncobPath), zap.Int("rows", wide.Len()))
	return nil
}

func newLogger(w io.Writer, quiet bool) *zap.Logger {
	level := zapcore.InfoLevel
	if quiet {
		level = zapcore.WarnLevel
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}
