// internal/cli/options.go
package cli

import (
	"flag"
	"fmt"
	"strings"

	"cagstats/internal/version"
)

// Options holds all CLI flags and arguments.
type Options struct {
	// Inputs
	Results string // long-format corncob CSV (possibly gzipped, or '-')
	Store   string // columnar result store (SQLite)

	// Statistics
	FDRMethod string
	Alpha     float64
	Prefix    string

	// Taxonomy
	Ranks []string

	// Output
	Out              string
	ShardRows        int
	MaxGroupFeatures int

	Quiet   bool
	Version bool
}

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: post-process per-CAG corncob regression results

Reshapes the long-format corncob output into a wide, FDR-corrected table,
persists it into the result store, and writes annotation-partitioned
shards for the downstream betta step.

Version: %s

Usage of %s:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool
	var ranks string

	// Inputs
	fs.StringVar(&opt.Results, "results", "", "long-format corncob results CSV (.gz ok, '-' = stdin) [*]")
	fs.StringVar(&opt.Store, "store", "", "result store (SQLite) holding taxonomy and gene annotations [*]")

	// Statistics
	fs.StringVar(&opt.FDRMethod, "fdr-method", "fdr_bh", "multiple-testing correction: fdr_bh | fdr_by | bonferroni | holm [fdr_bh]")
	fs.Float64Var(&opt.Alpha, "alpha", 0.2, "target false-discovery rate for the run summary [0.2]")
	fs.StringVar(&opt.Prefix, "prefix", "mu.", "parameter prefix selecting abundance coefficients [mu.]")

	// Taxonomy
	fs.StringVar(&ranks, "ranks", "species,genus,family", "comma-separated taxonomic ranks to annotate [species,genus,family]")

	// Output
	fs.StringVar(&opt.Out, "out", "corncob.for.betta.{}.csv.gz", "shard naming template; '{}' is replaced by the shard index")
	fs.IntVar(&opt.ShardRows, "shard-rows", 10000, "rows per output shard [10000]")
	fs.IntVar(&opt.MaxGroupFeatures, "max-group-features", 50000, "skip annotation groups covering more than this many CAGs [50000]")

	fs.BoolVar(&opt.Quiet, "quiet", false, "suppress progress logging [false]")
	fs.BoolVar(&opt.Version, "v", false, "print version and exit (shorthand) [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}

	if opt.Results == "" {
		return opt, fmt.Errorf("missing required --results")
	}
	if opt.Store == "" {
		return opt, fmt.Errorf("missing required --store")
	}
	if opt.ShardRows < 1 {
		return opt, fmt.Errorf("--shard-rows must be >= 1 (got %d)", opt.ShardRows)
	}
	if opt.MaxGroupFeatures < 1 {
		return opt, fmt.Errorf("--max-group-features must be >= 1 (got %d)", opt.MaxGroupFeatures)
	}
	if !strings.Contains(opt.Out, "{}") {
		return opt, fmt.Errorf("--out template %q has no '{}' index placeholder", opt.Out)
	}
	for _, r := range strings.Split(ranks, ",") {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		opt.Ranks = append(opt.Ranks, r)
	}
	if len(opt.Ranks) == 0 {
		return opt, fmt.Errorf("--ranks must name at least one rank")
	}
	return opt, nil
}
