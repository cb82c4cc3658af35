// internal/fdr/fdr.go
package fdr

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"cagstats/internal/corncob"
)

// Method selects a multiple-testing correction procedure.
// Names follow the statsmodels selectors used upstream.
type Method string

const (
	BH         Method = "fdr_bh"
	BY         Method = "fdr_by"
	Bonferroni Method = "bonferroni"
	Holm       Method = "holm"
)

// ParseMethod validates a CLI method selector.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case BH, BY, Bonferroni, Holm:
		return m, nil
	default:
		return "", fmt.Errorf("unknown fdr method %q (want fdr_bh, fdr_by, bonferroni or holm)", s)
	}
}

// Adjust returns corrected p-values in input order. Input must be NaN-free;
// Correct fills missing values first.
func Adjust(p []float64, m Method) ([]float64, error) {
	n := len(p)
	if n == 0 {
		return nil, nil
	}
	out := make([]float64, n)

	if m == Bonferroni {
		for i, v := range p {
			out[i] = math.Min(1, v*float64(n))
		}
		return out, nil
	}

	sorted := make([]float64, n)
	copy(sorted, p)
	inds := make([]int, n)
	floats.Argsort(sorted, inds)

	adj := make([]float64, n)
	switch m {
	case BH, BY:
		// factor is 1 for BH; the harmonic sum for BY.
		factor := 1.0
		if m == BY {
			factor = 0
			for k := 1; k <= n; k++ {
				factor += 1 / float64(k)
			}
		}
		for i := range sorted {
			adj[i] = sorted[i] * factor * float64(n) / float64(i+1)
		}
		// Step-up: running minimum from the largest p down.
		for i := n - 2; i >= 0; i-- {
			adj[i] = math.Min(adj[i], adj[i+1])
		}
	case Holm:
		// Step-down: running maximum from the smallest p up.
		for i := range sorted {
			adj[i] = sorted[i] * float64(n-i)
		}
		for i := 1; i < n; i++ {
			adj[i] = math.Max(adj[i], adj[i-1])
		}
	default:
		return nil, fmt.Errorf("unknown fdr method %q", m)
	}
	for i := range adj {
		out[inds[i]] = math.Min(1, adj[i])
	}
	return out, nil
}

// Correct attaches a q_value column to the wide table when a p_value column
// exists. Missing p-values are filled with 1.0 (non-significant) for the
// correction only, so they stay in the correction's sample size while the
// persisted p_value column keeps its gaps. Absent p_value column is a valid
// shape and a no-op.
func Correct(w *corncob.WideTable, m Method) error {
	if !w.HasPValue {
		return nil
	}
	filled := make([]float64, len(w.PValue))
	for i, v := range w.PValue {
		if math.IsNaN(v) {
			v = 1
		}
		filled[i] = v
	}
	q, err := Adjust(filled, m)
	if err != nil {
		return err
	}
	w.QValue = q
	w.HasQValue = true
	return nil
}

// Significant counts q-values at or below the target rate.
func Significant(q []float64, alpha float64) int {
	n := 0
	for _, v := range q {
		if v <= alpha {
			n++
		}
	}
	return n
}
