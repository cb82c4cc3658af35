// internal/corncob/reshape.go
package corncob

import (
	"errors"
	"math"
	"strings"
)

// ErrNoParameterRows reports a results table with none of the expected
// parameter rows — a fundamentally wrong input file, not a shape variance.
var ErrNoParameterRows = errors.New("corncob: no rows match the parameter prefix")

// WideTable is the pivoted per-(CAG, parameter) result table.
// Columns are parallel slices; NaN marks a missing value.
type WideTable struct {
	CAG       []string
	Parameter []string
	Estimate  []float64
	StdError  []float64
	PValue    []float64
	QValue    []float64
	Wald      []float64

	HasPValue bool
	HasQValue bool
}

// Len returns the number of rows.
func (w *WideTable) Len() int { return len(w.CAG) }

type wideKey struct{ cag, param string }

// Reshape pivots the long table to one row per (CAG, parameter), keeping
// only rows whose parameter carries the prefix (stripped in the output).
// Row order is first-seen order of the filtered input. Missing
// (CAG, parameter, type) combinations stay NaN. Wald is recomputed as
// estimate/std_error, never read from input.
func Reshape(rows []StatRow, prefix string) (*WideTable, error) {
	w := &WideTable{}
	index := map[wideKey]int{}

	at := func(cag, param string) int {
		k := wideKey{cag, param}
		if i, ok := index[k]; ok {
			return i
		}
		i := w.Len()
		index[k] = i
		w.CAG = append(w.CAG, cag)
		w.Parameter = append(w.Parameter, param)
		w.Estimate = append(w.Estimate, math.NaN())
		w.StdError = append(w.StdError, math.NaN())
		w.PValue = append(w.PValue, math.NaN())
		return i
	}

	for _, r := range rows {
		if !strings.HasPrefix(r.Parameter, prefix) {
			continue
		}
		i := at(r.CAG, strings.TrimPrefix(r.Parameter, prefix))
		switch r.Type {
		case "estimate":
			w.Estimate[i] = r.Value
		case "std_error":
			w.StdError[i] = r.Value
		case "p_value":
			w.PValue[i] = r.Value
			w.HasPValue = true
		}
		// Other type values carry no downstream column and are ignored.
	}
	if w.Len() == 0 {
		return nil, ErrNoParameterRows
	}

	w.Wald = make([]float64, w.Len())
	for i := range w.Wald {
		w.Wald[i] = w.Estimate[i] / w.StdError[i]
	}
	return w, nil
}

// DropParameter returns a copy of the table without rows for the named
// parameter. Used to keep (Intercept) rows out of partitioned output.
func (w *WideTable) DropParameter(name string) *WideTable {
	out := &WideTable{HasPValue: w.HasPValue, HasQValue: w.HasQValue}
	for i := range w.CAG {
		if w.Parameter[i] == name {
			continue
		}
		out.CAG = append(out.CAG, w.CAG[i])
		out.Parameter = append(out.Parameter, w.Parameter[i])
		out.Estimate = append(out.Estimate, w.Estimate[i])
		out.StdError = append(out.StdError, w.StdError[i])
		out.PValue = append(out.PValue, w.PValue[i])
		out.Wald = append(out.Wald, w.Wald[i])
		if w.HasQValue {
			out.QValue = append(out.QValue, w.QValue[i])
		}
	}
	return out
}
