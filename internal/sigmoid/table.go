package sigmoid

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/ccnfit/internal/numeric"
)

// Table is the measurement table the engine segments: parallel columns, one
// row per diameter bin, ascending diameter.
type Table struct {
	Diameter    []float64
	LogDiameter []float64
	CCNC        []float64
	SMPS        []float64
	Ratio       []float64
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Diameter) }

// withRatio returns a copy of t sharing every column except Ratio.
func (t Table) withRatio(r []float64) Table {
	t.Ratio = r
	return t
}

// BuildTable assembles the measurement table from charge-corrected counts.
// Rows outside the diameter range are dropped first; the ratio is then
// floored to 0 wherever either count is below the zero threshold; finally
// rows whose ratio falls outside the valid range, or is not finite, are
// dropped. Rows are emitted in ascending diameter order; bins that arrive
// unordered keep their relative order among equal diameters.
func BuildTable(diameters, ccnc, smps []float64, cfg Config) (Table, error) {
	if len(diameters) != len(ccnc) || len(diameters) != len(smps) {
		return Table{}, &FitError{
			Kind:   KindInsufficientData,
			Peak:   -1,
			Detail: fmt.Sprintf("column lengths differ: %d diameters, %d ccnc, %d smps", len(diameters), len(ccnc), len(smps)),
		}
	}

	order := make([]int, len(diameters))
	for i := range order {
		order[i] = i
	}
	if !sort.Float64sAreSorted(diameters) {
		sort.SliceStable(order, func(a, b int) bool { return diameters[order[a]] < diameters[order[b]] })
	}

	var t Table
	for _, i := range order {
		d := diameters[i]
		if !(d >= cfg.MinDiameter && d <= cfg.MaxDiameter) {
			continue
		}
		r := ccnc[i] / smps[i]
		if ccnc[i] < cfg.ZeroCountThresh || smps[i] < cfg.ZeroCountThresh {
			r = 0
		}
		if !numeric.Finite(r) || r < cfg.MinValidRatio || r > cfg.MaxValidRatio {
			continue
		}
		t.Diameter = append(t.Diameter, d)
		t.LogDiameter = append(t.LogDiameter, math.Log(d))
		t.CCNC = append(t.CCNC, ccnc[i])
		t.SMPS = append(t.SMPS, smps[i])
		t.Ratio = append(t.Ratio, r)
	}
	return t, nil
}
