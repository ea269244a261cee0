package numeric

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultIQRMultiplier widens the interquartile fence. Tuned on instrument
// data, not derived.
const DefaultIQRMultiplier = 1.25

// OutliersIQR returns the entries of index whose paired value lies inside
// [Q1 - m*IQR, Q3 + m*IQR]. values and index are parallel. The second return
// is false when there are too few values to decide (fewer than four) or when
// every entry would be rejected.
func OutliersIQR(values []float64, index []int, multiplier float64) ([]int, bool) {
	if len(values) != len(index) || len(values) < 4 {
		return nil, false
	}
	for _, v := range values {
		if !Finite(v) {
			return nil, false
		}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1
	lo, hi := q1-multiplier*iqr, q3+multiplier*iqr

	kept := make([]int, 0, len(index))
	for i, v := range values {
		if v >= lo && v <= hi {
			kept = append(kept, index[i])
		}
	}
	if len(kept) == 0 {
		return nil, false
	}
	return kept, true
}

// MedianInt returns the lower median of values, false when values is empty.
func MedianInt(values []int) (int, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	for i, v := range values {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)
	return int(stat.Quantile(0.5, stat.Empirical, sorted, nil)), true
}
