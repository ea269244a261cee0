package shift

import (
	"math"

	"github.com/banshee-data/ccnfit/internal/numeric"
)

// WeightedArea integrates |smps - ccnc| over two equal-length windows with
// the trapezoidal rule. An interval in which the curves cross is split at
// the crossing into two triangles. Each interval is weighted by the sample
// at its left end: highSMPS where SMPS is above CCNC, highCCNC where CCNC is
// above SMPS.
//
// A window of fewer than two samples encloses no area. The status is Shape
// for mismatched windows and NonFinite when an input or the result is NaN
// or infinite.
func WeightedArea(smps, ccnc []float64, highSMPS, highCCNC float64) (float64, numeric.Status) {
	if len(smps) != len(ccnc) {
		return 0, numeric.Shape
	}
	if len(smps) < 2 {
		return 0, numeric.OK
	}

	d := make([]float64, len(smps))
	for i := range smps {
		if !numeric.Finite(smps[i]) || !numeric.Finite(ccnc[i]) {
			return 0, numeric.NonFinite
		}
		d[i] = smps[i] - ccnc[i]
	}

	var total float64
	for j := 0; j < len(d)-1; j++ {
		w := 1.0
		if smps[j] > ccnc[j] {
			w *= highSMPS
		}
		if ccnc[j] > smps[j] {
			w *= highCCNC
		}

		l, r := d[j], d[j+1]
		if l*r > 0 {
			total += 0.5 * math.Abs(l+r) * w
			continue
		}
		if l == 0 && r == 0 {
			continue
		}

		// Fraction of the interval left of the crossing. l and r have
		// opposite signs or one is zero, so l-r is never zero here.
		frac := l / (l - r)
		total += 0.5*math.Abs(l)*frac*w + 0.5*math.Abs(r)*(1-frac)*w
	}

	if !numeric.Finite(total) {
		return 0, numeric.NonFinite
	}
	return total, numeric.OK
}
