package shift

import "github.com/banshee-data/ccnfit/internal/numeric"

// ApplyShift aligns a CCNC series to its SMPS scan. A positive shift drops
// that many leading samples, a negative shift prepends zeros. The result is
// padded with zeros or truncated to exactly duration samples.
func ApplyShift(ccnc []float64, shift, duration int) []float64 {
	var moved []float64
	switch {
	case shift >= len(ccnc):
		moved = nil
	case shift >= 0:
		moved = ccnc[shift:]
	default:
		moved = numeric.FillZerosToBegin(ccnc, -shift)
	}
	return numeric.FitLength(moved, duration)
}
