package sigmoid

import "github.com/banshee-data/ccnfit/internal/numeric"

// maxBlipLength is the longest positive run that may be discarded as noise
// when it sits between two non-positive runs.
const maxBlipLength = 2

// Denoise zeroes short positive runs surrounded by non-positive runs and
// returns the cleaned ratio as a new slice.
//
// A leading positive run followed by a non-positive run at least as long is
// zeroed. After that, every (non-positive, positive, non-positive) triple
// whose positive run has at most maxBlipLength samples and is no longer
// than either neighbour has its positive run zeroed. Runs are computed once
// on the input, so zeroing one run never merges runs for later triples.
func Denoise(ratio []float64) []float64 {
	out := append([]float64(nil), ratio...)
	runs := numeric.RunLengths(ratio)
	if len(runs) < 3 {
		return out
	}

	zero := func(r numeric.Run) {
		for i := r.Start; i < r.Start+r.Length; i++ {
			out[i] = 0
		}
	}

	start := 0
	if runs[0].Positive() && !runs[1].Positive() && runs[0].Length <= runs[1].Length {
		zero(runs[0])
		start = 1
	}

	for i := start; i+2 < len(runs); i++ {
		before, blip, after := runs[i], runs[i+1], runs[i+2]
		if before.Positive() || !blip.Positive() || after.Positive() {
			continue
		}
		if blip.Length <= maxBlipLength && before.Length >= blip.Length && after.Length >= blip.Length {
			zero(blip)
		}
	}
	return out
}
