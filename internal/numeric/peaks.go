package numeric

import "math"

// PeakOptions selects which local maxima FindPeaks reports. A NaN field
// disables that criterion.
type PeakOptions struct {
	MinHeight     float64
	MinProminence float64
	MinWidth      float64
	// RelHeight is the fraction of the prominence below the peak at which
	// the width is measured. Zero means 0.5.
	RelHeight float64
}

// Peak describes one local maximum together with the bases found while
// measuring its prominence.
type Peak struct {
	Index      int
	Height     float64
	LeftBase   int
	RightBase  int
	Prominence float64
	Width      float64
}

// FindPeaks returns the local maxima of x that pass the height, prominence
// and width criteria, in ascending index order. A flat-topped maximum is
// reported at the midpoint of its plateau. Bases are the lowest samples
// reached walking outwards until a higher sample is met.
func FindPeaks(x []float64, opts PeakOptions) []Peak {
	rel := opts.RelHeight
	if rel == 0 {
		rel = 0.5
	}

	var peaks []Peak
	for _, i := range localMaxima(x) {
		if !math.IsNaN(opts.MinHeight) && x[i] < opts.MinHeight {
			continue
		}
		p := Peak{Index: i, Height: x[i]}
		p.LeftBase, p.RightBase, p.Prominence = prominence(x, i)
		peaks = append(peaks, p)
	}

	filtered := peaks[:0]
	for _, p := range peaks {
		if !math.IsNaN(opts.MinProminence) && p.Prominence < opts.MinProminence {
			continue
		}
		filtered = append(filtered, p)
	}
	peaks = filtered

	filtered = peaks[:0]
	for _, p := range peaks {
		p.Width = width(x, p, rel)
		if !math.IsNaN(opts.MinWidth) && p.Width < opts.MinWidth {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

func localMaxima(x []float64) []int {
	var out []int
	last := len(x) - 1
	for i := 1; i < last; i++ {
		if !(x[i-1] < x[i]) {
			continue
		}
		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			out = append(out, (i+ahead-1)/2)
			i = ahead
		}
	}
	return out
}

func prominence(x []float64, peak int) (left, right int, prom float64) {
	top := x[peak]

	left = peak
	leftMin := top
	for i := peak; i >= 0 && x[i] <= top; i-- {
		if x[i] < leftMin {
			leftMin = x[i]
			left = i
		}
	}

	right = peak
	rightMin := top
	for i := peak; i < len(x) && x[i] <= top; i++ {
		if x[i] < rightMin {
			rightMin = x[i]
			right = i
		}
	}

	return left, right, top - math.Max(leftMin, rightMin)
}

// width measures the peak at top - rel*prominence, interpolating linearly
// between samples and never crossing the bases.
func width(x []float64, p Peak, rel float64) float64 {
	h := x[p.Index] - p.Prominence*rel

	i := p.Index
	for p.LeftBase < i && h < x[i] {
		i--
	}
	left := float64(i)
	if x[i] < h {
		left += (h - x[i]) / (x[i+1] - x[i])
	}

	i = p.Index
	for i < p.RightBase && h < x[i] {
		i++
	}
	right := float64(i)
	if x[i] < h {
		right -= (h - x[i]) / (x[i-1] - x[i])
	}

	return right - left
}
