package sigmoid

import (
	"sort"

	"github.com/banshee-data/ccnfit/internal/numeric"
)

// Derivative smooths the ratio, differentiates it with respect to log
// diameter and smooths the result again. The output has one sample fewer
// than the table.
func Derivative(t Table, cfg Config) []float64 {
	if t.Len() < 2 {
		return nil
	}
	r := numeric.SmoothOrKeep(t.Ratio, cfg.RatioSmoothWindow, cfg.RatioSmoothOrder)
	dr := numeric.Diff(r)
	dx := numeric.Diff(t.LogDiameter)
	delta := make([]float64, len(dr))
	for i := range dr {
		delta[i] = numeric.SafeDiv(dr[i], dx[i])
	}
	return numeric.SmoothOrKeep(delta, cfg.DerivSmoothWindow, cfg.DerivSmoothOrder)
}

// DetectPeaks returns the growth peaks of the derivative: non-negative
// maxima with at least the configured prominence and width.
func DetectPeaks(deriv []float64, cfg Config) []numeric.Peak {
	return numeric.FindPeaks(deriv, numeric.PeakOptions{
		MinHeight:     0,
		MinProminence: cfg.MinPeakProminence,
		MinWidth:      cfg.MinPeakWidth,
	})
}

// Region is one growth region: the derivative peak index and the bounds of
// the rows attributed to it.
type Region struct {
	Peak  int
	Left  int
	Right int
}

func (r Region) leftWidth() int  { return r.Peak - r.Left }
func (r Region) rightWidth() int { return r.Right - r.Peak }

// Regions turns detected peaks into fit regions over a table of n rows.
//
// A single peak gets a symmetric region of half the base-to-base width,
// clamped to the table. With two or more peaks, neighbouring regions are
// split at the integer midpoint of their peaks, the first region keeps its
// left base and the last region extends to the furthest right base of any
// peak. maxPeaks > 0 caps the supported count; zero peaks is never
// supported. The input is not modified.
func Regions(peaks []numeric.Peak, n, maxPeaks int) ([]Region, error) {
	count := len(peaks)
	if count == 0 || (maxPeaks > 0 && count > maxPeaks) {
		return nil, &FitError{Kind: KindUnsupportedPeaks, Peak: -1, Count: count}
	}

	if count == 1 {
		p := peaks[0]
		w := floorDiv((p.Index-p.LeftBase)+(p.RightBase-p.Index), 2)
		return []Region{{
			Peak:  p.Index,
			Left:  max(p.Index-w, 0),
			Right: min(p.Index+w, n-1),
		}}, nil
	}

	regions := make([]Region, count)
	furthest := 0
	for i, p := range peaks {
		regions[i] = Region{Peak: p.Index, Left: p.LeftBase, Right: p.RightBase}
		furthest = max(furthest, p.RightBase)
	}
	for i := 0; i+1 < count; i++ {
		split := floorDiv(peaks[i].Index+peaks[i+1].Index, 2)
		regions[i].Right = split - 1
		regions[i+1].Left = split + 1
	}
	regions[count-1].Right = furthest
	return regions, nil
}

// Selections returns the sorted, de-duplicated row indices each region is
// fitted against.
//
// A lone region is fitted over [Left, Right). With several regions each
// selection joins three pieces: the pre-rise base of the first region, the
// region's own rise (half its left width before the peak to half its right
// width after) and the trailing asymptote of the last region. Base and
// asymptote are shared, so only the rises are region specific.
func Selections(regions []Region) [][]int {
	if len(regions) == 0 {
		return nil
	}
	if len(regions) == 1 {
		r := regions[0]
		return [][]int{indexRange(r.Left, r.Right)}
	}

	first, last := regions[0], regions[len(regions)-1]
	base := indexRange(first.Left, first.Left+first.leftWidth())
	asymptote := indexRange(last.Peak+floorDiv(last.rightWidth(), 2), last.Right)

	out := make([][]int, len(regions))
	for i, r := range regions {
		out[i] = uniqueSorted(base, indexRange(r.Rise()), asymptote)
	}
	return out
}

// Rise returns the region-specific part of a multi-region selection.
func (r Region) Rise() (from, to int) {
	return r.Peak - floorDiv(r.leftWidth(), 2), r.Peak + floorDiv(r.rightWidth(), 2)
}

func indexRange(from, to int) []int {
	if to <= from {
		return nil
	}
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func uniqueSorted(parts ...[]int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, p := range parts {
		for _, v := range p {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

// floorDiv is integer division rounding towards negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
