package shift

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/ccnfit/internal/numeric"
)

func TestWeightedAreaTriangles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		smps, ccnc []float64
		want       float64
	}{
		{
			// Bump of base 4 and height 2 with no crossing.
			name: "no_crossing",
			smps: []float64{5, 6, 7, 6, 5},
			ccnc: []float64{5, 5, 5, 5, 5},
			want: 4,
		},
		{
			// Same bump shifted inside a longer window.
			name: "no_crossing_padded",
			smps: []float64{1, 1, 2, 3, 2, 1, 1},
			ccnc: []float64{1, 1, 1, 1, 1, 1, 1},
			want: 4,
		},
		{
			// Lines cross mid-interval: two triangles of base 0.5, height 2.
			name: "one_crossing",
			smps: []float64{4, 2},
			ccnc: []float64{2, 4},
			want: 1,
		},
		{
			// Crossing at a quarter of the interval.
			name: "off_centre_crossing",
			smps: []float64{1, 0},
			ccnc: []float64{0, 3},
			want: 0.5*1*0.25 + 0.5*3*0.75,
		},
		{
			name: "identical",
			smps: []float64{3, 1, 4, 1, 5},
			ccnc: []float64{3, 1, 4, 1, 5},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, status := WeightedArea(tt.smps, tt.ccnc, 1, 1)
			assert.Equal(t, numeric.OK, status)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestWeightedAreaWeights(t *testing.T) {
	t.Parallel()

	// CCNC above SMPS on every left sample: every interval takes highCCNC.
	got, status := WeightedArea([]float64{0, 0, 0}, []float64{1, 1, 1}, 1, 2.2)
	assert.Equal(t, numeric.OK, status)
	assert.InDelta(t, 2*2.2, got, 1e-12)

	// SMPS above CCNC: highSMPS applies.
	got, status = WeightedArea([]float64{1, 1, 1}, []float64{0, 0, 0}, 3, 2.2)
	assert.Equal(t, numeric.OK, status)
	assert.InDelta(t, 2*3.0, got, 1e-12)

	// The weight follows the left sample even when the interval crosses.
	got, status = WeightedArea([]float64{0, 2}, []float64{2, 0}, 1, 2.2)
	assert.Equal(t, numeric.OK, status)
	assert.InDelta(t, 2.2*1.0, got, 1e-12)
}

func TestWeightedAreaTranslationInvariant(t *testing.T) {
	t.Parallel()

	smps := []float64{0, 3, 9, 4, 1}
	ccnc := []float64{1, 2, 6, 7, 0}
	base, _ := WeightedArea(smps, ccnc, 1, 2.2)

	shiftedS := make([]float64, len(smps))
	shiftedC := make([]float64, len(ccnc))
	for i := range smps {
		shiftedS[i] = smps[i] + 40
		shiftedC[i] = ccnc[i] + 40
	}
	moved, _ := WeightedArea(shiftedS, shiftedC, 1, 2.2)
	assert.InDelta(t, base, moved, 1e-9)
}

func TestWeightedAreaStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		smps, ccnc []float64
		want       numeric.Status
	}{
		{"length_mismatch", []float64{1, 2}, []float64{1}, numeric.Shape},
		{"single_sample", []float64{5}, []float64{3}, numeric.OK},
		{"empty", nil, nil, numeric.OK},
		{"nan", []float64{1, math.NaN()}, []float64{1, 1}, numeric.NonFinite},
		{"inf", []float64{1, 1}, []float64{math.Inf(1), 1}, numeric.NonFinite},
		{"overflowing_sum", []float64{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}, []float64{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}, numeric.NonFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area, status := WeightedArea(tt.smps, tt.ccnc, 1, 2.2)
			assert.Equal(t, tt.want, status)
			assert.Zero(t, area)
		})
	}
}
