package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutliersIQR(t *testing.T) {
	t.Parallel()

	kept, ok := OutliersIQR([]float64{1, 2, 3, 4, 100}, []int{10, 11, 12, 13, 14}, DefaultIQRMultiplier)
	assert.True(t, ok)
	assert.Equal(t, []int{10, 11, 12, 13}, kept)

	// Order of the input does not matter.
	kept, ok = OutliersIQR([]float64{100, 4, 1, 3, 2}, []int{0, 1, 2, 3, 4}, DefaultIQRMultiplier)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2, 3, 4}, kept)

	// A zero multiplier keeps only the interquartile range.
	kept, ok = OutliersIQR([]float64{1, 2, 3, 4, 100}, []int{0, 1, 2, 3, 4}, 0)
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, kept)
}

func TestOutliersIQRUndecidable(t *testing.T) {
	t.Parallel()

	_, ok := OutliersIQR([]float64{1, 2, 3}, []int{0, 1, 2}, DefaultIQRMultiplier)
	assert.False(t, ok, "fewer than four values")

	_, ok = OutliersIQR([]float64{1, 2, 3, 4}, []int{0, 1}, DefaultIQRMultiplier)
	assert.False(t, ok, "length mismatch")
}

func TestMedianInt(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		values []int
		want   int
		ok     bool
	}{
		{"empty", nil, 0, false},
		{"odd", []int{5, -2, 3}, 3, true},
		{"even_takes_lower", []int{4, 1, 3, 2}, 2, true},
		{"negative", []int{-4, -6}, -6, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MedianInt(tc.values)
			if ok != tc.ok || got != tc.want {
				t.Errorf("MedianInt(%v) = (%d, %v), want (%d, %v)", tc.values, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestRunLengths(t *testing.T) {
	t.Parallel()

	got := RunLengths([]float64{0, 1, 2, 0, -1, 3})
	want := []Run{
		{Value: 0, Start: 0, Length: 1},
		{Value: 1, Start: 1, Length: 2},
		{Value: 0, Start: 3, Length: 2},
		{Value: 3, Start: 5, Length: 1},
	}
	assert.Equal(t, want, got)
	assert.Nil(t, RunLengths(nil))
}
