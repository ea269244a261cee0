package numeric

import "gonum.org/v1/gonum/floats"

// SafeDiv returns x/y, or 0 when y is zero.
func SafeDiv(x, y float64) float64 {
	if y == 0 {
		return 0
	}
	return x / y
}

// FillZerosToBegin returns x with n zeros prepended.
func FillZerosToBegin(x []float64, n int) []float64 {
	if n < 0 {
		n = 0
	}
	out := make([]float64, n, n+len(x))
	return append(out, x...)
}

// FillZerosToEnd returns x padded with zeros up to length. Longer inputs are
// copied unchanged.
func FillZerosToEnd(x []float64, length int) []float64 {
	n := len(x)
	if length > n {
		n = length
	}
	out := make([]float64, n)
	copy(out, x)
	return out
}

// FitLength pads x with trailing zeros or truncates it so the result has
// exactly length samples.
func FitLength(x []float64, length int) []float64 {
	if length < 0 {
		length = 0
	}
	out := make([]float64, length)
	copy(out, x)
	return out
}

// ResolveZeros replaces exact zeros with eps so later divisions stay finite.
func ResolveZeros(x []float64, eps float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if v == 0 {
			v = eps
		}
		out[i] = v
	}
	return out
}

// ResolveSmallValues replaces values below min with eps.
func ResolveSmallValues(x []float64, min, eps float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if v < min {
			v = eps
		}
		out[i] = v
	}
	return out
}

// Argmax returns the index of the first maximum of x, or -1 when x is empty.
func Argmax(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	return floats.MaxIdx(x)
}

// Argmin returns the index of the first minimum of x, or -1 when x is empty.
func Argmin(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	return floats.MinIdx(x)
}

// Diff returns the first differences x[i+1]-x[i].
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := range out {
		out[i] = x[i+1] - x[i]
	}
	return out
}
