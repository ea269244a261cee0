package numeric

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/ccnfit/internal/monitoring"
)

var smoothLog = monitoring.Component("smooth")

// Smooth applies a Savitzky-Golay filter of the given odd window and
// polynomial order. Interior samples are convolved with the least-squares
// coefficients; the first and last window/2 samples are taken from a
// polynomial fitted to the first and last window samples respectively.
func Smooth(x []float64, window, order int) ([]float64, error) {
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("window must be a positive odd integer, got %d", window)
	}
	if order < 0 || order >= window {
		return nil, fmt.Errorf("order %d must be in [0, %d)", order, window)
	}
	if window > len(x) {
		return nil, fmt.Errorf("window %d exceeds series length %d", window, len(x))
	}

	half := window / 2
	coef, err := savgolCoefficients(window, order)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(x))
	for k := half; k < len(x)-half; k++ {
		var s float64
		for i, c := range coef {
			s += c * x[k-half+i]
		}
		out[k] = s
	}

	if half == 0 {
		return out, nil
	}
	left, err := fitEdge(x[:window], order, 0, half)
	if err != nil {
		return nil, err
	}
	copy(out[:half], left)
	right, err := fitEdge(x[len(x)-window:], order, window-half, window)
	if err != nil {
		return nil, err
	}
	copy(out[len(x)-half:], right)
	return out, nil
}

// SmoothOrKeep smooths x and falls back to a copy of x when smoothing is not
// possible, for example when the series is shorter than the window.
func SmoothOrKeep(x []float64, window, order int) []float64 {
	out, err := Smooth(x, window, order)
	if err != nil {
		smoothLog("keeping unsmoothed series of length %d: %v", len(x), err)
		return append([]float64(nil), x...)
	}
	return out
}

// savgolCoefficients returns the zeroth-derivative filter taps: the first row
// of the pseudo-inverse of the Vandermonde matrix over t = -half..half.
func savgolCoefficients(window, order int) ([]float64, error) {
	half := window / 2
	a := vandermonde(window, order, -half)
	var pinv mat.Dense
	if err := pinv.Solve(a, identity(window)); err != nil {
		return nil, fmt.Errorf("savgol coefficients: %w", err)
	}
	coef := make([]float64, window)
	for i := range coef {
		coef[i] = pinv.At(0, i)
	}
	return coef, nil
}

// fitEdge fits a polynomial to seg over positions 0..len(seg)-1 and
// evaluates it at positions [from, to).
func fitEdge(seg []float64, order, from, to int) ([]float64, error) {
	a := vandermonde(len(seg), order, 0)
	var p mat.VecDense
	if err := p.SolveVec(a, mat.NewVecDense(len(seg), append([]float64(nil), seg...))); err != nil {
		return nil, fmt.Errorf("edge polynomial fit: %w", err)
	}
	out := make([]float64, 0, to-from)
	for t := from; t < to; t++ {
		// Horner
		v := 0.0
		for j := order; j >= 0; j-- {
			v = v*float64(t) + p.AtVec(j)
		}
		out = append(out, v)
	}
	return out, nil
}

func vandermonde(rows, order, start int) *mat.Dense {
	a := mat.NewDense(rows, order+1, nil)
	for i := 0; i < rows; i++ {
		t := float64(start + i)
		v := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, v)
			v *= t
		}
	}
	return a
}

func identity(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}
