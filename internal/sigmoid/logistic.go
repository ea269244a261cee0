package sigmoid

import (
	"math"

	"github.com/banshee-data/ccnfit/internal/numeric"
)

// Exponent clamp applied before exp so the logistic never traps.
var (
	minExponent = math.Log(0x1p-1022) // smallest normal float64
	maxExponent = math.Log(math.MaxFloat64)
)

// Params are the fitted logistic parameters, already rounded to 4 decimals.
// They are enough to re-evaluate the curve at any diameter without refitting.
type Params struct {
	X0       float64 `json:"x0"` // log diameter at the midpoint of the rise
	CurveMax float64 `json:"curve_max"`
	K        float64 `json:"k"`
	Y0       float64 `json:"y0"`
}

// Slice returns the parameters in fit order.
func (p Params) Slice() []float64 { return []float64{p.X0, p.CurveMax, p.K, p.Y0} }

func paramsFrom(v []float64) Params {
	return Params{X0: v[0], CurveMax: v[1], K: v[2], Y0: v[3]}
}

// Rounded returns p with every parameter rounded to 4 decimals.
func (p Params) Rounded() Params {
	return Params{X0: round(p.X0, 4), CurveMax: round(p.CurveMax, 4), K: round(p.K, 4), Y0: round(p.Y0, 4)}
}

// Logistic evaluates curve_max / (1 + exp(-k(x - x0))) + y0 at a log
// diameter. The exponent is clamped to the representable range first. If
// the quotient underflows the result is 0 with status Underflow; an
// infinite exponential or result is Overflow; any NaN is NonFinite.
func Logistic(x float64, p Params) (float64, numeric.Status) {
	e := -p.K * (x - p.X0)
	if math.IsNaN(e) || math.IsNaN(p.CurveMax) || math.IsNaN(p.Y0) {
		return 0, numeric.NonFinite
	}
	e = math.Max(minExponent, math.Min(maxExponent, e))

	ex := math.Exp(e)
	if math.IsInf(ex, 0) {
		return 0, numeric.Overflow
	}
	q := p.CurveMax / (1 + ex)
	if q != 0 && math.Abs(q) < 0x1p-1022 || q == 0 && p.CurveMax != 0 {
		return 0, numeric.Underflow
	}
	v := q + p.Y0
	switch {
	case math.IsInf(v, 0):
		return 0, numeric.Overflow
	case math.IsNaN(v):
		return 0, numeric.NonFinite
	}
	return v, numeric.OK
}

// logisticErr wraps Logistic for callers that treat underflow as a value.
func logisticErr(x float64, p Params, peak int) (float64, error) {
	v, st := Logistic(x, p)
	switch st {
	case numeric.OK, numeric.Underflow:
		return v, nil
	case numeric.Overflow:
		return 0, newFitError(KindOverflow, peak, "exp overflow with (-%.4f * (%.4f - %.4f))", p.K, x, p.X0)
	default:
		return 0, newFitError(KindUnhandled, peak, "%s evaluating (%.4f / (1 + exp(-%.4f * (%.4f - %.4f))) + %.4f)",
			st, p.CurveMax, p.K, x, p.X0, p.Y0)
	}
}

// Dp50 returns the diameter, in nm and rounded to 1 decimal, at which the
// logistic reaches 0.5.
//
// By default this uses the long-standing formula
// exp(-(ln(curve_max/(0.5-y0)) - 1)/k + x0), which existing result sets were
// computed with. exact selects the algebraic inverse
// exp(x0 - ln(curve_max/(0.5-y0) - 1)/k).
func Dp50(p Params, exact bool) (float64, error) {
	den := 0.5 - p.Y0
	if p.K == 0 || den <= 0 {
		return 0, newFitError(KindSingular, -1, "k=%.4f y0=%.4f", p.K, p.Y0)
	}
	arg := p.CurveMax / den
	var x float64
	if exact {
		if arg-1 <= 0 {
			return 0, newFitError(KindSingular, -1, "curve never reaches 0.5 (curve_max=%.4f y0=%.4f)", p.CurveMax, p.Y0)
		}
		x = p.X0 - math.Log(arg-1)/p.K
	} else {
		if arg <= 0 {
			return 0, newFitError(KindSingular, -1, "log of non-positive ratio (curve_max=%.4f y0=%.4f)", p.CurveMax, p.Y0)
		}
		x = -(math.Log(arg)-1)/p.K + p.X0
	}
	d := math.Exp(x)
	if !numeric.Finite(d) {
		return 0, newFitError(KindOverflow, -1, "dp50 exponent %.4f", x)
	}
	return round(d, 1), nil
}

// Curve evaluates the logistic at every integer diameter in [from, to).
func Curve(p Params, from, to int) (xs, ys []float64, err error) {
	for d := from; d < to; d++ {
		v, err := logisticErr(math.Log(float64(d)), p, -1)
		if err != nil {
			return nil, nil, err
		}
		xs = append(xs, float64(d))
		ys = append(ys, v)
	}
	return xs, ys, nil
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(v*scale) / scale
}
