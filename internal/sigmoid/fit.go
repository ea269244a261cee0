package sigmoid

import (
	"context"
	"fmt"
	"math"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/banshee-data/ccnfit/internal/numeric"
)

// minFitPoints is the number of parameters; fewer rows leave the fit
// underdetermined.
const minFitPoints = 4

// boundEdge keeps the initial x0 off the bounds, where the sine transform
// has zero slope.
const boundEdge = 1e-3

// y0Seed starts the y0 transform just off its stationary point.
const y0Seed = 0.05

// fitAbort unwinds the optimiser from inside a residual evaluation.
type fitAbort struct{ err error }

// Fit runs a bounded least-squares fit of the logistic to (x, y). x0 is
// kept in [lo, hi] and y0 >= 0; curve_max and k are free. The bounds are
// enforced by reparameterisation: x0 = lo + (hi-lo)(sin u + 1)/2 and
// y0 = sqrt(v^2 + 1) - 1. The returned parameters are rounded.
func Fit(x, y []float64, init Params, lo, hi float64, cfg Config) (p Params, err error) {
	return fitPeak(context.Background(), x, y, init, lo, hi, cfg, -1)
}

func fitPeak(ctx context.Context, x, y []float64, init Params, lo, hi float64, cfg Config, peak int) (p Params, err error) {
	if len(x) != len(y) || len(x) < minFitPoints {
		return Params{}, newFitError(KindInsufficientData, peak, "%d points for %d parameters", len(x), minFitPoints)
	}
	if !(lo <= hi) {
		return Params{}, newFitError(KindInsufficientData, peak, "empty x0 bounds [%.4f, %.4f]", lo, hi)
	}

	tr := boundTransform{lo: lo, hi: hi}
	model := func(q []float64) Params {
		return Params{X0: tr.x0(q[0]), CurveMax: q[1], K: q[2], Y0: tr.y0(q[3])}
	}
	residuals := func(dst, q []float64) {
		if err := ctx.Err(); err != nil {
			panic(fitAbort{err: err})
		}
		m := model(q)
		for i := range x {
			v, err := logisticErr(x[i], m, peak)
			if err != nil {
				panic(fitAbort{err: err})
			}
			dst[i] = v - y[i]
		}
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if a, ok := r.(fitAbort); ok {
			p, err = Params{}, a.err
			return
		}
		p, err = Params{}, &FitError{Kind: KindNotConverged, Peak: peak, Detail: fmt.Sprint(r)}
	}()

	problem := lm.LMProblem{
		Dim:  4,
		Size: len(x),
		Func: residuals,
		Jac: func(dst *mat.Dense, q []float64) {
			fd.Jacobian(dst, residuals, q, &fd.JacobianSettings{Formula: fd.Central})
		},
		InitParams: []float64{tr.u(init.X0), init.CurveMax, init.K, tr.v(init.Y0)},
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}
	res, lmErr := lm.LM(problem, &lm.Settings{Iterations: cfg.FitIterations, ObjectiveTol: 1e-16})
	if lmErr != nil {
		return Params{}, &FitError{Kind: KindNotConverged, Peak: peak, Err: lmErr}
	}
	if res.Status == optimize.IterationLimit {
		return Params{}, newFitError(KindNotConverged, peak, "no convergence in %d iterations", cfg.FitIterations)
	}
	for _, v := range res.X {
		if !numeric.Finite(v) {
			return Params{}, newFitError(KindNotConverged, peak, "non-finite parameters %v", res.X)
		}
	}
	return model(res.X).Rounded(), nil
}

type boundTransform struct{ lo, hi float64 }

func (b boundTransform) x0(u float64) float64 {
	if b.hi == b.lo {
		return b.lo
	}
	return b.lo + (b.hi-b.lo)*(math.Sin(u)+1)/2
}

// u inverts x0, nudging values at or beyond the bounds inside.
func (b boundTransform) u(x0 float64) float64 {
	if b.hi == b.lo {
		return 0
	}
	f := (x0 - b.lo) / (b.hi - b.lo)
	f = math.Max(boundEdge, math.Min(1-boundEdge, f))
	return math.Asin(2*f - 1)
}

func (b boundTransform) y0(v float64) float64 {
	return math.Sqrt(v*v+1) - 1
}

// v inverts y0, never returning less than y0Seed.
func (b boundTransform) v(y0 float64) float64 {
	if !(y0 > 0) {
		return y0Seed
	}
	return math.Max(y0Seed, math.Sqrt((y0+1)*(y0+1)-1))
}
