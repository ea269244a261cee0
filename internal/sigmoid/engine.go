// Package sigmoid segments the activation-ratio curve of a scan into growth
// regions, fits a four-parameter logistic to each region and derives the
// activation diameter (Dp50) from every fit.
//
// The stages run in a fixed order: build the measurement table, zero short
// noise blips, find peaks in the smoothed derivative of the ratio, split the
// table into per-peak selections, fit, and invert the fitted curve at 0.5.
package sigmoid

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/ccnfit/internal/monitoring"
)

var sigmoidLog = monitoring.Component("sigmoid")

// FitResult is the outcome for one growth region.
type FitResult struct {
	Params Params
	Dp50   float64 // nm
	// CurveX and CurveY sample the fitted logistic at integer diameters
	// across the configured diameter range.
	CurveX []float64
	CurveY []float64

	Region    Region
	Selection []int
	// Fitted evaluates the logistic at every row of the measurement table.
	Fitted []float64
}

// Scan is everything the engine produced for one scan, including the table
// the fits refer to.
type Scan struct {
	Table   Table
	Deriv   []float64
	Results []FitResult
}

// FitSigmoids fits one logistic per detected growth region of a scan.
// It fails with a *FitError; an unsupported peak count is KindUnsupportedPeaks.
func FitSigmoids(diameters, ccnc, smps []float64, cfg Config) ([]FitResult, error) {
	s, err := Analyse(diameters, ccnc, smps, cfg)
	if err != nil {
		return nil, err
	}
	return s.Results, nil
}

// Analyse runs every stage and keeps the intermediate table and derivative
// for plotting and storage.
func Analyse(diameters, ccnc, smps []float64, cfg Config) (Scan, error) {
	return analyse(context.Background(), diameters, ccnc, smps, cfg)
}

func analyse(ctx context.Context, diameters, ccnc, smps []float64, cfg Config) (Scan, error) {
	table, err := BuildTable(diameters, ccnc, smps, cfg)
	if err != nil {
		return Scan{}, err
	}
	table = table.withRatio(Denoise(table.Ratio))

	deriv := Derivative(table, cfg)
	peaks := DetectPeaks(deriv, cfg)
	regions, err := Regions(peaks, table.Len(), cfg.MaxPeaks)
	if err != nil {
		return Scan{Table: table, Deriv: deriv}, err
	}
	selections := Selections(regions)

	results := make([]FitResult, 0, len(regions))
	for i, region := range regions {
		res, err := fitRegion(ctx, table, region, selections[i], cfg, i)
		if err != nil {
			return Scan{Table: table, Deriv: deriv}, err
		}
		results = append(results, res)
	}
	return Scan{Table: table, Deriv: deriv, Results: results}, nil
}

func fitRegion(ctx context.Context, t Table, region Region, sel []int, cfg Config, peak int) (FitResult, error) {
	x := make([]float64, len(sel))
	y := make([]float64, len(sel))
	for j, row := range sel {
		x[j] = t.LogDiameter[row]
		y[j] = t.Ratio[row]
	}
	if len(sel) < minFitPoints {
		return FitResult{}, newFitError(KindInsufficientData, peak, "%d selected rows", len(sel))
	}

	init := Params{X0: t.LogDiameter[region.Peak], CurveMax: 1.0, K: 0.5, Y0: 0}
	p, err := fitPeak(ctx, x, y, init, x[0], x[len(x)-1], cfg, peak)
	if err != nil {
		return FitResult{}, err
	}

	fitted := make([]float64, t.Len())
	for j, ld := range t.LogDiameter {
		if fitted[j], err = logisticErr(ld, p, peak); err != nil {
			return FitResult{}, err
		}
	}
	cx, cy, err := Curve(p, int(cfg.MinDiameter), int(cfg.MaxDiameter))
	if err != nil {
		return FitResult{}, withPeak(err, peak)
	}
	dp50, err := Dp50(p, cfg.ExactInverse)
	if err != nil {
		return FitResult{}, withPeak(err, peak)
	}

	return FitResult{
		Params:    p,
		Dp50:      dp50,
		CurveX:    cx,
		CurveY:    cy,
		Region:    region,
		Selection: sel,
		Fitted:    fitted,
	}, nil
}

// FitWithRetry runs FitSigmoids and, on a retryable failure, widens the
// valid ratio range by cfg.LimitStep on each side and tries again, at most
// cfg.MaxRetries more times. cfg itself is never modified. It returns the
// number of attempts made.
func FitWithRetry(diameters, ccnc, smps []float64, cfg Config) (Scan, int, error) {
	return FitWithRetryContext(context.Background(), diameters, ccnc, smps, cfg)
}

// FitWithRetryContext is FitWithRetry bounded by ctx. ctx is checked before
// every attempt and before every residual evaluation of the optimiser; once
// it is done the fit stops and ctx.Err() is returned unwrapped.
func FitWithRetryContext(ctx context.Context, diameters, ccnc, smps []float64, cfg Config) (Scan, int, error) {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Scan{}, attempt, err
		}
		s, err := analyse(ctx, diameters, ccnc, smps, cfg.widened(attempt))
		if err == nil {
			return s, attempt + 1, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Scan{}, attempt + 1, ctxErr
		}
		lastErr = err
		if !KindOf(err).Retryable() {
			return s, attempt + 1, err
		}
		sigmoidLog("attempt %d failed, widening ratio limits: %v", attempt+1, err)
	}
	return Scan{}, cfg.MaxRetries + 1, fmt.Errorf("after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

func withPeak(err error, peak int) error {
	var fe *FitError
	if errors.As(err, &fe) {
		c := *fe
		c.Peak = peak
		return &c
	}
	return err
}

// Evaluate re-evaluates stored parameters at the given diameters (nm)
// without refitting.
func Evaluate(p Params, diameters []float64) ([]float64, error) {
	out := make([]float64, len(diameters))
	for i, d := range diameters {
		v, err := logisticErr(math.Log(d), p, -1)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
