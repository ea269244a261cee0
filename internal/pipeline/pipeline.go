// Package pipeline runs a batch of scans through alignment, charge
// correction and sigmoid fitting, and records a status for every scan.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/ccnfit/internal/charge"
	"github.com/banshee-data/ccnfit/internal/config"
	"github.com/banshee-data/ccnfit/internal/monitoring"
	"github.com/banshee-data/ccnfit/internal/numeric"
	"github.com/banshee-data/ccnfit/internal/shift"
	"github.com/banshee-data/ccnfit/internal/sigmoid"
)

var pipelineLog = monitoring.Component("pipeline")

// Scan is one SMPS scan with the CCNC counts recorded over the same period.
// SMPS and Diameters hold one entry per second of the scan; CCNC may run
// longer and is cut to Duration once aligned.
type Scan struct {
	Index      int       `json:"index"`
	ScanUpTime int       `json:"scan_up_time"`
	Duration   int       `json:"duration"`
	Diameters  []float64 `json:"diameters"`
	SMPS       []float64 `json:"smps"`
	CCNC       []float64 `json:"ccnc"`
	Disabled   bool      `json:"disabled,omitempty"`
}

// Outcome is everything the pipeline produced for one scan.
type Outcome struct {
	Index         int
	Shift         int
	ShiftMessages []string
	AlignedCCNC   []float64
	Corrected     charge.State
	Fit           sigmoid.Scan
	Attempts      int
	Status        Status
	// Outlier marks a valid scan whose first Dp50 lies outside the IQR
	// fence of the batch.
	Outlier bool
}

// Dp50s returns the activation diameter of every fitted region.
func (o Outcome) Dp50s() []float64 {
	out := make([]float64, len(o.Fit.Results))
	for i, r := range o.Fit.Results {
		out[i] = r.Dp50
	}
	return out
}

// Report is the result of a batch run. Outcomes[i] belongs to scans[i].
type Report struct {
	ReferenceShift   int
	ReferenceShiftOK bool
	Outcomes         []Outcome
}

// Config bundles the stage configurations with the batch settings.
type Config struct {
	Shift   shift.Config
	Sigmoid sigmoid.Config
	Charge  charge.Config

	Workers       int           // <= 0 uses GOMAXPROCS
	FitTimeout    time.Duration // per scan; 0 disables
	IQRMultiplier float64
}

// DefaultConfig returns the pipeline configuration built from the in-code
// tuning defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Shift:         shift.ConfigFromTuning(cfg),
		Sigmoid:       sigmoid.ConfigFromTuning(cfg),
		Charge:        charge.ConfigFromTuning(cfg),
		Workers:       cfg.GetWorkers(),
		FitTimeout:    cfg.GetScanFitTimeout(),
		IQRMultiplier: cfg.GetIQRMultiplier(),
	}
}

// Processor runs batches with a fixed configuration and corrector.
type Processor struct {
	cfg       Config
	corrector charge.Corrector
}

// NewProcessor returns a Processor. A nil corrector leaves counts as they
// are apart from the zero and small-count preparation.
func NewProcessor(cfg Config, corrector charge.Corrector) *Processor {
	if corrector == nil {
		corrector = charge.Passthrough{}
	}
	return &Processor{cfg: cfg, corrector: corrector}
}

// Run processes scans. Shifts are estimated in two passes over every scan
// that passes the input checks; alignment, correction and fitting then run
// per scan on a bounded pool. A scan that fails any stage gets a non-OK
// status but never fails the batch; only cancellation of ctx does.
func (p *Processor) Run(ctx context.Context, scans []Scan) (*Report, error) {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]Outcome, len(scans))
	var (
		inputs []shift.Input
		pos    []int
	)
	for i, s := range scans {
		outcomes[i] = Outcome{Index: s.Index, Status: newStatus(precheck(s))}
		if !outcomes[i].Status.Valid {
			continue
		}
		inputs = append(inputs, shift.Input{SMPS: s.SMPS, CCNC: s.CCNC, ScanUpTime: s.ScanUpTime})
		pos = append(pos, i)
	}

	batch, err := shift.EstimateBatch(ctx, inputs, p.cfg.Shift, workers)
	if err != nil {
		return nil, fmt.Errorf("estimate shifts: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for j, i := range pos {
		j, i := j, i
		g.Go(func() error {
			return p.process(gctx, scans[i], batch.Final[j], &outcomes[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit scans: %w", err)
	}

	markOutliers(outcomes, p.cfg.IQRMultiplier)
	return &Report{
		ReferenceShift:   batch.Median,
		ReferenceShiftOK: batch.MedianOK,
		Outcomes:         outcomes,
	}, nil
}

func precheck(s Scan) StatusCode {
	switch {
	case s.Disabled:
		return StatusDisabled
	case len(s.SMPS) != s.Duration || len(s.Diameters) != s.Duration:
		return StatusLengthMismatch
	case len(s.CCNC) == 0:
		return StatusNoCCNC
	}
	return StatusOK
}

func (p *Processor) process(ctx context.Context, s Scan, r shift.Result, out *Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	out.Shift = r.Shift
	out.ShiftMessages = r.Messages
	if !r.Usable {
		if r.NoSMPSRef {
			out.Status = newStatus(StatusNoSMPSRef)
		} else {
			out.Status = newStatus(StatusNoCCNCRef)
		}
		return nil
	}
	if r.Shift >= len(s.CCNC) {
		out.Status = newStatus(StatusShiftedTooFar)
		return nil
	}

	out.AlignedCCNC = shift.ApplyShift(s.CCNC, r.Shift, s.Duration)
	out.Corrected = charge.Apply(p.corrector, s.Diameters, s.SMPS, out.AlignedCCNC, p.cfg.Charge)

	fit, attempts, err := p.fit(ctx, out.Corrected)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		pipelineLog("scan %d: fit abandoned after %s", s.Index, p.cfg.FitTimeout)
		out.Status = newStatus(StatusFitTimeout)
		return nil
	default:
		pipelineLog("scan %d: %v", s.Index, err)
		out.Status = fitStatus(err)
	}
	out.Fit = fit
	out.Attempts = attempts
	return nil
}

// fit runs the sigmoid engine under the per-scan time budget. The engine
// observes ctx, so a timed-out fit stops inside the worker that started it.
func (p *Processor) fit(ctx context.Context, st charge.State) (sigmoid.Scan, int, error) {
	if p.cfg.FitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.FitTimeout)
		defer cancel()
	}
	return sigmoid.FitWithRetryContext(ctx, st.Diameters, st.CorrectedCCNC, st.CorrectedSMPS, p.cfg.Sigmoid)
}

func markOutliers(outcomes []Outcome, multiplier float64) {
	var (
		values []float64
		index  []int
	)
	for i, o := range outcomes {
		if o.Status.Valid && len(o.Fit.Results) > 0 {
			values = append(values, o.Fit.Results[0].Dp50)
			index = append(index, i)
		}
	}
	kept, ok := numeric.OutliersIQR(values, index, multiplier)
	if !ok {
		return
	}
	inside := make(map[int]bool, len(kept))
	for _, i := range kept {
		inside[i] = true
	}
	for _, i := range index {
		if !inside[i] {
			outcomes[i].Outlier = true
			pipelineLog("scan %d: Dp50 %.1f outside the batch IQR fence", outcomes[i].Index, outcomes[i].Fit.Results[0].Dp50)
		}
	}
}
