package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ccnfit/internal/charge"
	"github.com/banshee-data/ccnfit/internal/config"
	"github.com/banshee-data/ccnfit/internal/monitoring"
	"github.com/banshee-data/ccnfit/internal/sigmoid"
	"github.com/banshee-data/ccnfit/internal/testutil"
)

const (
	scanLength = 98
	scanUpTime = 82
)

// syntheticScan builds a scan whose SMPS series has one peak on each side of
// the up time and whose CCNC series is the activated fraction of SMPS,
// delayed by lag samples and long enough that alignment never pads.
func syntheticScan(index, lag int, step testutil.Step) Scan {
	d := testutil.GeometricDiameters(scanLength+6, 10, 0.03)
	smps := make([]float64, len(d))
	ccnc := make([]float64, lag, lag+scanLength+3)
	for i := range d {
		x := float64(i)
		smps[i] = 1000 + 2000*math.Exp(-math.Pow((x-74)/2.5, 2)) + 1500*math.Exp(-math.Pow((x-90)/2.5, 2))
	}
	for i := 0; i < scanLength+3; i++ {
		ccnc = append(ccnc, step.Value(d[i])*smps[i])
	}
	return Scan{
		Index:      index,
		ScanUpTime: scanUpTime,
		Duration:   scanLength,
		Diameters:  d[:scanLength],
		SMPS:       smps[:scanLength],
		CCNC:       ccnc,
	}
}

func quiet(t *testing.T) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })
}

func TestRun(t *testing.T) {
	quiet(t)

	step := testutil.Step{Dp: 40, CurveMax: 1, K: 8}
	disabled := syntheticScan(2, 3, step)
	disabled.Disabled = true
	short := syntheticScan(3, 3, step)
	short.SMPS = short.SMPS[:scanLength-1]
	empty := syntheticScan(4, 3, step)
	for i := range empty.CCNC {
		empty.CCNC[i] = 0
	}
	noCCNC := syntheticScan(5, 3, step)
	noCCNC.CCNC = nil
	noSMPS := syntheticScan(6, 3, step)
	noSMPS.SMPS = make([]float64, scanLength)

	scans := []Scan{
		syntheticScan(0, 3, step),
		syntheticScan(1, 3, step),
		disabled,
		short,
		empty,
		noCCNC,
		noSMPS,
	}

	rep, err := NewProcessor(DefaultConfig(), nil).Run(context.Background(), scans)
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, len(scans))
	assert.Equal(t, 3, rep.ReferenceShift)
	assert.True(t, rep.ReferenceShiftOK)

	for _, o := range rep.Outcomes[:2] {
		assert.True(t, o.Status.Valid, o.Status.Description)
		assert.Equal(t, StatusOK, o.Status.Code)
		assert.Equal(t, 3, o.Shift)
		assert.Len(t, o.AlignedCCNC, scanLength)
		assert.Equal(t, 1, o.Attempts)
		require.Len(t, o.Fit.Results, 1)
		r := o.Fit.Results[0]
		assert.Equal(t, 46, r.Region.Peak)
		assert.InDelta(t, math.Log(40), r.Params.X0, 5e-3)
		assert.InDelta(t, 41.6, r.Dp50, 0.2)
		assert.Equal(t, []float64{r.Dp50}, o.Dp50s())
		assert.False(t, o.Outlier)
	}

	wantCodes := map[int]StatusCode{
		2: StatusDisabled,
		3: StatusLengthMismatch,
		4: StatusNoCCNCRef,
		5: StatusNoCCNC,
		6: StatusNoSMPSRef,
	}
	for i, code := range wantCodes {
		o := rep.Outcomes[i]
		assert.Equal(t, code, o.Status.Code, "scan %d", i)
		assert.False(t, o.Status.Valid, "scan %d", i)
		assert.Equal(t, i, o.Index)
		assert.Empty(t, o.Fit.Results)
	}
	assert.NotEmpty(t, rep.Outcomes[4].ShiftMessages)
	assert.NotEmpty(t, rep.Outcomes[6].ShiftMessages)
}

func TestRunFitTimeout(t *testing.T) {
	quiet(t)

	cfg := DefaultConfig()
	cfg.FitTimeout = time.Nanosecond

	rep, err := NewProcessor(cfg, nil).Run(context.Background(), []Scan{
		syntheticScan(0, 3, testutil.Step{Dp: 40, CurveMax: 1, K: 8}),
	})
	require.NoError(t, err)
	o := rep.Outcomes[0]
	assert.Equal(t, StatusFitTimeout, o.Status.Code)
	assert.False(t, o.Status.Valid)
	assert.Equal(t, 3, o.Shift, "alignment still happens before the fit")
	assert.Empty(t, o.Fit.Results)
}

func TestFitReturnsWhenBudgetSpent(t *testing.T) {
	quiet(t)

	scan := syntheticScan(0, 3, testutil.Step{Dp: 40, CurveMax: 1, K: 8})
	p := NewProcessor(DefaultConfig(), nil)
	st := charge.Apply(p.corrector, scan.Diameters, scan.SMPS, scan.CCNC[3:3+scanLength], p.cfg.Charge)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	fit, attempts, err := p.fit(ctx, st)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, attempts, "the fit runs in the caller and never starts")
	assert.Empty(t, fit.Results)
}

func TestRunCancelled(t *testing.T) {
	quiet(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProcessor(DefaultConfig(), nil).Run(ctx, []Scan{
		syntheticScan(0, 3, testutil.Step{Dp: 40, CurveMax: 1, K: 8}),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunEmptyBatch(t *testing.T) {
	quiet(t)

	rep, err := NewProcessor(DefaultConfig(), nil).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rep.Outcomes)
	assert.False(t, rep.ReferenceShiftOK)
}

func TestMarkOutliers(t *testing.T) {
	quiet(t)

	dp50s := []float64{40, 41, 42, 43, 200}
	outcomes := make([]Outcome, 0, len(dp50s)+1)
	for i, dp := range dp50s {
		outcomes = append(outcomes, Outcome{
			Index:  i,
			Status: newStatus(StatusOK),
			Fit:    sigmoid.Scan{Results: []sigmoid.FitResult{{Dp50: dp}}},
		})
	}
	outcomes = append(outcomes, Outcome{Index: 5, Status: newStatus(StatusDisabled)})

	markOutliers(outcomes, 1.25)
	for i, o := range outcomes {
		assert.Equal(t, i == 4, o.Outlier, "scan %d", i)
	}

	few := outcomes[:3]
	for i := range few {
		few[i].Outlier = false
	}
	markOutliers(few, 1.25)
	for _, o := range few {
		assert.False(t, o.Outlier)
	}
}

func TestFitStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind sigmoid.Kind
		want StatusCode
	}{
		{sigmoid.KindUnsupportedPeaks, StatusUnsupportedPeaks},
		{sigmoid.KindOverflow, StatusOverflow},
		{sigmoid.KindUnhandled, StatusUnhandled},
		{sigmoid.KindNotConverged, StatusNotConverged},
		{sigmoid.KindSingular, StatusSingular},
		{sigmoid.KindInsufficientData, StatusInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.want.Description(), func(t *testing.T) {
			s := fitStatus(&sigmoid.FitError{Kind: tt.kind, Peak: -1, Count: 3})
			assert.Equal(t, tt.want, s.Code)
			assert.False(t, s.Valid)
			assert.Contains(t, s.Description, tt.want.Description())
		})
	}

	assert.Equal(t, StatusNotConverged, fitStatus(errors.New("plain")).Code)
}

func TestStatusDescriptions(t *testing.T) {
	t.Parallel()

	assert.True(t, newStatus(StatusOK).Valid)
	assert.Equal(t, "The scan is manually disabled.", StatusDisabled.Description())
	assert.Equal(t, "Unknown status code 42.", StatusCode(42).Description())
}

func TestConfigFromTuning(t *testing.T) {
	t.Parallel()

	workers := 3
	timeout := "250ms"
	cfg := ConfigFromTuning(&config.TuningConfig{Workers: &workers, ScanFitTimeout: &timeout})
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.FitTimeout)
	assert.Equal(t, 1.25, cfg.IQRMultiplier)
	assert.Equal(t, 8, cfg.Charge.Passes)
	assert.Equal(t, 2, cfg.Sigmoid.MaxPeaks)
	assert.Equal(t, 7, cfg.Shift.SmoothWindow)

	def := DefaultConfig()
	assert.Equal(t, 10*time.Second, def.FitTimeout)
}
