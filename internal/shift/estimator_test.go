package shift

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ccnfit/internal/config"
	"github.com/banshee-data/ccnfit/internal/monitoring"
)

// twoPeakSMPS is one scan with an up peak and a smaller down peak.
var twoPeakSMPS = []float64{0, 0, 10, 40, 90, 100, 90, 40, 10, 0, 0, 0, 0, 5, 20, 45, 50, 45, 20, 5, 0, 0}

const twoPeakUpTime = 11

// lagged returns smps delayed by lag samples and scaled, as a CCNC would see it.
func lagged(smps []float64, lag int, scale float64) []float64 {
	out := make([]float64, lag, lag+len(smps))
	for _, v := range smps {
		out = append(out, v*scale)
	}
	return out
}

func TestEstimateRecoversLag(t *testing.T) {
	for lag := 0; lag <= 4; lag++ {
		ccnc := lagged(twoPeakSMPS, lag, 0.8)
		got := Estimate(twoPeakSMPS, ccnc, twoPeakUpTime, 0, DefaultConfig())

		want := lag
		if lag == 4 {
			// The smoothed CCNC down-window maximum lands on the tail of the
			// up peak at index 11, leaving a two-sample span to compare.
			want = 3
		}
		assert.Equal(t, want, got.Shift, "lag %d", lag)
		assert.Empty(t, got.Messages, "lag %d", lag)
		assert.True(t, got.Usable)
	}
}

func TestEstimateEndToEnd(t *testing.T) {
	ccnc := lagged(twoPeakSMPS, 3, 0.8)
	require.Len(t, ccnc, 25)

	got := Estimate(twoPeakSMPS, ccnc, twoPeakUpTime, 0, DefaultConfig())
	assert.Equal(t, 3, got.Shift)
	assert.Empty(t, got.Messages)

	// A reference shift matching the lag finds the same answer.
	got = Estimate(twoPeakSMPS, ccnc, twoPeakUpTime, 3, DefaultConfig())
	assert.Equal(t, 3, got.Shift)
}

func TestEstimateIdentical(t *testing.T) {
	ccnc := append([]float64(nil), twoPeakSMPS...)
	got := Estimate(twoPeakSMPS, ccnc, twoPeakUpTime, 0, DefaultConfig())
	assert.Equal(t, 0, got.Shift)
	assert.Empty(t, got.Messages)
}

func TestEstimateLeadingCCNC(t *testing.T) {
	ccnc := make([]float64, 0, len(twoPeakSMPS))
	for _, v := range twoPeakSMPS[2:] {
		ccnc = append(ccnc, 0.8*v)
	}
	ccnc = append(ccnc, 0, 0)

	got := Estimate(twoPeakSMPS, ccnc, twoPeakUpTime, 0, DefaultConfig())
	assert.Equal(t, -2, got.Shift)
}

func TestEstimateTranslationInvariant(t *testing.T) {
	ccnc := lagged(twoPeakSMPS, 3, 0.8)
	base := Estimate(twoPeakSMPS, ccnc, twoPeakUpTime, 0, DefaultConfig())

	pad := make([]float64, 5)
	moved := Estimate(append(pad, twoPeakSMPS...), append(append([]float64(nil), pad...), ccnc...), twoPeakUpTime+5, 0, DefaultConfig())
	assert.Equal(t, base.Shift, moved.Shift)
}

func TestEstimateNoData(t *testing.T) {
	tests := []struct {
		name       string
		smps, ccnc []float64
		upTime     int
		reference  int
		wantPrefix string
		noSMPSRef  bool
	}{
		{"zero_smps", make([]float64, 22), twoPeakSMPS, 11, 0, "No SMPS and/or CCNC data", true},
		{"zero_ccnc", twoPeakSMPS, make([]float64, 22), 11, 0, "No SMPS and/or CCNC data", false},
		{"empty_smps", nil, twoPeakSMPS, 11, 0, "Empty SMPS", true},
		{"empty_ccnc", twoPeakSMPS, nil, 11, 0, "Empty SMPS", false},
		{"smps_longer", twoPeakSMPS, twoPeakSMPS[:20], 11, 0, "SMPS data longer than CCNC data", false},
		{"up_time_zero", twoPeakSMPS, twoPeakSMPS, 0, 0, "Scan up time", true},
		{"up_time_past_end", twoPeakSMPS, twoPeakSMPS, 22, 0, "Scan up time", true},
		{"reference_past_end", twoPeakSMPS, twoPeakSMPS, 11, 40, "No CCNC data in up window", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Estimate(tt.smps, tt.ccnc, tt.upTime, tt.reference, DefaultConfig())
			assert.Equal(t, 0, got.Shift)
			require.Len(t, got.Messages, 1)
			assert.True(t, strings.HasPrefix(got.Messages[0], tt.wantPrefix), "message %q", got.Messages[0])
			assert.False(t, got.Usable)
			assert.Equal(t, tt.noSMPSRef, got.NoSMPSRef)
		})
	}
}

func TestEstimateSentinelOnFirstIteration(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) { lines = append(lines, format) })
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	// The up peak sits so close to the start that the first widened window
	// begins before the series.
	smps := []float64{40, 90, 100, 90, 40, 10, 0, 0, 0, 0, 0, 0, 0, 5, 20, 45, 50, 45, 20, 5, 0, 0}
	ccnc := append(lagged(smps, 0, 0.8), 0, 0, 0)

	got := Estimate(smps, ccnc, 11, 0, DefaultConfig())
	assert.Equal(t, 0, got.Shift)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0], "Shift issue on iteration 0")
	assert.Contains(t, got.Messages[0], "[set to 9's]")
	assert.NotEmpty(t, lines)
	assert.True(t, got.Usable)
}

func TestEstimateShortSeriesDoesNotPanic(t *testing.T) {
	smps := []float64{1, 5, 1, 4, 1}
	ccnc := []float64{1, 5, 1, 4, 1}
	assert.NotPanics(t, func() {
		Estimate(smps, ccnc, 2, 0, DefaultConfig())
	})
}

func TestConfigFromTuning(t *testing.T) {
	cfg := ConfigFromTuning(config.DefaultTuningConfig())
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 7, cfg.SmoothWindow)
	assert.Equal(t, 2.2, cfg.HighCCNCWeight)
	assert.Equal(t, 999999999999.0, cfg.SentinelArea)
}

func TestApplyShift(t *testing.T) {
	t.Parallel()

	ccnc := []float64{1, 2, 3, 4, 5}
	tests := []struct {
		name     string
		shift    int
		duration int
		want     []float64
	}{
		{"zero", 0, 5, []float64{1, 2, 3, 4, 5}},
		{"positive_drops_and_pads", 2, 5, []float64{3, 4, 5, 0, 0}},
		{"negative_prepends", -2, 5, []float64{0, 0, 1, 2, 3}},
		{"truncate", 0, 3, []float64{1, 2, 3}},
		{"shift_past_end", 9, 3, []float64{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyShift(ccnc, tt.shift, tt.duration))
		})
	}
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, ccnc, "input must not be modified")
}

func TestEstimateBatch(t *testing.T) {
	scans := []Input{
		{SMPS: twoPeakSMPS, CCNC: lagged(twoPeakSMPS, 2, 0.8), ScanUpTime: twoPeakUpTime},
		{SMPS: twoPeakSMPS, CCNC: lagged(twoPeakSMPS, 3, 0.8), ScanUpTime: twoPeakUpTime},
		{SMPS: twoPeakSMPS, CCNC: lagged(twoPeakSMPS, 3, 0.7), ScanUpTime: twoPeakUpTime},
		{SMPS: twoPeakSMPS, CCNC: make([]float64, 25), ScanUpTime: twoPeakUpTime},
	}

	got, err := EstimateBatch(context.Background(), scans, DefaultConfig(), 2)
	require.NoError(t, err)

	require.Len(t, got.Phase1, 4)
	require.Len(t, got.Final, 4)
	assert.True(t, got.MedianOK)
	// Usable first-pass shifts are {2, 3, 3}; the empty scan is ignored.
	assert.Equal(t, 3, got.Median)
	assert.Equal(t, 2, got.Phase1[0].Shift)
	assert.Equal(t, 3, got.Final[1].Shift)
	assert.False(t, got.Final[3].Usable)
}

func TestEstimateBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scans := []Input{{SMPS: twoPeakSMPS, CCNC: twoPeakSMPS, ScanUpTime: twoPeakUpTime}}
	_, err := EstimateBatch(ctx, scans, DefaultConfig(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateBatchNoUsableScans(t *testing.T) {
	scans := []Input{{SMPS: make([]float64, 10), CCNC: make([]float64, 10), ScanUpTime: 5}}
	got, err := EstimateBatch(context.Background(), scans, DefaultConfig(), 0)
	require.NoError(t, err)
	assert.False(t, got.MedianOK)
	assert.Equal(t, 0, got.Median)
}
