package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// The Get* accessors carry the same defaults in code so a missing key in a
// partial file never changes behaviour.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the shift estimator,
// the sigmoid engine, charge correction and the batch pipeline. Every value
// here was tuned against instrument data; none of them are derived.
type TuningConfig struct {
	// Shift estimator params
	ShiftSmoothWindow  *int     `json:"shift_smooth_window,omitempty"`
	ShiftSmoothOrder   *int     `json:"shift_smooth_order,omitempty"`
	HighSMPSWeight     *float64 `json:"high_smps_weight,omitempty"`
	HighCCNCWeight     *float64 `json:"high_ccnc_weight,omitempty"`
	ShiftWidenFraction *float64 `json:"shift_widen_fraction,omitempty"`
	ShiftWidenMin      *int     `json:"shift_widen_min,omitempty"`
	ShiftCloseSpan     *int     `json:"shift_close_span,omitempty"`
	ShiftSentinelArea  *float64 `json:"shift_sentinel_area,omitempty"`

	// Sigmoid table params
	SigmoidMinDiameter     *float64 `json:"sigmoid_min_diameter,omitempty"`
	SigmoidMaxDiameter     *float64 `json:"sigmoid_max_diameter,omitempty"`
	SigmoidZeroCountThresh *float64 `json:"sigmoid_zero_count_thresh,omitempty"`
	SigmoidMinValidRatio   *float64 `json:"sigmoid_min_valid_ratio,omitempty"`
	SigmoidMaxValidRatio   *float64 `json:"sigmoid_max_valid_ratio,omitempty"`

	// Sigmoid peak detection params
	SigmoidMinPeakProminence *float64 `json:"sigmoid_min_peak_prominence,omitempty"`
	SigmoidMinPeakWidth      *float64 `json:"sigmoid_min_peak_width,omitempty"`
	SigmoidMaxPeaks          *int     `json:"sigmoid_max_peaks,omitempty"` // 0 = no upper limit
	SigmoidRatioSmoothWindow *int     `json:"sigmoid_ratio_smooth_window,omitempty"`
	SigmoidRatioSmoothOrder  *int     `json:"sigmoid_ratio_smooth_order,omitempty"`
	SigmoidDerivSmoothWindow *int     `json:"sigmoid_deriv_smooth_window,omitempty"`
	SigmoidDerivSmoothOrder  *int     `json:"sigmoid_deriv_smooth_order,omitempty"`

	// Sigmoid fit params
	SigmoidFitIterations *int     `json:"sigmoid_fit_iterations,omitempty"`
	SigmoidLimitStep     *float64 `json:"sigmoid_limit_step,omitempty"`
	SigmoidMaxRetries    *int     `json:"sigmoid_max_retries,omitempty"`
	SigmoidExactInverse  *bool    `json:"sigmoid_exact_inverse,omitempty"`
	IQRMultiplier        *float64 `json:"iqr_multiplier,omitempty"`

	// Charge correction params
	ChargeCorrections *int     `json:"charge_corrections,omitempty"`
	Epsilon           *float64 `json:"epsilon,omitempty"`
	MinCCNCCount      *float64 `json:"min_ccnc_count,omitempty"`

	// Pipeline params
	Workers        *int    `json:"workers,omitempty"`          // 0 = GOMAXPROCS
	ScanFitTimeout *string `json:"scan_fit_timeout,omitempty"` // duration string like "10s"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Every Get* accessor then answers with its default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the in-code defaults. It matches config/tuning.defaults.json.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		ShiftSmoothWindow:  ptrInt(e.GetShiftSmoothWindow()),
		ShiftSmoothOrder:   ptrInt(e.GetShiftSmoothOrder()),
		HighSMPSWeight:     ptrFloat64(e.GetHighSMPSWeight()),
		HighCCNCWeight:     ptrFloat64(e.GetHighCCNCWeight()),
		ShiftWidenFraction: ptrFloat64(e.GetShiftWidenFraction()),
		ShiftWidenMin:      ptrInt(e.GetShiftWidenMin()),
		ShiftCloseSpan:     ptrInt(e.GetShiftCloseSpan()),
		ShiftSentinelArea:  ptrFloat64(e.GetShiftSentinelArea()),

		SigmoidMinDiameter:     ptrFloat64(e.GetSigmoidMinDiameter()),
		SigmoidMaxDiameter:     ptrFloat64(e.GetSigmoidMaxDiameter()),
		SigmoidZeroCountThresh: ptrFloat64(e.GetSigmoidZeroCountThresh()),
		SigmoidMinValidRatio:   ptrFloat64(e.GetSigmoidMinValidRatio()),
		SigmoidMaxValidRatio:   ptrFloat64(e.GetSigmoidMaxValidRatio()),

		SigmoidMinPeakProminence: ptrFloat64(e.GetSigmoidMinPeakProminence()),
		SigmoidMinPeakWidth:      ptrFloat64(e.GetSigmoidMinPeakWidth()),
		SigmoidMaxPeaks:          ptrInt(e.GetSigmoidMaxPeaks()),
		SigmoidRatioSmoothWindow: ptrInt(e.GetSigmoidRatioSmoothWindow()),
		SigmoidRatioSmoothOrder:  ptrInt(e.GetSigmoidRatioSmoothOrder()),
		SigmoidDerivSmoothWindow: ptrInt(e.GetSigmoidDerivSmoothWindow()),
		SigmoidDerivSmoothOrder:  ptrInt(e.GetSigmoidDerivSmoothOrder()),

		SigmoidFitIterations: ptrInt(e.GetSigmoidFitIterations()),
		SigmoidLimitStep:     ptrFloat64(e.GetSigmoidLimitStep()),
		SigmoidMaxRetries:    ptrInt(e.GetSigmoidMaxRetries()),
		SigmoidExactInverse:  ptrBool(e.GetSigmoidExactInverse()),
		IQRMultiplier:        ptrFloat64(e.GetIQRMultiplier()),

		ChargeCorrections: ptrInt(e.GetChargeCorrections()),
		Epsilon:           ptrFloat64(e.GetEpsilon()),
		MinCCNCCount:      ptrFloat64(e.GetMinCCNCCount()),

		Workers:        ptrInt(e.GetWorkers()),
		ScanFitTimeout: ptrString("10s"),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/<pkg>/ and cmd/ccnfit/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	for _, w := range []struct {
		name string
		v    *int
	}{
		{"shift_smooth_window", c.ShiftSmoothWindow},
		{"sigmoid_ratio_smooth_window", c.SigmoidRatioSmoothWindow},
		{"sigmoid_deriv_smooth_window", c.SigmoidDerivSmoothWindow},
	} {
		if w.v != nil && (*w.v < 1 || *w.v%2 == 0) {
			return fmt.Errorf("%s must be a positive odd integer, got %d", w.name, *w.v)
		}
	}

	if c.GetShiftSmoothOrder() >= c.GetShiftSmoothWindow() {
		return fmt.Errorf("shift_smooth_order (%d) must be less than shift_smooth_window (%d)",
			c.GetShiftSmoothOrder(), c.GetShiftSmoothWindow())
	}
	if c.GetSigmoidRatioSmoothOrder() >= c.GetSigmoidRatioSmoothWindow() {
		return fmt.Errorf("sigmoid_ratio_smooth_order (%d) must be less than sigmoid_ratio_smooth_window (%d)",
			c.GetSigmoidRatioSmoothOrder(), c.GetSigmoidRatioSmoothWindow())
	}
	if c.GetSigmoidDerivSmoothOrder() >= c.GetSigmoidDerivSmoothWindow() {
		return fmt.Errorf("sigmoid_deriv_smooth_order (%d) must be less than sigmoid_deriv_smooth_window (%d)",
			c.GetSigmoidDerivSmoothOrder(), c.GetSigmoidDerivSmoothWindow())
	}

	if c.HighSMPSWeight != nil && *c.HighSMPSWeight <= 0 {
		return fmt.Errorf("high_smps_weight must be positive, got %f", *c.HighSMPSWeight)
	}
	if c.HighCCNCWeight != nil && *c.HighCCNCWeight <= 0 {
		return fmt.Errorf("high_ccnc_weight must be positive, got %f", *c.HighCCNCWeight)
	}
	if c.ShiftWidenFraction != nil && (*c.ShiftWidenFraction < 0 || *c.ShiftWidenFraction > 1) {
		return fmt.Errorf("shift_widen_fraction must be between 0 and 1, got %f", *c.ShiftWidenFraction)
	}
	if c.ShiftWidenMin != nil && *c.ShiftWidenMin < 0 {
		return fmt.Errorf("shift_widen_min must be non-negative, got %d", *c.ShiftWidenMin)
	}

	if c.GetSigmoidMinDiameter() <= 0 || c.GetSigmoidMinDiameter() >= c.GetSigmoidMaxDiameter() {
		return fmt.Errorf("sigmoid diameter range [%g, %g] is invalid",
			c.GetSigmoidMinDiameter(), c.GetSigmoidMaxDiameter())
	}
	if c.GetSigmoidMinValidRatio() > c.GetSigmoidMaxValidRatio() {
		return fmt.Errorf("sigmoid ratio range [%g, %g] is invalid",
			c.GetSigmoidMinValidRatio(), c.GetSigmoidMaxValidRatio())
	}
	if c.SigmoidMaxPeaks != nil && *c.SigmoidMaxPeaks < 0 {
		return fmt.Errorf("sigmoid_max_peaks must be non-negative, got %d", *c.SigmoidMaxPeaks)
	}
	if c.SigmoidFitIterations != nil && *c.SigmoidFitIterations < 1 {
		return fmt.Errorf("sigmoid_fit_iterations must be positive, got %d", *c.SigmoidFitIterations)
	}
	if c.SigmoidMaxRetries != nil && *c.SigmoidMaxRetries < 0 {
		return fmt.Errorf("sigmoid_max_retries must be non-negative, got %d", *c.SigmoidMaxRetries)
	}
	if c.IQRMultiplier != nil && *c.IQRMultiplier < 0 {
		return fmt.Errorf("iqr_multiplier must be non-negative, got %f", *c.IQRMultiplier)
	}

	if c.ChargeCorrections != nil && *c.ChargeCorrections < 0 {
		return fmt.Errorf("charge_corrections must be non-negative, got %d", *c.ChargeCorrections)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	// Validate ScanFitTimeout can be parsed if set
	if c.ScanFitTimeout != nil && *c.ScanFitTimeout != "" {
		d, err := time.ParseDuration(*c.ScanFitTimeout)
		if err != nil {
			return fmt.Errorf("invalid scan_fit_timeout '%s': %w", *c.ScanFitTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("scan_fit_timeout must be non-negative, got %s", d)
		}
	}

	return nil
}

// GetShiftSmoothWindow returns the shift_smooth_window value or the default.
func (c *TuningConfig) GetShiftSmoothWindow() int {
	if c.ShiftSmoothWindow == nil {
		return 7
	}
	return *c.ShiftSmoothWindow
}

// GetShiftSmoothOrder returns the shift_smooth_order value or the default.
func (c *TuningConfig) GetShiftSmoothOrder() int {
	if c.ShiftSmoothOrder == nil {
		return 2
	}
	return *c.ShiftSmoothOrder
}

// GetHighSMPSWeight returns the high_smps_weight value or the default.
func (c *TuningConfig) GetHighSMPSWeight() float64 {
	if c.HighSMPSWeight == nil {
		return 1
	}
	return *c.HighSMPSWeight
}

// GetHighCCNCWeight returns the high_ccnc_weight value or the default.
func (c *TuningConfig) GetHighCCNCWeight() float64 {
	if c.HighCCNCWeight == nil {
		return 2.2
	}
	return *c.HighCCNCWeight
}

// GetShiftWidenFraction returns the shift_widen_fraction value or the default.
func (c *TuningConfig) GetShiftWidenFraction() float64 {
	if c.ShiftWidenFraction == nil {
		return 0.03
	}
	return *c.ShiftWidenFraction
}

// GetShiftWidenMin returns the shift_widen_min value or the default.
func (c *TuningConfig) GetShiftWidenMin() int {
	if c.ShiftWidenMin == nil {
		return 3
	}
	return *c.ShiftWidenMin
}

// GetShiftCloseSpan returns the shift_close_span value or the default.
func (c *TuningConfig) GetShiftCloseSpan() int {
	if c.ShiftCloseSpan == nil {
		return 4
	}
	return *c.ShiftCloseSpan
}

// GetShiftSentinelArea returns the shift_sentinel_area value or the default.
func (c *TuningConfig) GetShiftSentinelArea() float64 {
	if c.ShiftSentinelArea == nil {
		return 999999999999
	}
	return *c.ShiftSentinelArea
}

// GetSigmoidMinDiameter returns the sigmoid_min_diameter value or the default.
func (c *TuningConfig) GetSigmoidMinDiameter() float64 {
	if c.SigmoidMinDiameter == nil {
		return 9.0
	}
	return *c.SigmoidMinDiameter
}

// GetSigmoidMaxDiameter returns the sigmoid_max_diameter value or the default.
func (c *TuningConfig) GetSigmoidMaxDiameter() float64 {
	if c.SigmoidMaxDiameter == nil {
		return 200.0
	}
	return *c.SigmoidMaxDiameter
}

// GetSigmoidZeroCountThresh returns the sigmoid_zero_count_thresh value or the default.
func (c *TuningConfig) GetSigmoidZeroCountThresh() float64 {
	if c.SigmoidZeroCountThresh == nil {
		return 0.01
	}
	return *c.SigmoidZeroCountThresh
}

// GetSigmoidMinValidRatio returns the sigmoid_min_valid_ratio value or the default.
func (c *TuningConfig) GetSigmoidMinValidRatio() float64 {
	if c.SigmoidMinValidRatio == nil {
		return 0.0
	}
	return *c.SigmoidMinValidRatio
}

// GetSigmoidMaxValidRatio returns the sigmoid_max_valid_ratio value or the default.
func (c *TuningConfig) GetSigmoidMaxValidRatio() float64 {
	if c.SigmoidMaxValidRatio == nil {
		return 1.2
	}
	return *c.SigmoidMaxValidRatio
}

// GetSigmoidMinPeakProminence returns the sigmoid_min_peak_prominence value or the default.
func (c *TuningConfig) GetSigmoidMinPeakProminence() float64 {
	if c.SigmoidMinPeakProminence == nil {
		return 0.75
	}
	return *c.SigmoidMinPeakProminence
}

// GetSigmoidMinPeakWidth returns the sigmoid_min_peak_width value or the default.
func (c *TuningConfig) GetSigmoidMinPeakWidth() float64 {
	if c.SigmoidMinPeakWidth == nil {
		return 4
	}
	return *c.SigmoidMinPeakWidth
}

// GetSigmoidMaxPeaks returns the sigmoid_max_peaks value or the default.
func (c *TuningConfig) GetSigmoidMaxPeaks() int {
	if c.SigmoidMaxPeaks == nil {
		return 2
	}
	return *c.SigmoidMaxPeaks
}

// GetSigmoidRatioSmoothWindow returns the sigmoid_ratio_smooth_window value or the default.
func (c *TuningConfig) GetSigmoidRatioSmoothWindow() int {
	if c.SigmoidRatioSmoothWindow == nil {
		return 5
	}
	return *c.SigmoidRatioSmoothWindow
}

// GetSigmoidRatioSmoothOrder returns the sigmoid_ratio_smooth_order value or the default.
func (c *TuningConfig) GetSigmoidRatioSmoothOrder() int {
	if c.SigmoidRatioSmoothOrder == nil {
		return 1
	}
	return *c.SigmoidRatioSmoothOrder
}

// GetSigmoidDerivSmoothWindow returns the sigmoid_deriv_smooth_window value or the default.
func (c *TuningConfig) GetSigmoidDerivSmoothWindow() int {
	if c.SigmoidDerivSmoothWindow == nil {
		return 15
	}
	return *c.SigmoidDerivSmoothWindow
}

// GetSigmoidDerivSmoothOrder returns the sigmoid_deriv_smooth_order value or the default.
func (c *TuningConfig) GetSigmoidDerivSmoothOrder() int {
	if c.SigmoidDerivSmoothOrder == nil {
		return 2
	}
	return *c.SigmoidDerivSmoothOrder
}

// GetSigmoidFitIterations returns the sigmoid_fit_iterations value or the default.
func (c *TuningConfig) GetSigmoidFitIterations() int {
	if c.SigmoidFitIterations == nil {
		return 400
	}
	return *c.SigmoidFitIterations
}

// GetSigmoidLimitStep returns the sigmoid_limit_step value or the default.
func (c *TuningConfig) GetSigmoidLimitStep() float64 {
	if c.SigmoidLimitStep == nil {
		return 0.1
	}
	return *c.SigmoidLimitStep
}

// GetSigmoidMaxRetries returns the sigmoid_max_retries value or the default.
func (c *TuningConfig) GetSigmoidMaxRetries() int {
	if c.SigmoidMaxRetries == nil {
		return 5
	}
	return *c.SigmoidMaxRetries
}

// GetSigmoidExactInverse returns the sigmoid_exact_inverse value or the default.
func (c *TuningConfig) GetSigmoidExactInverse() bool {
	if c.SigmoidExactInverse == nil {
		return false // default: legacy Dp50 formula
	}
	return *c.SigmoidExactInverse
}

// GetIQRMultiplier returns the iqr_multiplier value or the default.
func (c *TuningConfig) GetIQRMultiplier() float64 {
	if c.IQRMultiplier == nil {
		return 1.25
	}
	return *c.IQRMultiplier
}

// GetChargeCorrections returns the charge_corrections value or the default.
func (c *TuningConfig) GetChargeCorrections() int {
	if c.ChargeCorrections == nil {
		return 8
	}
	return *c.ChargeCorrections
}

// GetEpsilon returns the epsilon value or the default.
func (c *TuningConfig) GetEpsilon() float64 {
	if c.Epsilon == nil {
		return 0.000001
	}
	return *c.Epsilon
}

// GetMinCCNCCount returns the min_ccnc_count value or the default.
func (c *TuningConfig) GetMinCCNCCount() float64 {
	if c.MinCCNCCount == nil {
		return 4
	}
	return *c.MinCCNCCount
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetScanFitTimeout parses and returns the ScanFitTimeout as a time.Duration.
// Zero disables the per-scan budget.
func (c *TuningConfig) GetScanFitTimeout() time.Duration {
	if c.ScanFitTimeout == nil || *c.ScanFitTimeout == "" {
		return 10 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ScanFitTimeout)
	if err != nil {
		return 10 * time.Second // default on parse error
	}
	return d
}
