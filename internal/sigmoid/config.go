package sigmoid

import "github.com/banshee-data/ccnfit/internal/config"

// Config holds the segmentation and fit constants. The values were tuned on
// instrument data and are kept overridable rather than derived.
type Config struct {
	// Measurement table filters
	MinDiameter     float64 // nm
	MaxDiameter     float64 // nm
	ZeroCountThresh float64 // counts below this floor the ratio to 0
	MinValidRatio   float64
	MaxValidRatio   float64

	// Derivative peak detection
	MinPeakProminence float64
	MinPeakWidth      float64 // samples, measured at half prominence
	MaxPeaks          int     // 0 = any count of two or more
	RatioSmoothWindow int
	RatioSmoothOrder  int
	DerivSmoothWindow int
	DerivSmoothOrder  int

	// Fit and retry
	FitIterations int
	LimitStep     float64 // ratio limit widening per retry, each side
	MaxRetries    int
	ExactInverse  bool // Dp50 from the algebraic inverse instead of the legacy formula
}

// DefaultConfig returns the engine configuration built from the in-code
// tuning defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		MinDiameter:       cfg.GetSigmoidMinDiameter(),
		MaxDiameter:       cfg.GetSigmoidMaxDiameter(),
		ZeroCountThresh:   cfg.GetSigmoidZeroCountThresh(),
		MinValidRatio:     cfg.GetSigmoidMinValidRatio(),
		MaxValidRatio:     cfg.GetSigmoidMaxValidRatio(),
		MinPeakProminence: cfg.GetSigmoidMinPeakProminence(),
		MinPeakWidth:      cfg.GetSigmoidMinPeakWidth(),
		MaxPeaks:          cfg.GetSigmoidMaxPeaks(),
		RatioSmoothWindow: cfg.GetSigmoidRatioSmoothWindow(),
		RatioSmoothOrder:  cfg.GetSigmoidRatioSmoothOrder(),
		DerivSmoothWindow: cfg.GetSigmoidDerivSmoothWindow(),
		DerivSmoothOrder:  cfg.GetSigmoidDerivSmoothOrder(),
		FitIterations:     cfg.GetSigmoidFitIterations(),
		LimitStep:         cfg.GetSigmoidLimitStep(),
		MaxRetries:        cfg.GetSigmoidMaxRetries(),
		ExactInverse:      cfg.GetSigmoidExactInverse(),
	}
}

// widened returns a copy with the valid ratio range opened by attempt
// steps on each side.
func (c Config) widened(attempt int) Config {
	d := c.LimitStep * float64(attempt)
	c.MinValidRatio -= d
	c.MaxValidRatio += d
	return c
}
