package shift

import "github.com/banshee-data/ccnfit/internal/config"

// Config holds the empirically tuned constants of the estimator. None of
// these values are derived; keep them overridable rather than "fixing" them.
type Config struct {
	SmoothWindow int // Savitzky-Golay window applied to both series
	SmoothOrder  int

	HighSMPSWeight float64 // weight where SMPS sits above CCNC
	HighCCNCWeight float64 // weight where CCNC sits above SMPS

	WidenFraction float64 // SMPS window widening as a fraction of series length
	WidenMin      int     // lower bound on the widening, in samples
	CloseSpan     int     // peak-to-peak spans closer than this add extra iterations

	SentinelArea float64 // area recorded when the first iteration fails
}

// DefaultConfig returns the estimator configuration built from the in-code
// tuning defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		SmoothWindow:   cfg.GetShiftSmoothWindow(),
		SmoothOrder:    cfg.GetShiftSmoothOrder(),
		HighSMPSWeight: cfg.GetHighSMPSWeight(),
		HighCCNCWeight: cfg.GetHighCCNCWeight(),
		WidenFraction:  cfg.GetShiftWidenFraction(),
		WidenMin:       cfg.GetShiftWidenMin(),
		CloseSpan:      cfg.GetShiftCloseSpan(),
		SentinelArea:   cfg.GetShiftSentinelArea(),
	}
}
