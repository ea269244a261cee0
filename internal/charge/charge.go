// Package charge defines the contract of the multiple-charge correction
// routine and the fixed-point loop that drives it.
//
// The correction itself is an external numeric transform. The loop prepares
// the counts so the transform never divides by zero, then applies it a fixed
// number of times, each pass consuming and producing the same State.
package charge

import (
	"github.com/banshee-data/ccnfit/internal/config"
	"github.com/banshee-data/ccnfit/internal/numeric"
)

// State is the tuple threaded through every correction pass. All slices are
// the same length, one entry per diameter bin.
type State struct {
	Diameters []float64 // nm

	SMPS []float64
	CCNC []float64

	CorrectedSMPS []float64
	CorrectedCCNC []float64

	PrevSMPS []float64
	PrevCCNC []float64
}

// Corrector performs one correction pass.
type Corrector interface {
	Correct(State) State
}

// CorrectorFunc adapts a function to the Corrector interface.
type CorrectorFunc func(State) State

// Correct calls f(s).
func (f CorrectorFunc) Correct(s State) State { return f(s) }

// Passthrough is the identity corrector, for counts that were corrected
// before they reached this program.
type Passthrough struct{}

// Correct returns s unchanged.
func (Passthrough) Correct(s State) State { return s }

// Config controls count preparation and the number of passes.
type Config struct {
	Passes       int
	Epsilon      float64 // replaces zero and too-small counts
	MinCCNCCount float64 // CCNC counts below this are treated as empty
}

// DefaultConfig returns the correction configuration built from the in-code
// tuning defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Passes:       cfg.GetChargeCorrections(),
		Epsilon:      cfg.GetEpsilon(),
		MinCCNCCount: cfg.GetMinCCNCCount(),
	}
}

// Prepare builds the initial State: zero counts become epsilon, CCNC counts
// below the minimum become epsilon, and the corrected and previous slots
// start as copies of the prepared counts. The inputs are not modified.
func Prepare(diameters, smps, ccnc []float64, cfg Config) State {
	s := numeric.ResolveZeros(smps, cfg.Epsilon)
	c := numeric.ResolveSmallValues(numeric.ResolveZeros(ccnc, cfg.Epsilon), cfg.MinCCNCCount, cfg.Epsilon)
	return State{
		Diameters:     append([]float64(nil), diameters...),
		SMPS:          s,
		CCNC:          c,
		CorrectedSMPS: append([]float64(nil), s...),
		CorrectedCCNC: append([]float64(nil), c...),
		PrevSMPS:      append([]float64(nil), s...),
		PrevCCNC:      append([]float64(nil), c...),
	}
}

// Apply prepares the counts and runs cfg.Passes correction passes. A nil
// corrector behaves as Passthrough.
func Apply(c Corrector, diameters, smps, ccnc []float64, cfg Config) State {
	if c == nil {
		c = Passthrough{}
	}
	s := Prepare(diameters, smps, ccnc, cfg)
	for i := 0; i < cfg.Passes; i++ {
		s = c.Correct(s)
	}
	return s
}
