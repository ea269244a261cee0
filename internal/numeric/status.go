// Package numeric holds the array helpers shared by the shift estimator and
// the sigmoid engine: polynomial smoothing, padding, safe division, outlier
// rejection, run-length encoding and peak finding. Every function is pure and
// returns a new slice; inputs are never modified.
package numeric

import "math"

// Status tags the outcome of a guarded floating-point computation. Callers
// branch on it instead of relying on trap state or recovered panics.
type Status int

const (
	OK Status = iota
	Underflow
	Overflow
	NonFinite
	Shape
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Underflow:
		return "underflow"
	case Overflow:
		return "overflow"
	case NonFinite:
		return "non-finite"
	case Shape:
		return "shape"
	default:
		return "unknown"
	}
}

// Finite reports whether v is neither NaN nor ±Inf.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
