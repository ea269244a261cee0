// Package testutil provides shared test utilities and synthetic scan
// fixtures.
//
// Fixtures are noise free and deterministic so tests can assert recovered
// values against the generators.
package testutil

import (
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertClose fails the test if got is further than tol from want.
func AssertClose(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v ± %v", name, got, want, tol)
	}
}

// GeometricDiameters returns n bin diameters starting at start (nm), each
// exp(logStep) times the previous, as an SMPS reports them.
func GeometricDiameters(n int, start, logStep float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start * math.Exp(logStep*float64(i))
	}
	return out
}

// StandardDiameters is the 98-bin grid from 10 nm to about 184 nm used by
// the fit tests.
func StandardDiameters() []float64 {
	return GeometricDiameters(98, 10, 0.03)
}

// Step is one logistic component of a synthetic activation curve.
type Step struct {
	Dp       float64 // nm at the midpoint of the rise
	CurveMax float64
	K        float64
	Y0       float64
}

// Value evaluates the step at a diameter in nm.
func (s Step) Value(d float64) float64 {
	return s.CurveMax/(1+math.Exp(-s.K*(math.Log(d)-math.Log(s.Dp)))) + s.Y0
}

// ActivationScan returns corrected CCNC and SMPS counts whose ratio is the
// sum of the given steps at every diameter. SMPS is a constant count.
func ActivationScan(diameters []float64, steps ...Step) (ccnc, smps []float64) {
	const count = 1000.0
	ccnc = make([]float64, len(diameters))
	smps = make([]float64, len(diameters))
	for i, d := range diameters {
		var r float64
		for _, s := range steps {
			r += s.Value(d)
		}
		ccnc[i] = r * count
		smps[i] = count
	}
	return ccnc, smps
}
