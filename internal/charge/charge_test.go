package charge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ccnfit/internal/config"
)

func TestPrepare(t *testing.T) {
	t.Parallel()

	cfg := Config{Passes: 8, Epsilon: 1e-6, MinCCNCCount: 4}
	d := []float64{10, 20, 30, 40}
	smps := []float64{0, 5, 10, 20}
	ccnc := []float64{0, 3, 4, 12}

	s := Prepare(d, smps, ccnc, cfg)

	assert.Equal(t, []float64{1e-6, 5, 10, 20}, s.SMPS)
	assert.Equal(t, []float64{1e-6, 1e-6, 4, 12}, s.CCNC)
	assert.Equal(t, s.SMPS, s.CorrectedSMPS)
	assert.Equal(t, s.CCNC, s.PrevCCNC)
	assert.Equal(t, d, s.Diameters)

	assert.Equal(t, []float64{0, 5, 10, 20}, smps, "input must not be modified")
	s.CorrectedSMPS[1] = 99
	assert.Equal(t, 5.0, s.SMPS[1], "slots must not alias")
}

func TestApply(t *testing.T) {
	t.Parallel()

	d := []float64{10, 20}
	smps := []float64{10, 20}
	ccnc := []float64{5, 10}

	t.Run("passes", func(t *testing.T) {
		calls := 0
		halve := CorrectorFunc(func(s State) State {
			calls++
			next := s
			next.PrevCCNC = s.CorrectedCCNC
			next.CorrectedCCNC = make([]float64, len(s.CorrectedCCNC))
			for i, v := range s.CorrectedCCNC {
				next.CorrectedCCNC[i] = v / 2
			}
			return next
		})

		got := Apply(halve, d, smps, ccnc, Config{Passes: 3, Epsilon: 1e-6, MinCCNCCount: 4})
		assert.Equal(t, 3, calls)
		if diff := cmp.Diff([]float64{0.625, 1.25}, got.CorrectedCCNC); diff != "" {
			t.Errorf("CorrectedCCNC mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []float64{1.25, 2.5}, got.PrevCCNC)
	})

	t.Run("nil_corrector", func(t *testing.T) {
		got := Apply(nil, d, smps, ccnc, DefaultConfig())
		assert.Equal(t, smps, got.CorrectedSMPS)
		assert.Equal(t, ccnc, got.CorrectedCCNC)
	})

	t.Run("zero_passes", func(t *testing.T) {
		got := Apply(CorrectorFunc(func(State) State {
			t.Fatal("corrector must not run")
			return State{}
		}), d, smps, ccnc, Config{Epsilon: 1e-6})
		assert.Equal(t, ccnc, got.CorrectedCCNC)
	})
}

func TestConfigFromTuning(t *testing.T) {
	t.Parallel()

	def := DefaultConfig()
	assert.Equal(t, Config{Passes: 8, Epsilon: 1e-6, MinCCNCCount: 4}, def)

	passes := 2
	cfg := ConfigFromTuning(&config.TuningConfig{ChargeCorrections: &passes})
	require.Equal(t, 2, cfg.Passes)
	assert.Equal(t, def.Epsilon, cfg.Epsilon)
}
