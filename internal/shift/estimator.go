// Package shift estimates the integer sample offset that registers a CCNC
// count series onto the SMPS series of the same scan.
//
// The estimator locates the two dominant peaks of each smoothed series (one
// per half of the scan), slides a CCNC window of the peak-to-peak length
// across a widened SMPS window and picks the offset with the smallest
// weighted area between the curves. It never returns an error: malformed
// input and numeric failures degrade to a zero or carried-forward result
// plus diagnostic messages, so one bad scan cannot abort a batch.
package shift

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/ccnfit/internal/monitoring"
	"github.com/banshee-data/ccnfit/internal/numeric"
)

var shiftLog = monitoring.Component("shift")

// Result is the outcome of one estimate. Shift is positive when CCNC lags
// SMPS and must be advanced.
type Result struct {
	Shift    int
	Messages []string
	// Usable is false when the estimate fell back to zero because the data
	// could not be searched at all.
	Usable bool
	// NoSMPSRef marks an unusable result caused by the SMPS series: it is
	// empty, all zero, or too short for the scan up time.
	NoSMPSRef bool
}

// Estimate returns the shift for one scan. scanUpTime splits the series into
// its up and down halves; referenceShift offsets the CCNC peak windows and is
// normally the median of a first pass over all scans.
func Estimate(smps, ccnc []float64, scanUpTime, referenceShift int, cfg Config) Result {
	switch {
	case len(smps) == 0:
		return noSMPSRef("Empty SMPS and/or CCNC data")
	case len(ccnc) == 0:
		return noData("Empty SMPS and/or CCNC data")
	case floats.Sum(smps) == 0:
		return noSMPSRef("No SMPS and/or CCNC data")
	case floats.Sum(ccnc) == 0:
		return noData("No SMPS and/or CCNC data")
	case scanUpTime <= 0 || scanUpTime >= len(smps):
		return noSMPSRef(fmt.Sprintf("Scan up time %d outside SMPS data of length %d", scanUpTime, len(smps)))
	case len(smps) > len(ccnc):
		return noData("SMPS data longer than CCNC data")
	}

	s := numeric.SmoothOrKeep(smps, cfg.SmoothWindow, cfg.SmoothOrder)
	c := numeric.SmoothOrKeep(ccnc, cfg.SmoothWindow, cfg.SmoothOrder)

	smpsFirst := numeric.Argmax(s[:scanUpTime])
	smpsNext := numeric.Argmax(s[scanUpTime:]) + scanUpTime

	ccncFirst, ok := argmaxIn(c, referenceShift, referenceShift+scanUpTime)
	if !ok {
		return noData(fmt.Sprintf("No CCNC data in up window with reference shift %d", referenceShift))
	}
	ccncNext, ok := argmaxIn(c, referenceShift+scanUpTime, len(c))
	if !ok {
		return noData(fmt.Sprintf("No CCNC data in down window with reference shift %d", referenceShift))
	}

	widen := int(float64(len(s)) * cfg.WidenFraction)
	if widen < cfg.WidenMin {
		widen = cfg.WidenMin
	}
	smpsFirst -= widen
	smpsNext += widen

	dataLength := ccncNext - ccncFirst
	smpsSpan := smpsNext - smpsFirst
	maxIter := smpsSpan - dataLength + 1
	extra := cfg.CloseSpan - absInt(dataLength-smpsSpan)
	if extra < 0 {
		extra = 0
	}
	maxIter += extra

	var (
		messages []string
		areas    = make([]float64, 0, max(maxIter, 0))
	)
	ccncWin, ccncOK := window(c, ccncFirst, dataLength)
	for i := 0; i < maxIter; i++ {
		start := i + smpsFirst - extra
		smpsWin, smpsOK := window(s, start, dataLength)

		var (
			area   float64
			status = numeric.Shape
		)
		if smpsOK && ccncOK {
			area, status = WeightedArea(smpsWin, ccncWin, cfg.HighSMPSWeight, cfg.HighCCNCWeight)
		}
		if status == numeric.OK {
			areas = append(areas, area)
			continue
		}

		msg := fmt.Sprintf("Shift issue on iteration %d (%s in window [%d, %d))", i, status, start, start+dataLength)
		if len(areas) == 0 {
			areas = append(areas, cfg.SentinelArea)
			msg += " [set to 9's]"
		} else {
			areas = append(areas, areas[len(areas)-1])
			msg += " [set to prior value]"
		}
		shiftLog("%s", msg)
		messages = append(messages, msg)
	}

	if len(areas) == 0 {
		messages = append(messages, fmt.Sprintf("No shift iterations for peak spans %d and %d", smpsSpan, dataLength))
		return Result{Shift: 0, Messages: messages}
	}
	return Result{
		Shift:    ccncFirst - smpsFirst - numeric.Argmin(areas),
		Messages: messages,
		Usable:   true,
	}
}

func noData(msg string) Result {
	return Result{Shift: 0, Messages: []string{msg}}
}

func noSMPSRef(msg string) Result {
	r := noData(msg)
	r.NoSMPSRef = true
	return r
}

// argmaxIn returns the index in x of the first maximum within [from, to),
// with the bounds clamped to x.
func argmaxIn(x []float64, from, to int) (int, bool) {
	from = max(from, 0)
	to = min(to, len(x))
	if from >= to {
		return 0, false
	}
	return numeric.Argmax(x[from:to]) + from, true
}

// window returns x[start:start+n] when the whole range lies inside x.
func window(x []float64, start, n int) ([]float64, bool) {
	if start < 0 || n < 0 || start+n > len(x) {
		return nil, false
	}
	return x[start : start+n], true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
