package pipeline

import (
	"fmt"

	"github.com/banshee-data/ccnfit/internal/sigmoid"
)

// StatusCode says why a scan is or is not usable. Codes 0 to 9 keep the
// numbering of existing result sets; the fit codes follow.
type StatusCode int

const (
	StatusOK             StatusCode = 0
	StatusNoCCNC         StatusCode = 1
	StatusLengthMismatch StatusCode = 2
	StatusNoSMPSRef      StatusCode = 4
	StatusNoCCNCRef      StatusCode = 5
	StatusShiftedTooFar  StatusCode = 6
	StatusDisabled       StatusCode = 9

	StatusUnsupportedPeaks StatusCode = 10
	StatusOverflow         StatusCode = 11
	StatusUnhandled        StatusCode = 12
	StatusNotConverged     StatusCode = 13
	StatusSingular         StatusCode = 14
	StatusInsufficientData StatusCode = 15
	StatusFitTimeout       StatusCode = 16
)

var descriptions = map[StatusCode]string{
	StatusOK:               "The scan shows no problem.",
	StatusNoCCNC:           "There is no equivalent CCNC data for this scan.",
	StatusLengthMismatch:   "The length of SMPS data for this scan does not agree with the scan duration.",
	StatusNoSMPSRef:        "The reference point for SMPS data could not be located.",
	StatusNoCCNCRef:        "The reference point for CCNC data could not be located.",
	StatusShiftedTooFar:    "The scan does not have enough CCNC data after shifting.",
	StatusDisabled:         "The scan is manually disabled.",
	StatusUnsupportedPeaks: "The activation curve has an unsupported number of growth regions.",
	StatusOverflow:         "The sigmoid fit overflowed.",
	StatusUnhandled:        "The sigmoid fit hit a floating-point fault.",
	StatusNotConverged:     "The sigmoid fit did not converge.",
	StatusSingular:         "The fitted sigmoid cannot be inverted at 0.5.",
	StatusInsufficientData: "Too few valid rows to fit a sigmoid.",
	StatusFitTimeout:       "The sigmoid fit ran out of time.",
}

// Description returns the human-readable explanation of c.
func (c StatusCode) Description() string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return fmt.Sprintf("Unknown status code %d.", int(c))
}

// Status is the validity of one scan.
type Status struct {
	Valid       bool       `json:"valid"`
	Code        StatusCode `json:"code"`
	Description string     `json:"description"`
}

func newStatus(c StatusCode) Status {
	return Status{Valid: c == StatusOK, Code: c, Description: c.Description()}
}

// fitStatus maps a fit failure to its status code. The error text is kept
// in the description since it names the peak and the offending values.
func fitStatus(err error) Status {
	code := StatusNotConverged
	switch sigmoid.KindOf(err) {
	case sigmoid.KindUnsupportedPeaks:
		code = StatusUnsupportedPeaks
	case sigmoid.KindOverflow:
		code = StatusOverflow
	case sigmoid.KindUnhandled:
		code = StatusUnhandled
	case sigmoid.KindSingular:
		code = StatusSingular
	case sigmoid.KindInsufficientData:
		code = StatusInsufficientData
	}
	s := newStatus(code)
	s.Description = fmt.Sprintf("%s (%v)", s.Description, err)
	return s
}
