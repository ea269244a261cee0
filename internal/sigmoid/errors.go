package sigmoid

import (
	"errors"
	"fmt"
)

// Kind classifies a fit failure so callers can choose between retrying,
// reporting and marking the scan unfit.
type Kind int

const (
	KindUnsupportedPeaks Kind = iota + 1
	KindOverflow
	KindUnhandled
	KindNotConverged
	KindSingular
	KindInsufficientData
)

var (
	ErrUnsupportedPeaks = errors.New("unsupported peak configuration")
	ErrOverflow         = errors.New("exponential overflow")
	ErrUnhandled        = errors.New("unhandled floating-point fault")
	ErrNotConverged     = errors.New("fit did not converge")
	ErrSingular         = errors.New("singular parameters")
	ErrInsufficientData = errors.New("insufficient data")
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnsupportedPeaks:
		return ErrUnsupportedPeaks
	case KindOverflow:
		return ErrOverflow
	case KindUnhandled:
		return ErrUnhandled
	case KindNotConverged:
		return ErrNotConverged
	case KindSingular:
		return ErrSingular
	case KindInsufficientData:
		return ErrInsufficientData
	default:
		return nil
	}
}

func (k Kind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether widening the ratio limits may help.
func (k Kind) Retryable() bool {
	return k == KindNotConverged || k == KindOverflow || k == KindUnhandled
}

// FitError carries the failure kind plus the values a presentation layer
// needs to describe it.
type FitError struct {
	Kind   Kind
	Peak   int // peak number within the scan, -1 when the failure is scan wide
	Count  int // detected peak count
	Detail string
	Err    error
}

func (e *FitError) Error() string {
	msg := e.Kind.String()
	if e.Peak >= 0 {
		msg = fmt.Sprintf("%s on peak %d", msg, e.Peak)
	}
	if e.Kind == KindUnsupportedPeaks {
		msg = fmt.Sprintf("%s: %d peaks", msg, e.Count)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel of the error's kind.
func (e *FitError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func (e *FitError) Unwrap() error { return e.Err }

func newFitError(kind Kind, peak int, format string, args ...interface{}) *FitError {
	return &FitError{Kind: kind, Peak: peak, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first FitError in err's chain, or zero.
func KindOf(err error) Kind {
	var fe *FitError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
