package recommend

import (
	"context"
	"errors"

	"github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/prediction"
)

// Kind classifies a failed recommendation.
type Kind string

const (
	KindDataUnavailable      Kind = "data_unavailable"
	KindInputConversion      Kind = "input_conversion"
	KindInsufficientEvidence Kind = "insufficient_evidence"
	KindUnexpected           Kind = "unexpected"
)

var (
	// ErrDataUnavailable wraps missing or corrupt datasets and model
	// artifacts.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInputConversion wraps request fields that are missing or not
	// numeric.
	ErrInputConversion = errors.New("invalid input")
	// ErrInsufficientEvidence is reported when no tier could price the
	// route.
	ErrInsufficientEvidence = errors.New("insufficient evidence")
	// ErrFeedbackUnsupported is returned when the prediction log backend
	// cannot store feedback.
	ErrFeedbackUnsupported = errors.New("feedback storage not configured")
)

// KindOf classifies err. Unknown errors are unexpected.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputConversion):
		return KindInputConversion
	case errors.Is(err, ErrInsufficientEvidence):
		return KindInsufficientEvidence
	case errors.Is(err, ErrDataUnavailable),
		errors.Is(err, dataset.ErrUnavailable),
		errors.Is(err, prediction.ErrInvalidModel):
		return KindDataUnavailable
	}
	return KindUnexpected
}

// Reported reports whether errors of kind k go to the monitoring hook.
// Cancelled requests are never reported.
func Reported(k Kind, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return k == KindUnexpected || k == KindDataUnavailable
}
