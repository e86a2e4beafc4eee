package extract

import (
	"errors"
	"fmt"
	"time"

	"github.com/joseph-ayodele/clinical-notes/constants"
)

var (
	// ErrExtractionFailed is the sentinel behind Result.Err.
	ErrExtractionFailed = errors.New("extraction failed")
	ErrUnsupportedKind  = errors.New("unsupported kind")
)

// Result is either Text (possibly empty) or Failure(reason).
// Kind, Method, Pages and Duration are diagnostics only.
type Result struct {
	Text   string
	Reason string

	Kind     constants.DocumentKind
	Method   string // "plain-text" | "pdf-text" | "pdf-ocr" | "image-ocr"
	Pages    int
	Duration time.Duration

	failed bool
	cause  error
}

func Text(s string) Result {
	return Result{Text: s}
}

func Failure(reason string) Result {
	return Result{Reason: reason, failed: true}
}

// FailureFrom records err as the failure reason and keeps it for errors.Is.
func FailureFrom(err error) Result {
	return Result{Reason: err.Error(), failed: true, cause: err}
}

func Failuref(format string, args ...any) Result {
	return FailureFrom(fmt.Errorf(format, args...))
}

func (r Result) Failed() bool { return r.failed }

// Err is nil for Text results. For failures it wraps ErrExtractionFailed
// and, when known, the underlying cause.
func (r Result) Err() error {
	if !r.failed {
		return nil
	}
	if r.cause != nil {
		return fmt.Errorf("%w: %w", ErrExtractionFailed, r.cause)
	}
	return fmt.Errorf("%w: %s", ErrExtractionFailed, r.Reason)
}
