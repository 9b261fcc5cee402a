package docband

import (
	"errors"
	"fmt"
)

// Sentinel errors for report construction and rendering.
var (
	ErrNilDefinition = errors.New("docband: report definition is nil")
	ErrInvalidReport = errors.New("docband: report has validation errors")
)

// ReportError represents an error that occurred during a specific report
// operation. It wraps an underlying error and includes the operation name for
// context.
type ReportError struct {
	Op  string // operation name, e.g. "Compile", "GeneratePDF"
	Err error  // underlying error
}

func (e *ReportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("docband.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("docband.%s: unknown error", e.Op)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// newReportError creates a new ReportError wrapping the given error with
// operation context.
func newReportError(op string, err error) *ReportError {
	return &ReportError{Op: op, Err: err}
}
