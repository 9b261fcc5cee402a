// Package diag holds the structured errors produced while compiling, binding
// and rendering a report.
//
// Two classes exist. An Error is a validation problem that is accumulated in a
// List and never aborts processing on its own. A FatalError wraps the same
// payload but aborts the operation that produced it.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Message keys. They are stable identifiers a caller can translate.
const (
	MsgDuplicateParameter          = "errorMsgDuplicateParameter"
	MsgInvalidType                 = "errorMsgInvalidType"
	MsgInvalidNumber               = "errorMsgInvalidNumber"
	MsgInvalidDate                 = "errorMsgInvalidDate"
	MsgInvalidArray                = "errorMsgInvalidArray"
	MsgInvalidMap                  = "errorMsgInvalidMap"
	MsgMissingData                 = "errorMsgMissingData"
	MsgMissingExpression           = "errorMsgMissingExpression"
	MsgInvalidExpression           = "errorMsgInvalidExpression"
	MsgInvalidAvgSumExpression     = "errorMsgInvalidAvgSumExpression"
	MsgInvalidParameterData        = "errorMsgInvalidParameterData"
	MsgMissingParameter            = "errorMsgMissingParameter"
	MsgInvalidTestData             = "errorMsgInvalidTestData"
	MsgInvalidPosition             = "errorMsgInvalidPosition"
	MsgInvalidSize                 = "errorMsgInvalidSize"
	MsgInvalidPageSize             = "errorMsgInvalidPageSize"
	MsgInvalidStyle                = "errorMsgInvalidStyle"
	MsgInvalidColor                = "errorMsgInvalidColor"
	MsgInvalidImage                = "errorMsgInvalidImage"
	MsgInvalidImageSource          = "errorMsgInvalidImageSource"
	MsgInvalidImageSourceParameter = "errorMsgInvalidImageSourceParameter"
	MsgUnsupportedImageType        = "errorMsgUnsupportedImageType"
	MsgLoadingImageFailed          = "errorMsgLoadingImageFailed"
	MsgInvalidBarCode              = "errorMsgInvalidBarCode"
	MsgTooManyPages                = "errorMsgTooManyPages"
	MsgInvalidLocale               = "errorMsgInvalidLocale"
	MsgUnknownContainer            = "errorMsgUnknownContainer"
	MsgUnknownElementType          = "errorMsgUnknownElementType"
)

// MessageKeys lists every message key in a stable order.
var MessageKeys = []string{
	MsgDuplicateParameter, MsgInvalidType, MsgInvalidNumber, MsgInvalidDate, MsgInvalidArray,
	MsgInvalidMap, MsgMissingData, MsgMissingExpression, MsgInvalidExpression,
	MsgInvalidAvgSumExpression, MsgInvalidParameterData, MsgMissingParameter,
	MsgInvalidTestData, MsgInvalidPosition, MsgInvalidSize, MsgInvalidPageSize,
	MsgInvalidStyle, MsgInvalidColor, MsgInvalidImage, MsgInvalidImageSource,
	MsgInvalidImageSourceParameter, MsgUnsupportedImageType, MsgLoadingImageFailed,
	MsgInvalidBarCode, MsgTooManyPages, MsgInvalidLocale, MsgUnknownContainer,
	MsgUnknownElementType,
}

// Error describes one problem found in a report definition or its data.
type Error struct {
	ObjectID string `json:"object_id"`         // id of the parameter, style or element
	Field    string `json:"field"`             // offending field, e.g. "type", "position"
	MsgKey   string `json:"msg_key"`           // one of the Msg* constants
	Context  string `json:"context,omitempty"` // human context, usually a parameter name
	Info     string `json:"info,omitempty"`    // free form detail such as an underlying error
}

func (e Error) Error() string {
	var b strings.Builder
	b.WriteString(e.MsgKey)
	if e.ObjectID != "" {
		fmt.Fprintf(&b, " (object %s", e.ObjectID)
		if e.Field != "" {
			fmt.Fprintf(&b, ", field %s", e.Field)
		}
		b.WriteString(")")
	}
	if e.Context != "" {
		fmt.Fprintf(&b, ": %s", e.Context)
	}
	if e.Info != "" {
		fmt.Fprintf(&b, ": %s", e.Info)
	}
	return b.String()
}

// List accumulates errors in the order they were found. The zero value is
// ready to use. A List is not safe for concurrent use.
type List struct {
	errs []Error
}

// Add appends e.
func (l *List) Add(e Error) {
	l.errs = append(l.errs, e)
}

// Addf is shorthand for Add with the individual fields.
func (l *List) Addf(objectID, field, msgKey, context string) {
	l.Add(Error{ObjectID: objectID, Field: field, MsgKey: msgKey, Context: context})
}

// Len reports the number of accumulated errors.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.errs)
}

// Errors returns a copy of the accumulated errors.
func (l *List) Errors() []Error {
	if l == nil || len(l.errs) == 0 {
		return nil
	}
	out := make([]Error, len(l.errs))
	copy(out, l.errs)
	return out
}

// Err joins the accumulated errors into one error, or returns nil.
func (l *List) Err() error {
	if l.Len() == 0 {
		return nil
	}
	errs := make([]error, len(l.errs))
	for i, e := range l.errs {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Has reports whether an error with the given key was recorded.
func (l *List) Has(msgKey string) bool {
	if l == nil {
		return false
	}
	for _, e := range l.errs {
		if e.MsgKey == msgKey {
			return true
		}
	}
	return false
}

// FatalError aborts the operation that produced it.
type FatalError struct {
	Err   Error
	Cause error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// Fatal creates a FatalError.
func Fatal(objectID, field, msgKey, context string) *FatalError {
	return &FatalError{Err: Error{ObjectID: objectID, Field: field, MsgKey: msgKey, Context: context}}
}

// Fatalw creates a FatalError wrapping cause. The cause text is kept as Info.
func Fatalw(objectID, field, msgKey string, cause error) *FatalError {
	fe := &FatalError{Err: Error{ObjectID: objectID, Field: field, MsgKey: msgKey}, Cause: cause}
	if cause != nil {
		fe.Err.Info = cause.Error()
	}
	return fe
}

// AsFatal extracts a FatalError from err.
func AsFatal(err error) (*FatalError, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
