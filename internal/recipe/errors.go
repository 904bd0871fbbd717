package recipe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies analysis failures.
type ErrorCode string

const (
	// ErrCodeMalformedDocument marks a violation of the heading/bullet layout.
	ErrCodeMalformedDocument ErrorCode = "MALFORMED_DOCUMENT"
	// ErrCodeMissingSection is a malformed document lacking a required heading.
	ErrCodeMissingSection ErrorCode = "MISSING_SECTION"
	// ErrCodeExtractionAmbiguous marks a quantity line that could not be bounded.
	// It is only ever reported as a warning.
	ErrCodeExtractionAmbiguous ErrorCode = "EXTRACTION_AMBIGUOUS"
	// ErrCodeIOFailure marks an unreadable document or unwritable output.
	ErrCodeIOFailure ErrorCode = "IO_FAILURE"
)

// Sentinels for errors.Is.
var (
	ErrMalformedDocument   = &Error{Code: ErrCodeMalformedDocument, Message: "malformed document"}
	ErrMissingSection      = &Error{Code: ErrCodeMissingSection, Message: "missing section"}
	ErrExtractionAmbiguous = &Error{Code: ErrCodeExtractionAmbiguous, Message: "ambiguous extraction"}
	ErrIOFailure           = &Error{Code: ErrCodeIOFailure, Message: "io failure"}
)

// Error is a classified failure tied to one document.
type Error struct {
	Code     ErrorCode
	Document string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", e.Code)
	if e.Document != "" {
		b.WriteString(e.Document)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on code. A missing section also counts as a malformed document.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == ErrCodeMalformedDocument && e.Code == ErrCodeMissingSection
}

// Malformed builds a MALFORMED_DOCUMENT error.
func Malformed(doc, format string, args ...any) *Error {
	return &Error{Code: ErrCodeMalformedDocument, Document: doc, Message: fmt.Sprintf(format, args...)}
}

// MissingSection builds a MISSING_SECTION error for kind.
func MissingSection(doc string, kind SectionKind) *Error {
	return &Error{
		Code:     ErrCodeMissingSection,
		Document: doc,
		Message:  fmt.Sprintf("required section %q not found", kind.String()),
	}
}

// Ambiguous builds an EXTRACTION_AMBIGUOUS warning for a source line.
func Ambiguous(line, reason string) *Error {
	return &Error{Code: ErrCodeExtractionAmbiguous, Message: fmt.Sprintf("%s: %q", reason, line)}
}

// IOFailure wraps cause as an IO_FAILURE.
func IOFailure(doc, message string, cause error) *Error {
	return &Error{Code: ErrCodeIOFailure, Document: doc, Message: message, Cause: cause}
}

// WithDocument fills in the document of a classified error that lacks one.
func WithDocument(err error, doc string) error {
	var e *Error
	if !errors.As(err, &e) || e.Document != "" {
		return err
	}
	c := *e
	c.Document = doc
	return &c
}

// CodeOf returns the classification of err, or "" when it has none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
