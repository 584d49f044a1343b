package errors

import (
	stderrors "errors"

	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code               // Machine-readable error code
	Message  string             // Internal message (for logs and responses)
	Metadata map[string]string  // Additional context
	Issues   []validation.Issue // Field-level findings for validation failures
	Cause    error              // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation creates a VALIDATION_FAILED error carrying every issue of the result,
// warnings included, so callers can render them next to the blocking errors.
func Validation(message string, result validation.Result) *Error {
	return &Error{
		Code:    CodeValidationFailed,
		Message: message,
		Issues:  result.Issues,
	}
}

// CodeOf extracts the code from an error chain, or CodeUnknown.
func CodeOf(err error) Code {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeUnknown
}

// IsCode reports whether any error in the chain carries code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// As extracts the domain error from an error chain.
func As(err error) (*Error, bool) {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}
