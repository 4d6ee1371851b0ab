package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error categories for the SSO proxy. Typed errors below unwrap to one of these
// so handlers can classify with Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrUpstream      = errors.New("upstream error")
	ErrUpstreamShape = errors.New("unexpected upstream response")
	ErrTransport     = errors.New("upstream transport error")
)

// ValidationError is a missing or malformed request field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation returns a ValidationError carrying a user facing message.
func Validation(message string) error {
	return &ValidationError{Message: message}
}

// UpstreamError is a non-2xx response from the vendor or an identity provider.
// StatusCode is forwarded to the caller unchanged.
type UpstreamError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// ShapeReason records why a 2xx upstream response could not be used.
type ShapeReason string

const (
	// ShapeMissingToken is a well formed body without a session token, which is
	// how the vendor reports a wrong or expired OTP.
	ShapeMissingToken ShapeReason = "missing_token"
	// ShapeMalformedBody is a body that is not a JSON object at all.
	ShapeMalformedBody ShapeReason = "malformed_body"
)

// UpstreamShapeError is a 2xx vendor response that did not carry what the
// operation needs.
type UpstreamShapeError struct {
	Reason  ShapeReason
	Message string
	Details json.RawMessage
}

func (e *UpstreamShapeError) Error() string {
	return fmt.Sprintf("upstream response %s: %s", e.Reason, e.Message)
}

func (e *UpstreamShapeError) Unwrap() error { return ErrUpstreamShape }

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single import.
func New(text string) error {
	return errors.New(text)
}
