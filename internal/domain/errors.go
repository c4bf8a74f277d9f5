package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failure
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("timeout")

	// ErrFetchFailed indicates the backend recording list could not be obtained:
	// unreachable host, malformed document or failed compatibility check.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrIncompatibleVersion indicates the backend reported a version older than
	// the minimum supported one.
	ErrIncompatibleVersion = errors.New("incompatible backend version")

	// ErrFieldNotFound indicates a field path is absent from a recording record.
	ErrFieldNotFound = errors.New("field not found")
)

// RecordError describes a failure confined to a single recording.
type RecordError struct {
	Title string
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("recording %q: %s: %v", e.Title, e.Field, e.Err)
	}
	return fmt.Sprintf("recording %q: %v", e.Title, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Diagnostic is the client-facing form of a contained per-record failure.
type Diagnostic struct {
	Title   string `json:"title"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// DiagnosticFrom converts err into a Diagnostic. Errors that are not a
// *RecordError are reported without title or field.
func DiagnosticFrom(err error) Diagnostic {
	var rerr *RecordError
	if errors.As(err, &rerr) {
		return Diagnostic{Title: rerr.Title, Field: rerr.Field, Message: rerr.Err.Error()}
	}
	return Diagnostic{Message: err.Error()}
}
