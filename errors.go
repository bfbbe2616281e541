package devicetest

import (
	"errors"
	"fmt"
	"time"
)

// RuntimeError represents an operational error: bad configuration, a failed
// collaborator call, a malformed payload. It maps to exitcodes.RuntimeErr.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError reports a completed run in which specs failed
type TestFailureError struct {
	Failed  int
	Message string
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %d failed: %s", e.Failed, e.Message)
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(failed int, message string) *TestFailureError {
	return &TestFailureError{Failed: failed, Message: message}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// ManifestError is returned when the served manifest does not describe the
// expected artifact
type ManifestError struct {
	Expected string
	Got      string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("bad name in manifest: expected %q, got %q", e.Expected, e.Got)
}

// MarkerTimeoutError is returned when a marker is not seen in time
type MarkerTimeoutError struct {
	Marker  string
	Timeout time.Duration
}

func (e *MarkerTimeoutError) Error() string {
	return fmt.Sprintf("marker %q not seen within %v", e.Marker, e.Timeout)
}
