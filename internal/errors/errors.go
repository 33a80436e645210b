package errors

import (
	"errors"
	"fmt"
)

// Exit codes for centic-ctl
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitNoTokens     = 2
	ExitConfigError  = 3
	ExitAPIError     = 4
	ExitMetricsError = 5
)

// CenticError is the base error type for centic-ctl
type CenticError struct {
	Code    int
	Message string
	Cause   error
}

func (e *CenticError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CenticError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *CenticError) ExitCode() int {
	return e.Code
}

// New creates a new CenticError
func New(code int, message string) *CenticError {
	return &CenticError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a CenticError
func Wrap(code int, message string, cause error) *CenticError {
	return &CenticError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// NoTokens returns an error for an empty or unreadable token file
func NoTokens(path string) *CenticError {
	return New(ExitNoTokens, fmt.Sprintf("no tokens found in %s", path))
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *CenticError {
	return Wrap(ExitConfigError, message, cause)
}

// APIError returns an error for a failed rewards API call that a command
// cannot recover from
func APIError(op string, cause error) *CenticError {
	return Wrap(ExitAPIError, fmt.Sprintf("%s failed", op), cause)
}

// MetricsError returns an error for the metrics listener
func MetricsError(message string, cause error) *CenticError {
	return Wrap(ExitMetricsError, message, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *CenticError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error. A nil error is
// ExitSuccess.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var centicErr *CenticError
	if errors.As(err, &centicErr) {
		return centicErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
