// Package errors provides structured error types for vfdiscovery.
//
// Every failure that can reach the user carries a machine-readable [Code].
// Run-setup failures (missing manifest, no components, unreadable config)
// abort a run; item failures (missing release tag, upstream fetch errors)
// are recorded against the component that caused them.
//
// # Error Codes
//
//   - FILE_NOT_FOUND: a required manifest, lock or config file is absent
//   - NO_COMPONENTS_FOUND: the manifest declares no relevant dependencies
//   - MISSING_CONFIGURATION: a configuration value needed by an operation is unset
//   - FETCH_FAILURE: no upstream location served a named resource
//   - APP_ERROR: any other domain-level invariant violation
//
// # Usage
//
//	err := errors.New(errors.ErrCodeFetchFailure, "%s - could not fetch %s", name, resource)
//	if errors.Is(err, errors.ErrCodeFetchFailure) {
//	    // record against the item
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Run-setup errors
	ErrCodeFileNotFound       Code = "FILE_NOT_FOUND"
	ErrCodeNoComponentsFound  Code = "NO_COMPONENTS_FOUND"
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeInvalidPackage     Code = "INVALID_PACKAGE"
	ErrCodeInvalidProjectType Code = "INVALID_PROJECT_TYPE"

	// Item errors
	ErrCodeMissingConfiguration Code = "MISSING_CONFIGURATION"
	ErrCodeFetchFailure         Code = "FETCH_FAILURE"

	// Transport errors
	ErrCodeNetwork Code = "NETWORK_ERROR"

	// Generic errors
	ErrCodeApp      Code = "APP_ERROR"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// FileNotFound reports a missing required file.
func FileNotFound(path string) *Error {
	return New(ErrCodeFileNotFound, "file %s has not been found", path)
}

// MissingConfiguration reports configuration keys that must be set first.
func MissingConfiguration(keys ...string) *Error {
	return New(ErrCodeMissingConfiguration, "missing configuration: %s", strings.Join(keys, ", "))
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
