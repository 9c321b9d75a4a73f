// Package errors provides structured error types for the diagram editor.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the editor loop and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly status messages
//
// # Error Codes
//
// Codes map onto the error kinds of the scene model:
//   - INVARIANT_VIOLATION: an operation would leave the scene inconsistent
//   - UNKNOWN_ENTITY: an operation named a dead or never-created entity
//   - DOCUMENT_*: a persisted model could not be parsed or resolved
//   - DIALOG_CANCELLED: the user dismissed a file dialog
//   - IO_FAILURE: reading or writing the document failed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvariantViolation, "system %d already has a boundary", id)
//	if errors.Is(err, errors.ErrCodeInvariantViolation) {
//	    // operation was refused, scene is unchanged
//	}
//
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Scene errors
	ErrCodeInvariantViolation Code = "INVARIANT_VIOLATION"
	ErrCodeUnknownEntity      Code = "UNKNOWN_ENTITY"

	// Document errors
	ErrCodeDocumentParse     Code = "DOCUMENT_PARSE"
	ErrCodeDocumentReference Code = "DOCUMENT_REFERENCE"

	// File import errors
	ErrCodeDialogCancelled Code = "DIALOG_CANCELLED"
	ErrCodeIO              Code = "IO_FAILURE"

	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// ReferenceError reports an Id in a document that resolves to no element.
// Loading skips the offending record and collects these as warnings.
type ReferenceError struct {
	Record string // Which record holds the reference, e.g. "interaction"
	Id     string // The unresolved Id, formatted
}

// Error implements the error interface.
func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s references unknown id %s", e.Record, e.Id)
}

// Code returns the error code for this error type.
func (e *ReferenceError) Code() Code {
	return ErrCodeDocumentReference
}
