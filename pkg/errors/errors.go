// Package errors provides structured error types for the uvmigrate application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the migration pipeline
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_FAILED: A migration step that could not complete
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDetection, "no supported format in %s", dir)
//	if errors.Is(err, errors.ErrCodeDetection) {
//	    // Handle detection failure
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFile, origErr, "failed to rename %s", path)
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
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Migration step failures
	ErrCodeDetection   Code = "DETECTION_FAILED"
	ErrCodeParse       Code = "PARSE_FAILED"
	ErrCodeTranslation Code = "TRANSLATION_FAILED"
	ErrCodeTool        Code = "TOOL_FAILED"
	ErrCodeFile        Code = "FILE_OPERATION_FAILED"
	ErrCodeAborted     Code = "ABORTED"

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

// ParseError reports a manifest that could not be parsed, with its location.
type ParseError struct {
	Path   string // File that failed to parse
	Line   int    // 1-based line number, 0 when the failure is not line-oriented
	Detail string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %s", e.Path, e.Line, e.Detail)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Detail)
}

// Code returns the error code for this error type.
func (e *ParseError) Code() Code {
	return ErrCodeParse
}

// ToolError reports a failed invocation of the uv executable.
type ToolError struct {
	Args   []string // Arguments passed to uv, without the binary name
	Stderr string   // Captured standard error output
	Err    error    // Underlying exec error (optional)
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	msg := fmt.Sprintf("command %q failed", strings.Join(append([]string{"uv"}, e.Args...), " "))
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		return fmt.Sprintf("%s: %s", msg, stderr)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// Code returns the error code for this error type.
func (e *ToolError) Code() Code {
	return ErrCodeTool
}

// TranslationError reports a version constraint that has no PEP 440 equivalent.
type TranslationError struct {
	Name  string // Package whose constraint failed (may be empty)
	Spec  string // Full constraint string
	Token string // Offending operator or token
}

// Error implements the error interface.
func (e *TranslationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("cannot translate constraint %q for %q: unsupported token %q", e.Spec, e.Name, e.Token)
	}
	return fmt.Sprintf("cannot translate constraint %q: unsupported token %q", e.Spec, e.Token)
}

// Code returns the error code for this error type.
func (e *TranslationError) Code() Code {
	return ErrCodeTranslation
}
