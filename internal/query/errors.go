package query

import (
	"errors"
	"fmt"
)

// Error represents a per-request query failure.
//
// Query errors include:
//   - Unknown parameter: name not present in the grammar
//   - Type mismatch: value doesn't coerce to the declared operand type
//   - Invalid pattern: malformed regex or date operand
//   - Store unavailable: query issued after the store was closed
//   - Execution: internal fault in the backing engine
//
// All query errors are recoverable per-request: they identify the
// offending parameter and never crash the process.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Param names the offending parameter, when one exists.
	Param string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause (optional).
	Err error
}

// ErrorCode categorizes query errors.
type ErrorCode string

const (
	// CodeUnknownParameter indicates a parameter name absent from the grammar.
	CodeUnknownParameter ErrorCode = "UNKNOWN_PARAMETER"

	// CodeTypeMismatch indicates a value that doesn't coerce to the
	// parameter's operand type.
	CodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// CodeInvalidPattern indicates a malformed regex or date operand.
	CodeInvalidPattern ErrorCode = "INVALID_PATTERN"

	// CodeStoreUnavailable indicates a query against a closed store.
	CodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"

	// CodeExecution indicates an internal fault during execution.
	CodeExecution ErrorCode = "EXECUTION_ERROR"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param=%s)", e.Code, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the error code from an error chain.
// Returns CodeExecution for errors that are not query errors.
func CodeOf(err error) ErrorCode {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return CodeExecution
}

// IsClientError reports whether the error is the caller's fault
// (unknown parameter, type mismatch, invalid pattern).
func IsClientError(err error) bool {
	switch CodeOf(err) {
	case CodeUnknownParameter, CodeTypeMismatch, CodeInvalidPattern:
		return true
	}
	return false
}

// NewUnknownParameterError creates an Error for an unrecognized name.
func NewUnknownParameterError(param string) *Error {
	return &Error{
		Code:    CodeUnknownParameter,
		Param:   param,
		Message: "parameter not recognized by table grammar",
	}
}

// NewTypeMismatchError creates an Error for a value that failed coercion.
func NewTypeMismatchError(param string, value any, want string) *Error {
	return &Error{
		Code:    CodeTypeMismatch,
		Param:   param,
		Message: fmt.Sprintf("value %v does not coerce to %s", value, want),
	}
}

// NewInvalidPatternError creates an Error for a malformed regex or date
// operand.
func NewInvalidPatternError(param, pattern string, cause error) *Error {
	return &Error{
		Code:    CodeInvalidPattern,
		Param:   param,
		Message: fmt.Sprintf("invalid pattern %q", pattern),
		Err:     cause,
	}
}

// NewStoreUnavailableError creates an Error for a query after close.
func NewStoreUnavailableError() *Error {
	return &Error{
		Code:    CodeStoreUnavailable,
		Message: "store is closed",
	}
}

// NewExecutionError wraps an internal execution fault.
func NewExecutionError(cause error) *Error {
	return &Error{
		Code:    CodeExecution,
		Message: "query execution failed",
		Err:     cause,
	}
}
