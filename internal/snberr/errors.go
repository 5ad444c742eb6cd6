// Package snberr provides the error kinds of the data-grid/selection
// engine: InvariantViolation, InsufficientMemory, InsufficientDiskSpace,
// IOError, Cancelled, Configuration.
package snberr

import (
	"errors"
	"fmt"
)

// Code identifies an error kind.
type Code string

const (
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
	CodeInsufficientMemory Code = "INSUFFICIENT_MEMORY"
	CodeInsufficientDisk   Code = "INSUFFICIENT_DISK_SPACE"
	CodeIOError            Code = "IO_ERROR"
	CodeCancelled          Code = "CANCELLED"
	CodeConfiguration      Code = "CONFIGURATION"
)

// Error is a coded, context-carrying error.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches a key/value to the error for diagnostics.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an existing error.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// InvariantViolation reports a broken structural precondition,
// identifying the offending entity by name and index.
func InvariantViolation(entity string, index int, message string) *Error {
	return New(CodeInvariantViolation, fmt.Sprintf("%s[%d]: %s", entity, index, message))
}

func isCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func IsInvariantViolation(err error) bool { return isCode(err, CodeInvariantViolation) }
func IsInsufficientMemory(err error) bool { return isCode(err, CodeInsufficientMemory) }
func IsInsufficientDisk(err error) bool   { return isCode(err, CodeInsufficientDisk) }
func IsIOError(err error) bool            { return isCode(err, CodeIOError) }
func IsCancelled(err error) bool          { return isCode(err, CodeCancelled) }
func IsConfiguration(err error) bool      { return isCode(err, CodeConfiguration) }

// IsRecoverable reports whether the training driver should downgrade
// gracefully (null model) rather than treat the error as a programmer bug.
func IsRecoverable(err error) bool {
	return IsInsufficientMemory(err) || IsInsufficientDisk(err) || IsIOError(err) || IsCancelled(err)
}
