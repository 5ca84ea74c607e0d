// Package apperr defines the machine-readable error kinds returned to callers.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error code.
type Code string

const (
	CodeNotFound               Code = "NOT_FOUND"
	CodeSessionNotFound        Code = "SESSION_NOT_FOUND"
	CodeCycleNotFound          Code = "CYCLE_NOT_FOUND"
	CodeScheduleNotFound       Code = "SCHEDULE_NOT_FOUND"
	CodeChildNotFound          Code = "CHILD_NOT_FOUND"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodeConflict               Code = "CONFLICT"
	CodeForbidden              Code = "FORBIDDEN"
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeInternal               Code = "INTERNAL_ERROR"
)

// Error is a typed failure carrying a code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so errors.Is(err, apperr.New(code, "")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// New creates an Error.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around a cause.
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err is any of the not-found kinds.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case CodeNotFound, CodeSessionNotFound, CodeCycleNotFound, CodeScheduleNotFound, CodeChildNotFound:
		return true
	}
	return false
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
