// Package apperr defines the named conditions the messaging core reports.
//
// Lower layers return an *AppError carrying both a coarse Code (which decides
// the HTTP status and whether a retry is sensible) and a Condition, the
// precise name the client shows ("AlreadyConnected", "NotConnected", ...).
package apperr

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code      Code   `json:"code"`
	Condition string `json:"error"`
	Message   string `json:"message"`
	Cause     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches on Condition so wrapped copies of a sentinel still compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Condition == t.Condition && e.Code == t.Code
}

// Constructors
func New(code Code, condition, message string) *AppError {
	return &AppError{Code: code, Condition: condition, Message: message}
}

func Wrap(code Code, condition, message string, cause error) *AppError {
	return &AppError{Code: code, Condition: condition, Message: message, Cause: cause}
}

func InvalidArg(condition, msg string) *AppError {
	return New(CodeInvalidArgument, condition, msg)
}

func NotFound(condition, msg string) *AppError {
	return New(CodeNotFound, condition, msg)
}

func AlreadyExists(condition, msg string) *AppError {
	return New(CodeAlreadyExists, condition, msg)
}

func Forbidden(condition, msg string) *AppError {
	return New(CodePermissionDenied, condition, msg)
}

func FailedPrecondition(condition, msg string) *AppError {
	return New(CodeFailedPrecondition, condition, msg)
}

func Unauthorized(msg string) *AppError {
	return New(CodeUnauthenticated, "Unauthenticated", msg)
}

func Internal(msg string, cause error) *AppError {
	return Wrap(CodeInternal, "Internal", msg, cause)
}

// Unavailable marks a transient infrastructure failure.
func Unavailable(msg string, cause error) *AppError {
	return Wrap(CodeUnavailable, "StoreUnavailable", msg, cause)
}

// From extracts the *AppError in err's chain. Anything else is reported as
// an internal error.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}

// CodeOf returns the class of err, CodeUnknown for nil.
func CodeOf(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	return From(err).Code
}

// IsRetryable reports whether err is a transient fault. State conflicts,
// authorization and validation failures are terminal.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeUnavailable
}
