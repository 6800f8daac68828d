package domain

import (
	"errors"
	"fmt"
)

// Error codes surfaced to clients. The kiosk and admin frontends branch on
// these strings, so they are stable.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeAlreadyHeld    = "ALREADY_HELD"
	CodeNotQualified   = "NOT_QUALIFIED"
	CodeNotCheckedIn   = "NOT_CHECKED_IN"
	CodeNoActiveLockup = "NO_ACTIVE_LOCKUP"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeLockupHeld     = "LOCKUP_HELD"
	CodeBadRequest     = "BAD_REQUEST"
	CodeValidation     = "VALIDATION_ERROR"
)

// Error is a domain error with a machine-readable code, the HTTP status it
// maps to at the transport boundary, and a human-readable message.
type Error struct {
	Code    string
	Status  int
	Message string
	Details interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsError unwraps err into a *Error if it is one.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Status: 404, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Code: CodeConflict, Status: 409, Message: fmt.Sprintf(format, args...)}
}

func AlreadyHeld(format string, args ...interface{}) *Error {
	return &Error{Code: CodeAlreadyHeld, Status: 409, Message: fmt.Sprintf(format, args...)}
}

func NotQualified(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotQualified, Status: 403, Message: fmt.Sprintf(format, args...)}
}

func NotCheckedIn(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotCheckedIn, Status: 400, Message: fmt.Sprintf(format, args...)}
}

// NoActiveLockup is 400 on transfer and 404 on release; callers pick the status.
func NoActiveLockup(status int, format string, args ...interface{}) *Error {
	return &Error{Code: CodeNoActiveLockup, Status: status, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Code: CodeUnauthorized, Status: 400, Message: fmt.Sprintf(format, args...)}
}

// LockupHeld blocks a normal checkout by the responsibility holder. Details
// carry the checkout options so the kiosk can render the choice screen.
func LockupHeld(message string, details interface{}) *Error {
	return &Error{Code: CodeLockupHeld, Status: 403, Message: message, Details: details}
}

func BadRequest(format string, args ...interface{}) *Error {
	return &Error{Code: CodeBadRequest, Status: 400, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidation, Status: 400, Message: fmt.Sprintf(format, args...)}
}
