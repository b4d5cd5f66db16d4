package controller

import (
	"errors"
	"fmt"
)

// Selection errors.
var (
	ErrNoMonitor = errors.New("selected monitor is not attached")
	ErrNoPort    = errors.New("no serial port selected")
)

// Error is a controller failure with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeAcquisitionFailed = "ACQUISITION_FAILED"
	ErrCodeTransportFailed   = "TRANSPORT_FAILED"
	ErrCodeCaptureFailed     = "CAPTURE_FAILED"
	ErrCodeAlreadyRunning    = "ALREADY_RUNNING"
	ErrCodeInvalidSelection  = "INVALID_SELECTION"
)

// NewError creates a new controller error.
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether err is an *Error carrying code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
