package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Code classifies an error and maps it to an http status
type Code int

const (
	Internal     Code = http.StatusInternalServerError
	NotFound     Code = http.StatusNotFound
	Forbidden    Code = http.StatusForbidden
	Unauthorized Code = http.StatusUnauthorized
	Validation   Code = http.StatusBadRequest
	Unavailable  Code = http.StatusServiceUnavailable
)

// Error is a custom error
type Error struct {
	Code     Code     `json:"code"`
	Messages []string `json:"messages"`
	Err      error    `json:"-"`
}

// Error returns the messages (outermost first) followed by the underlying cause
func (e *Error) Error() string {
	var parts []string
	for i := len(e.Messages) - 1; i >= 0; i-- {
		parts = append(parts, e.Messages[i])
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return http.StatusText(int(e.Code))
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the code and messages as a json string
func (e *Error) JSON() string {
	bits, _ := json.Marshal(e)
	return string(bits)
}

// RemoveError removes the error from the Error and leaves it's messages and code
func (e *Error) RemoveError() *Error {
	return &Error{
		Code:     e.Code,
		Messages: e.Messages,
		Err:      nil,
	}
}

// New creates a new error with the given code and formatted message
func New(code Code, msg string, args ...any) error {
	return &Error{
		Code:     code,
		Messages: []string{fmt.Sprintf(msg, args...)},
	}
}

// Extract extracts the custom Error from the given error
func Extract(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return &Error{
		Code:     0,
		Messages: nil,
		Err:      err,
	}
}

// CodeOf returns the code of the error or Internal if the error carries no code
func CodeOf(err error) Code {
	if e := Extract(err); e.Code > 0 {
		return e.Code
	}
	return Internal
}

// Wrap wraps the given error and returns a new one. Wrapping a nil error returns nil.
func Wrap(err error, code Code, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if ok {
		if msg != "" {
			e.Messages = append(e.Messages, fmt.Sprintf(msg, args...))
		}
		if code > 0 {
			e.Code = code
		}
		return e
	}
	e = &Error{
		Code: code,
		Err:  err,
	}
	if msg != "" {
		e.Messages = append(e.Messages, fmt.Sprintf(msg, args...))
	}
	return e
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
