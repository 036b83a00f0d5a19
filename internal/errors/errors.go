// Package errors carries ldash's user-facing failures: what failed, the
// underlying cause, and what to do about it.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Code classifies a failure. The transport, router and streams recover from
// every code; only the CLI turns them into an exit status.
type Code string

const (
	ErrConfig    Code = "CONFIG"
	ErrTransport Code = "TRANSPORT"
	ErrProbe     Code = "PROBE"
	ErrPayload   Code = "PAYLOAD"
	ErrAgent     Code = "AGENT"
	ErrSSH       Code = "SSH"
)

func (c Code) String() string { return string(c) }

// Error renders as:
//
//	✗ <what failed>
//
//	  <cause>
//
//	  <suggestion>
type Error struct {
	Code       Code
	Message    string
	Suggestion string
	Cause      error
}

func New(code Code, message, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion}
}

// WrapWithCode attaches cause to a new structured error.
func WrapWithCode(err error, code Code, message, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion, Cause: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✗ %s\n", e.Message)
	for _, extra := range []string{causeText(e.Cause), e.Suggestion} {
		if extra != "" {
			fmt.Fprintf(&b, "\n  %s\n", extra)
		}
	}
	return b.String()
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf returns the code of the outermost structured error in err's chain,
// or "" when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsTimeout reports whether anything in err's chain is a deadline: a
// context deadline, or a network error whose Timeout() is true (net, fasthttp
// and gorilla/websocket all expose one).
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// Short is the one-line form of err, without the failure symbol or the
// suggestion. Widget status lines and doctor results use it.
func Short(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}
