// Package errors provides structured errors for netssh-go components.
// Every error carries a code for programmatic matching, a human message,
// and an optional suggestion with actionable next steps.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConnect    = "CONNECT"
	ErrIO         = "IO"
	ErrPattern    = "PATTERN"
	ErrPrompt     = "PROMPT"
	ErrConfig     = "CONFIG"
	ErrMode       = "MODE"
	ErrDeviceType = "DEVICE_TYPE"
	ErrAutodetect = "AUTODETECT"
	ErrSemaphore  = "SEMAPHORE"
	ErrCancelled  = "CANCELLED"
	ErrSettings   = "SETTINGS"
)

// ConnectKind distinguishes the failure phases of Connect.
type ConnectKind string

const (
	ConnectNetwork     ConnectKind = "network"
	ConnectAuth        ConnectKind = "auth"
	ConnectTimeout     ConnectKind = "timeout"
	ConnectChannelOpen ConnectKind = "channel_open"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
type Error struct {
	Code       string
	Kind       string // sub-kind within a code, e.g. a ConnectKind
	Message    string
	Suggestion string
	Cause      error

	// Buffer holds output accumulated before a pattern timeout, for diagnostics.
	Buffer string
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewConnect creates a connect error of the given kind.
func NewConnect(kind ConnectKind, message string, cause error) *Error {
	return &Error{
		Code:    ErrConnect,
		Kind:    string(kind),
		Message: message,
		Cause:   cause,
	}
}

// NewPatternTimeout creates a pattern timeout error carrying the accumulated
// buffer for diagnostics.
func NewPatternTimeout(pattern string, buffer string) *Error {
	return &Error{
		Code:    ErrPattern,
		Message: fmt.Sprintf("pattern %q not detected before deadline", pattern),
		Suggestion: "Increase the read timeout or adjust the expect pattern; " +
			"the prompt may differ from what session preparation captured.",
		Buffer: buffer,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(e.Code)
	if e.Kind != "" {
		b.WriteString("/" + e.Kind)
	}
	b.WriteString(": " + e.Message)

	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}

	if e.Suggestion != "" {
		b.WriteString("\n  " + e.Suggestion)
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var nErr *Error
	if errors.As(err, &nErr) {
		return nErr.Code == code
	}
	return false
}

// KindOf returns the Kind of a structured Error, or empty string.
func KindOf(err error) string {
	var nErr *Error
	if errors.As(err, &nErr) {
		return nErr.Kind
	}
	return ""
}

// CodeOf returns the code of a structured Error, or empty string.
func CodeOf(err error) string {
	var nErr *Error
	if errors.As(err, &nErr) {
		return nErr.Code
	}
	return ""
}
