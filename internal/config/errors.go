package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Error reports a configuration problem. It is always fatal.
type Error struct {
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return "config: " + msg
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidConfig, e.Cause}
	}
	return []error{ErrInvalidConfig}
}

func newError(field, message string) *Error {
	return &Error{Field: field, Message: message}
}
