package apperrors

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates a required secret or setting is absent.
// It is fatal for the affected request and is never worked around silently.
type ConfigurationError struct {
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfiguration builds a ConfigurationError from a formatted message.
func NewConfiguration(message string, args ...interface{}) error {
	return &ConfigurationError{Err: fmt.Errorf(message, args...)}
}

// LookupError indicates a transport or query failure while reading the
// record store. It is distinct from ErrNotFound, which is a valid outcome.
type LookupError struct {
	Err error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *LookupError) Unwrap() error {
	return e.Err
}

// NewLookup wraps the given error as a LookupError, adding a message.
// It uses fmt.Errorf with %w to maintain the error chain.
func NewLookup(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &LookupError{Err: fmt.Errorf(format, allArgs...)}
}

// SendError indicates the messaging gateway rejected or failed an outbound
// send. Sends are not retried; the error propagates to the dispatch boundary.
type SendError struct {
	Err error
}

// Error implements the error interface.
func (e *SendError) Error() string {
	return fmt.Sprintf("send: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *SendError) Unwrap() error {
	return e.Err
}

// NewSend wraps the given error as a SendError, adding a message.
func NewSend(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &SendError{Err: fmt.Errorf(format, allArgs...)}
}

// LogWriteError indicates the transaction log append failed. The write is on
// the audit path, so this is a hard error for the request that caused it.
type LogWriteError struct {
	Err error
}

// Error implements the error interface.
func (e *LogWriteError) Error() string {
	return fmt.Sprintf("log write: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *LogWriteError) Unwrap() error {
	return e.Err
}

// NewLogWrite wraps the given error as a LogWriteError, adding a message.
func NewLogWrite(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &LogWriteError{Err: fmt.Errorf(format, allArgs...)}
}

// --- Standard Error Definitions ---

var (
	// ErrNotFound indicates a lookup matched no record. It is a terminal
	// outcome, not a failure: the caller logs an unmatched entry and stops.
	ErrNotFound = errors.New("record not found")
)

// --- Helper functions for checking ---

// IsConfiguration checks if the error is a ConfigurationError or wraps one.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsLookup checks if the error is a LookupError or wraps one.
func IsLookup(err error) bool {
	var target *LookupError
	return errors.As(err, &target)
}

// IsSend checks if the error is a SendError or wraps one.
func IsSend(err error) bool {
	var target *SendError
	return errors.As(err, &target)
}

// IsLogWrite checks if the error is a LogWriteError or wraps one.
func IsLogWrite(err error) bool {
	var target *LogWriteError
	return errors.As(err, &target)
}

// IsNotFound checks if the error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
