package voicerelay

import (
	"errors"
	"fmt"
)

// Common error variables
var (
	// ErrClosed is returned when attempting to use a relay that has been
	// shut down.
	ErrClosed = errors.New("voicerelay: relay is closed")

	// ErrInvalidConfig is returned when required configuration fields are
	// missing.
	ErrInvalidConfig = errors.New("voicerelay: invalid configuration")

	// ErrConnectionFailed is returned when the upstream WebSocket connection
	// cannot be established or configured.
	ErrConnectionFailed = errors.New("voicerelay: connection failed")

	// ErrNotConnected is returned by send-path operations on a session that
	// has no open upstream connection. The session state is left unchanged.
	ErrNotConnected = errors.New("voicerelay: session not connected")

	// ErrSessionNotFound is returned for an unknown session id. A missing id
	// is a normal negative result, not a fault.
	ErrSessionNotFound = errors.New("voicerelay: session not found")

	// ErrSendTimeout is returned when writing an upstream frame times out.
	ErrSendTimeout = errors.New("voicerelay: send timeout")

	// ErrInvalidEventData is returned when an upstream frame cannot be
	// parsed.
	ErrInvalidEventData = errors.New("voicerelay: invalid event data")
)

// ConfigError represents a configuration validation error.
// It identifies which configuration field is invalid.
type ConfigError struct {
	Field   string // The configuration field that is invalid
	Value   string // The invalid value (if safe to log)
	Message string // Detailed error message
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("voicerelay: invalid config field %q (value: %q): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("voicerelay: invalid config field %q: %s", e.Field, e.Message)
}

// Is implements error matching for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ConnectionError represents an upstream WebSocket connection error.
// It wraps underlying network errors with additional context.
type ConnectionError struct {
	URL       string // The WebSocket URL that failed to connect
	Operation string // The operation that failed (e.g. "dial", "configure")
	Cause     error  // The underlying error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("voicerelay: %s failed for %q: %v", e.Operation, e.URL, e.Cause)
	}
	return fmt.Sprintf("voicerelay: %s failed for %q", e.Operation, e.URL)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ConnectionError) Unwrap() error { return e.Cause }

// Is implements error matching for ConnectionError.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// SendError represents an error that occurred while writing an upstream frame.
type SendError struct {
	FrameType string // The type of frame being sent
	SessionID string // The session the frame was sent for
	Cause     error  // The underlying error
}

func (e *SendError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("voicerelay: failed to send %s frame for session %q: %v", e.FrameType, e.SessionID, e.Cause)
	}
	return fmt.Sprintf("voicerelay: failed to send %s frame: %v", e.FrameType, e.Cause)
}

// Unwrap returns the underlying error.
func (e *SendError) Unwrap() error { return e.Cause }

// IsTimeout returns true if the error was caused by a timeout.
func (e *SendError) IsTimeout() bool {
	return errors.Is(e.Cause, ErrSendTimeout)
}

// EventError represents an error in processing an upstream frame.
type EventError struct {
	EventType string // The upstream tag that caused the error, if known
	RawData   []byte // The raw JSON data (if available)
	Cause     error  // The underlying parsing error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("voicerelay: failed to process %s event: %v", e.EventType, e.Cause)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error { return e.Cause }

// Is implements error matching for EventError.
func (e *EventError) Is(target error) bool {
	return target == ErrInvalidEventData
}

// Helper functions for creating specific errors

// NewConfigError creates a new configuration error.
func NewConfigError(field, value, message string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Message: message}
}

// NewConnectionError creates a new connection error.
func NewConnectionError(url, operation string, cause error) *ConnectionError {
	return &ConnectionError{URL: url, Operation: operation, Cause: cause}
}

// NewSendError creates a new send error.
func NewSendError(frameType, sessionID string, cause error) *SendError {
	return &SendError{FrameType: frameType, SessionID: sessionID, Cause: cause}
}

// NewEventError creates a new event processing error.
func NewEventError(eventType string, rawData []byte, cause error) *EventError {
	return &EventError{EventType: eventType, RawData: rawData, Cause: cause}
}
