package voicerelay

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigErrorMatching(t *testing.T) {
	err := NewConfigError("Model", "", "cannot be empty")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("ConfigError must match ErrInvalidConfig")
	}
	if !strings.Contains(err.Error(), "Model") {
		t.Errorf("message should name the field: %v", err)
	}

	withValue := NewConfigError("DialTimeout", "-1s", "cannot be negative")
	if !strings.Contains(withValue.Error(), "-1s") {
		t.Errorf("message should include the value: %v", withValue)
	}
}

func TestConnectionErrorMatching(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewConnectionError("wss://example.test/voice-live/realtime", "dial", cause)

	if !errors.Is(err, ErrConnectionFailed) {
		t.Error("ConnectionError must match ErrConnectionFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("ConnectionError must unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "dial") {
		t.Errorf("message should name the operation: %v", err)
	}
}

func TestSendErrorTimeout(t *testing.T) {
	err := NewSendError("response.create", "sess-1", ErrSendTimeout)
	if !err.IsTimeout() {
		t.Error("IsTimeout must report a timeout cause")
	}
	if !errors.Is(err, ErrSendTimeout) {
		t.Error("SendError must unwrap to ErrSendTimeout")
	}

	other := NewSendError("response.create", "sess-1", errors.New("broken pipe"))
	if other.IsTimeout() {
		t.Error("IsTimeout must be false for non-timeout causes")
	}
}

func TestEventErrorMatching(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := NewEventError("response.done", []byte(`{"type":"response.done"`), cause)

	if !errors.Is(err, ErrInvalidEventData) {
		t.Error("EventError must match ErrInvalidEventData")
	}
	if !errors.Is(err, cause) {
		t.Error("EventError must unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "response.done") {
		t.Errorf("message should name the event type: %v", err)
	}
}
