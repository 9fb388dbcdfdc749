package voicerelay

import (
	"net/http"
	"time"
)

// Credential represents an authentication method for the Voice Live endpoint.
// Implementations apply the appropriate authentication headers to the
// WebSocket handshake request.
type Credential interface{ apply(h http.Header) }

// APIKey implements Credential using api-key header authentication.
// This is the most common authentication method for Voice Live resources.
type APIKey string

// apply adds the API key to the request headers using the "api-key" header.
func (k APIKey) apply(h http.Header) {
	if k != "" {
		h.Set("api-key", string(k))
	}
}

// Bearer implements Credential using OAuth2 Bearer token authentication.
// Use this when authenticating with Entra ID tokens.
type Bearer string

// apply adds the Bearer token to the Authorization header.
func (b Bearer) apply(h http.Header) {
	if b != "" {
		h.Set("Authorization", "Bearer "+string(b))
	}
}

// Config holds all configuration options for creating a Relay.
// All fields marked as required must be provided.
type Config struct {
	// Resource is the name of the AI Foundry resource hosting the Voice Live
	// endpoint. The upstream URL is derived as
	// wss://{Resource}.cognitiveservices.azure.com/voice-live/realtime.
	// Required: Yes
	Resource string

	// Model is the model identifier passed on the upstream query string.
	// Required: Yes
	Model string

	// APIVersion specifies the Voice Live API version to use.
	// Required: Yes
	APIVersion string

	// Credential provides authentication for the upstream handshake.
	// Use APIKey for key-based auth or Bearer for token-based auth.
	// Required: Yes
	Credential Credential

	// DialTimeout sets the maximum time to wait for the upstream WebSocket
	// handshake. If zero, no timeout is applied.
	// Recommended: 15-30 seconds
	// Required: No
	DialTimeout time.Duration

	// Endpoint overrides the derived upstream URL entirely. Intended for
	// tests pointing at a local mock server (http:// or ws:// scheme).
	// Required: No
	Endpoint string

	// Logger is called for significant events and can be used for debugging
	// and monitoring. The fields parameter carries structured data for each
	// event.
	// Required: No (if nil, no logging occurs)
	Logger func(event string, fields map[string]any)

	// StructuredLogger provides leveled structured logging. If both Logger
	// and StructuredLogger are provided, StructuredLogger takes precedence.
	// Required: No
	StructuredLogger *Logger

	// SessionTimeout is the idle duration after which a session is reclaimed
	// by the expiry sweep. Defaults to 30 minutes.
	SessionTimeout time.Duration

	// SweepInterval is how often the background expiry sweep runs.
	// Defaults to 5 minutes.
	SweepInterval time.Duration
}

// ValidateConfig checks that every required configuration field is present.
func ValidateConfig(cfg Config) error {
	if cfg.Resource == "" && cfg.Endpoint == "" {
		return NewConfigError("Resource", "", "cannot be empty")
	}
	if cfg.Model == "" {
		return NewConfigError("Model", "", "cannot be empty")
	}
	if cfg.APIVersion == "" {
		return NewConfigError("APIVersion", "", "cannot be empty")
	}
	if cfg.Credential == nil {
		return NewConfigError("Credential", "", "cannot be nil")
	}
	if cfg.DialTimeout < 0 {
		return NewConfigError("DialTimeout", cfg.DialTimeout.String(), "cannot be negative")
	}
	return nil
}
