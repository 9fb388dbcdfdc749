package voicerelay

import "encoding/json"

// envelope is used for initial JSON parsing to determine the upstream event
// type before unmarshaling into the specific event struct.
type envelope struct {
	Type string `json:"type"`
}

// Upstream event tags the relay translates. Tags outside this set are
// dropped, not rejected, for forward compatibility.
const (
	tagError                  = "error"
	tagSessionCreated         = "session.created"
	tagSessionUpdated         = "session.updated"
	tagSpeechStarted          = "input_audio_buffer.speech_started"
	tagSpeechStopped          = "input_audio_buffer.speech_stopped"
	tagInputAudioCommitted    = "input_audio_buffer.committed"
	tagConversationItem       = "conversation.item.created"
	tagTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	tagResponseCreated        = "response.created"
	tagResponseAudioDelta     = "response.audio.delta"
	tagResponseAudioDone      = "response.audio.done"
	tagResponseTextDelta      = "response.text.delta"
	tagResponseDone           = "response.done"
)

// ErrorEvent represents an error received from the Voice Live API.
type ErrorEvent struct {
	Type  string          `json:"type"`  // Always "error"
	Error json.RawMessage `json:"error"` // Upstream error payload, passed through
}

// SessionCreatedEvent is sent by the upstream when a session is established.
type SessionCreatedEvent struct {
	Type    string `json:"type"`     // Always "session.created"
	EventID string `json:"event_id"` // Unique identifier for this event
	Session struct {
		ID    string `json:"id"`    // Upstream session identifier
		Model string `json:"model"` // Model serving the session
	} `json:"session"`
}

// SessionUpdatedEvent is sent after the configure frame is accepted.
// Its arrival signals that the session is ready for conversation.
type SessionUpdatedEvent struct {
	Type    string `json:"type"`               // Always "session.updated"
	EventID string `json:"event_id,omitempty"` // Event identifier (may be empty)
	Session any    `json:"session"`            // Accepted configuration (dynamic structure)
}

// SpeechStartedEvent indicates the upstream detected the start of user speech.
type SpeechStartedEvent struct {
	Type         string `json:"type"`           // Always "input_audio_buffer.speech_started"
	EventID      string `json:"event_id"`       // Unique identifier for this event
	AudioStartMs int    `json:"audio_start_ms"` // Offset from the start of the input buffer
	ItemID       string `json:"item_id"`        // The user message item that will be created
}

// SpeechStoppedEvent indicates the upstream detected the end of user speech.
type SpeechStoppedEvent struct {
	Type       string `json:"type"`         // Always "input_audio_buffer.speech_stopped"
	EventID    string `json:"event_id"`     // Unique identifier for this event
	AudioEndMs int    `json:"audio_end_ms"` // Offset from the start of the input buffer
	ItemID     string `json:"item_id"`      // The user message item that will be created
}

// InputAudioCommittedEvent indicates the input audio buffer was committed.
type InputAudioCommittedEvent struct {
	Type           string `json:"type"`             // Always "input_audio_buffer.committed"
	EventID        string `json:"event_id"`         // Unique identifier for this event
	PreviousItemID string `json:"previous_item_id"` // The preceding conversation item
	ItemID         string `json:"item_id"`          // The user message item that will be created
}

// ConversationItemCreatedEvent indicates a conversation item was created.
type ConversationItemCreatedEvent struct {
	Type           string `json:"type"`             // Always "conversation.item.created"
	EventID        string `json:"event_id"`         // Unique identifier for this event
	PreviousItemID string `json:"previous_item_id"` // The preceding conversation item
	Item           struct {
		ID   string `json:"id"`
		Type string `json:"type"` // "message", "function_call", ...
		Role string `json:"role"` // "user", "assistant", "system"
	} `json:"item"`
}

// TranscriptionCompletedEvent carries the transcript of committed user audio.
type TranscriptionCompletedEvent struct {
	Type         string `json:"type"`          // Always "conversation.item.input_audio_transcription.completed"
	EventID      string `json:"event_id"`      // Unique identifier for this event
	ItemID       string `json:"item_id"`       // The user message item
	ContentIndex int    `json:"content_index"` // The content part containing the audio
	Transcript   string `json:"transcript"`    // The transcribed text
}

// ResponseCreatedEvent marks the start of a new response turn.
type ResponseCreatedEvent struct {
	Type     string         `json:"type"`     // Always "response.created"
	EventID  string         `json:"event_id"` // Unique identifier for this event
	Response ResponseObject `json:"response"` // The response resource
}

// ResponseAudioDeltaEvent contains incremental base64 PCM16 audio.
type ResponseAudioDeltaEvent struct {
	Type         string `json:"type"`          // Always "response.audio.delta"
	ResponseID   string `json:"response_id"`   // The response this delta belongs to
	ItemID       string `json:"item_id"`       // The content item
	OutputIndex  int    `json:"output_index"`  // Index of the output in the response
	ContentIndex int    `json:"content_index"` // Index of the content within the output
	DeltaBase64  string `json:"delta"`         // Base64-encoded PCM16 audio data
}

// ResponseAudioDoneEvent signals that a turn's audio is complete.
type ResponseAudioDoneEvent struct {
	Type         string `json:"type"`          // Always "response.audio.done"
	ResponseID   string `json:"response_id"`   // The response this delta belongs to
	ItemID       string `json:"item_id"`       // The content item
	OutputIndex  int    `json:"output_index"`  // Index of the output in the response
	ContentIndex int    `json:"content_index"` // Index of the content within the output
}

// ResponseTextDeltaEvent contains an incremental text fragment. The Voice
// Live stream nests the fragment under delta.text rather than sending a bare
// string.
type ResponseTextDeltaEvent struct {
	Type       string `json:"type"`        // Always "response.text.delta"
	ResponseID string `json:"response_id"` // The response this delta belongs to
	Delta      struct {
		Text string `json:"text"`
	} `json:"delta"`
}

// ResponseDoneEvent marks the end of a response turn and carries the final
// output items, including the spoken transcript.
type ResponseDoneEvent struct {
	Type     string         `json:"type"`     // Always "response.done"
	EventID  string         `json:"event_id"` // Unique identifier for this event
	Response ResponseObject `json:"response"` // The completed response resource
}

// ResponseObject is the response resource embedded in response.created and
// response.done frames.
type ResponseObject struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Output []OutputItem `json:"output"`
}

// OutputItem is one generated item within a response.
type OutputItem struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"` // "message", "function_call", ...
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is one content element within an output item.
type ContentPart struct {
	Type       string `json:"type"` // "audio", "text", ...
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// finalTranscript walks the response's first output item's first content
// part for the spoken transcript. An empty output or content list is a
// normal completion with no transcript, never a fault.
func (r ResponseObject) finalTranscript() string {
	if len(r.Output) == 0 {
		return ""
	}
	content := r.Output[0].Content
	if len(content) == 0 {
		return ""
	}
	if content[0].Transcript != "" {
		return content[0].Transcript
	}
	return content[0].Text
}

// Client-facing event types emitted by the relay.
const (
	EventSessionCreated  = "session_created"
	EventSessionUpdated  = "session_updated"
	EventSpeechStarted   = "speech_started"
	EventSpeechStopped   = "speech_stopped"
	EventSpeechCommitted = "speech_committed"
	EventUserMessage     = "user_message_created"
	EventUserTranscribed = "user_speech_transcribed"
	EventResponseStarted = "response_started"
	EventAudioResponse   = "audio_response"
	EventTextDelta       = "text_delta"
	EventResponseDone    = "response_completed"
	EventTypeError       = "error"
)

// Event is one client-facing event produced by the relay's receive path.
// Exactly the fields relevant to the event type are populated; the rest are
// omitted from the JSON encoding.
type Event struct {
	// Type discriminates the event; one of the Event* constants.
	Type string `json:"type"`

	// Message is a human-readable notice accompanying lifecycle events.
	Message string `json:"message,omitempty"`

	// Text carries a text fragment for text_delta events and the transcript
	// for user_speech_transcribed events.
	Text string `json:"text,omitempty"`

	// AudioData carries a base64-encoded WAV clip for audio_response events.
	AudioData string `json:"audioData,omitempty"`

	// Error carries the upstream error payload for error events.
	Error json.RawMessage `json:"error,omitempty"`
}
