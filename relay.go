package voicerelay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

// sendTimeout bounds every upstream frame write.
const sendTimeout = 15 * time.Second

// maxFrameSize is the largest upstream frame the relay accepts. Audio delta
// frames carry base64 PCM16 and routinely exceed the transport's 32KB
// default.
const maxFrameSize = 10 * 1024 * 1024

// Relay is the multi-session relay engine. It owns the session registry and
// the conversation history, opens and configures upstream connections, and
// translates the upstream event stream into client-facing events.
//
// A Relay is safe for concurrent use across sessions; within one session the
// send path and the receive drain serialize through the session's lock.
type Relay struct {
	cfg      Config
	sessions *SessionManager
	history  *History
	slog     *Logger
	closed   atomic.Bool
}

// New creates a relay from cfg. The configuration is validated eagerly so a
// misconfigured deployment fails at startup rather than on first connect.
func New(cfg Config) (*Relay, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	slog := cfg.StructuredLogger
	if slog == nil && cfg.Logger != nil {
		slog = NewLoggerFromFunc(cfg.Logger)
	}
	if slog == nil {
		slog = NewLoggerFromEnv()
	}
	return &Relay{
		cfg:      cfg,
		sessions: NewSessionManager(cfg.SessionTimeout, cfg.SweepInterval, slog),
		history:  NewHistory(),
		slog:     slog,
	}, nil
}

// Sessions returns the relay's session registry.
func (r *Relay) Sessions() *SessionManager { return r.sessions }

// History returns the relay's conversation history store.
func (r *Relay) History() *History { return r.history }

// Close releases every session and stops the background sweep. Safe to call
// multiple times. Subsequent Connect calls return ErrClosed.
func (r *Relay) Close() {
	r.closed.Store(true)
	r.sessions.Close()
}

// upstreamURL derives the Voice Live WebSocket URL from the configuration.
func (r *Relay) upstreamURL() (string, error) {
	var u *url.URL
	if r.cfg.Endpoint != "" {
		parsed, err := url.Parse(r.cfg.Endpoint)
		if err != nil {
			return "", NewConfigError("Endpoint", r.cfg.Endpoint, "invalid URL format")
		}
		u = parsed
	} else {
		u = &url.URL{Scheme: "wss", Host: r.cfg.Resource + ".cognitiveservices.azure.com"}
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws" // plain HTTP, mainly for tests
	}
	u.Path = "/voice-live/realtime"
	q := u.Query()
	q.Set("api-version", r.cfg.APIVersion)
	q.Set("model", r.cfg.Model)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect opens and configures the upstream connection for a session. It is
// idempotent: any prior connection is closed first. On failure the partially
// built connection is discarded and the session is left connection-less;
// retrying is the caller's responsibility.
func (r *Relay) Connect(ctx context.Context, sessionID string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	s, err := r.sessions.GetSession(sessionID)
	if err != nil {
		return err
	}

	// Drop any previous connection before dialing a replacement.
	s.mu.Lock()
	s.teardownLocked("reconnecting")
	s.mu.Unlock()

	target, err := r.upstreamURL()
	if err != nil {
		return err
	}

	h := http.Header{}
	r.cfg.Credential.apply(h)

	dialCtx := ctx
	if r.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, r.cfg.DialTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, target, &websocket.DialOptions{HTTPHeader: h})
	if err != nil {
		return NewConnectionError(target, "dial", err)
	}
	ws.SetReadLimit(maxFrameSize)

	s.mu.Lock()
	s.teardownLocked("replaced") // a concurrent Connect may have raced us
	s.conn = ws
	s.mu.Unlock()

	if err := r.writeFrame(ctx, s, "session.update", configureFramePayload()); err != nil {
		s.mu.Lock()
		s.teardownLocked("configure failed")
		s.mu.Unlock()
		return NewConnectionError(target, "configure", err)
	}

	r.slog.Info("session_connected", map[string]any{"session_id": s.ID, "url": target})
	return nil
}

// Disconnect tears down the session's upstream connection: recording off,
// transport closed (close errors ignored), connection reference released,
// audio buffer cleared. The sequence is atomic under the session lock, so a
// concurrent send observes either a fully configured connection or none.
func (r *Relay) Disconnect(sessionID string) error {
	s, err := r.sessions.GetSession(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.teardownLocked("session ended")
	s.mu.Unlock()
	r.slog.Info("session_disconnected", map[string]any{"session_id": s.ID})
	return nil
}

// Status returns a point-in-time snapshot of the session's state.
func (r *Relay) Status(sessionID string) (SessionStatus, error) {
	s, err := r.sessions.GetSession(sessionID)
	if err != nil {
		return SessionStatus{}, err
	}
	return s.Status(), nil
}

// writeFrame marshals payload and writes it as one complete upstream text
// frame. The session lock is held across the write, serializing the send
// path and guarding the connection reference.
func (r *Relay) writeFrame(ctx context.Context, s *Session, frameType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return NewSendError(frameType, s.ID, fmt.Errorf("marshal payload: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := s.conn.Write(ctx, websocket.MessageText, b); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return NewSendError(frameType, s.ID, ErrSendTimeout)
		}
		return NewSendError(frameType, s.ID, err)
	}
	return nil
}

// SendText relays one user text message: a conversation item carrying the
// literal text, followed by a response request for text and audio output.
// The utterance is appended to the session's history with the learner label.
func (r *Relay) SendText(ctx context.Context, sessionID, text string) error {
	s, err := r.sessions.GetSession(sessionID)
	if err != nil {
		return err
	}

	item := map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	}
	if err := r.writeFrame(ctx, s, "conversation.item.create", item); err != nil {
		return err
	}
	if err := r.writeFrame(ctx, s, "response.create", responseCreatePayload()); err != nil {
		return err
	}

	r.history.AddMessage(s.ID, LearnerLabel+text)
	return nil
}

// SendAudioChunk appends a base64-encoded PCM16 chunk to the upstream input
// audio buffer. No chunk-size framing is imposed beyond the transport's own.
func (r *Relay) SendAudioChunk(ctx context.Context, sessionID, base64Audio string) error {
	s, err := r.sessions.GetSession(sessionID)
	if err != nil {
		return err
	}
	payload := map[string]any{"type": "input_audio_buffer.append", "audio": base64Audio}
	return r.writeFrame(ctx, s, "input_audio_buffer.append", payload)
}

// ClearAudioInput discards any pending upstream input audio. Used when
// recording starts so stale audio never leaks into the new turn.
func (r *Relay) ClearAudioInput(ctx context.Context, sessionID string) error {
	s, err := r.sessions.GetSession(sessionID)
	if err != nil {
		return err
	}
	return r.writeFrame(ctx, s, "input_audio_buffer.clear", map[string]any{"type": "input_audio_buffer.clear"})
}

// CommitAudioInput finalizes the current audio turn: the input buffer is
// committed and a response is requested.
func (r *Relay) CommitAudioInput(ctx context.Context, sessionID string) error {
	s, err := r.sessions.GetSession(sessionID)
	if err != nil {
		return err
	}
	if err := r.writeFrame(ctx, s, "input_audio_buffer.commit", map[string]any{"type": "input_audio_buffer.commit"}); err != nil {
		return err
	}
	return r.writeFrame(ctx, s, "response.create", responseCreatePayload())
}

// ToggleRecording flips the session's recording flag and emits the matching
// buffer frame: starting clears the upstream input buffer, stopping commits
// it and requests a response. The flip happens under the session lock before
// the send; if the session is disconnected or the send fails, the flag is
// reverted to false. Returns the new recording state.
func (r *Relay) ToggleRecording(ctx context.Context, sessionID string) (bool, error) {
	s, err := r.sessions.GetSession(sessionID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.conn == nil {
		s.isRecording = false
		s.mu.Unlock()
		return false, ErrNotConnected
	}
	recording := !s.isRecording
	s.isRecording = recording
	s.mu.Unlock()

	if recording {
		err = r.ClearAudioInput(ctx, sessionID)
	} else {
		err = r.CommitAudioInput(ctx, sessionID)
	}
	if err != nil {
		s.mu.Lock()
		s.isRecording = false
		s.mu.Unlock()
		return false, err
	}

	r.slog.Info("recording_toggled", map[string]any{"session_id": s.ID, "recording": recording})
	return recording, nil
}

// Stream drains the session's upstream connection and yields translated
// client events in arrival order. The returned channel is closed when the
// upstream connection closes, ctx is canceled, or the session disconnects;
// in every case the drain exits with a logged notice only. One malformed
// frame yields one error event and the drain continues.
func (r *Relay) Stream(ctx context.Context, sessionID string) (<-chan Event, error) {
	s, err := r.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	ch := make(chan Event, 16)
	go r.drain(ctx, s, conn, ch)
	return ch, nil
}

// drain is the receive-path loop for one session.
func (r *Relay) drain(ctx context.Context, s *Session, conn *websocket.Conn, ch chan<- Event) {
	defer close(ch)
	for {
		// Read blocks until the next complete frame; the transport
		// reassembles fragments before returning.
		typ, data, err := conn.Read(ctx)
		if err != nil {
			r.slog.Info("stream_ended", map[string]any{"session_id": s.ID, "reason": err.Error()})
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		s.touch()
		ev := r.translate(s, data)
		if ev == nil {
			continue
		}
		select {
		case ch <- *ev:
		case <-ctx.Done():
			r.slog.Info("stream_ended", map[string]any{"session_id": s.ID, "reason": "consumer canceled"})
			return
		}
	}
}

// translate decodes one upstream frame and performs the per-tag handling:
// buffer bookkeeping, history appends, WAV assembly. It returns the client
// event to emit, or nil for frames that are silently accumulated or dropped.
func (r *Relay) translate(s *Session, raw []byte) *Event {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.slog.Error("bad_event_json", map[string]any{"session_id": s.ID, "err": err.Error()})
		return &Event{Type: EventTypeError, Message: "malformed upstream frame"}
	}

	switch env.Type {
	case tagSessionCreated:
		return &Event{Type: EventSessionCreated, Message: "Voice Live session created"}

	case tagSessionUpdated:
		return &Event{Type: EventSessionUpdated, Message: "Voice Live session updated - ready for conversation"}

	case tagSpeechStarted:
		return &Event{Type: EventSpeechStarted, Message: "Speech detected"}

	case tagSpeechStopped:
		return &Event{Type: EventSpeechStopped, Message: "Speech ended"}

	case tagInputAudioCommitted:
		return &Event{Type: EventSpeechCommitted, Message: "Audio input committed"}

	case tagConversationItem:
		var e ConversationItemCreatedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return r.decodeError(s, env.Type, raw, err)
		}
		if e.Item.Role != "user" || e.Item.Type != "message" {
			return nil
		}
		return &Event{Type: EventUserMessage, Message: "User message created"}

	case tagTranscriptionCompleted:
		var e TranscriptionCompletedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return r.decodeError(s, env.Type, raw, err)
		}
		r.history.AddMessage(s.ID, LearnerLabel+e.Transcript)
		return &Event{Type: EventUserTranscribed, Text: e.Transcript}

	case tagResponseCreated:
		// A new turn begins: drop anything left from the previous one so
		// audio never bleeds across turns.
		s.mu.Lock()
		s.audioBuffer = s.audioBuffer[:0]
		s.mu.Unlock()
		return &Event{Type: EventResponseStarted, Message: "AI is generating response..."}

	case tagResponseAudioDelta:
		var e ResponseAudioDeltaEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return r.decodeError(s, env.Type, raw, err)
		}
		chunk, err := base64.StdEncoding.DecodeString(e.DeltaBase64)
		if err != nil {
			return r.decodeError(s, env.Type, raw, err)
		}
		s.mu.Lock()
		s.audioBuffer = append(s.audioBuffer, chunk...)
		s.mu.Unlock()
		return nil // silent accumulation

	case tagResponseAudioDone:
		s.mu.Lock()
		pcm := make([]byte, len(s.audioBuffer))
		copy(pcm, s.audioBuffer)
		s.mu.Unlock()

		ev := &Event{Type: EventAudioResponse, Message: "Audio response completed"}
		if len(pcm) > 0 {
			wav := EncodeWAV(pcm, DefaultSampleRate, 1, 16)
			ev.AudioData = base64.StdEncoding.EncodeToString(wav)
		}
		return ev

	case tagResponseTextDelta:
		var e ResponseTextDeltaEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return r.decodeError(s, env.Type, raw, err)
		}
		if e.Delta.Text == "" {
			return nil
		}
		return &Event{Type: EventTextDelta, Text: e.Delta.Text}

	case tagResponseDone:
		var e ResponseDoneEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return r.decodeError(s, env.Type, raw, err)
		}
		if transcript := e.Response.finalTranscript(); transcript != "" {
			r.history.AddMessage(s.ID, FamilyLabel+transcript)
		}
		return &Event{Type: EventResponseDone, Message: "Response completed"}

	case tagError:
		var e ErrorEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return r.decodeError(s, env.Type, raw, err)
		}
		return &Event{Type: EventTypeError, Error: e.Error}

	default:
		r.slog.Debug("unknown_event", map[string]any{"session_id": s.ID, "type": env.Type})
		return nil
	}
}

func (r *Relay) decodeError(s *Session, tag string, raw []byte, err error) *Event {
	ee := NewEventError(tag, raw, err)
	r.slog.Error("event_decode_failed", map[string]any{"session_id": s.ID, "err": ee.Error()})
	return &Event{Type: EventTypeError, Message: fmt.Sprintf("failed to process %s event", tag)}
}
