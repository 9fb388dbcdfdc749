package voicerelay

import (
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Session is the unit of relay state: one upstream connection, one
// audio-accumulation buffer, one recording flag, and activity timestamps.
//
// All mutable fields (conn, audioBuffer, isRecording) are guarded by mu.
// The send path and the receive drain both serialize through it; no two
// operations against the same session race. Sessions are created by
// SessionManager.CreateSession and must not be constructed directly.
type Session struct {
	// ID is the opaque unique session identifier, immutable after creation.
	ID string

	// CreatedAt records when the session was created.
	CreatedAt time.Time

	mu           sync.Mutex
	conn         *websocket.Conn // exclusively owned; at most one live conn
	audioBuffer  []byte          // accumulates one turn's audio deltas
	isRecording  bool
	lastActivity time.Time
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, CreatedAt: now, lastActivity: now}
}

// touch refreshes the session's last-activity timestamp. Called on every
// externally observable operation against the session.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// expired reports whether the session has been idle longer than timeout.
func (s *Session) expired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity) > timeout
}

// teardownLocked closes any open upstream connection and resets the mutable
// fields as one atomic sequence. Callers must hold s.mu. Close errors are
// ignored; a stuck socket never blocks reclamation.
func (s *Session) teardownLocked(reason string) {
	s.isRecording = false
	if s.conn != nil {
		_ = s.conn.Close(websocket.StatusNormalClosure, reason)
		s.conn = nil
	}
	s.audioBuffer = nil
}

// SessionStatus is a point-in-time snapshot of a session's externally
// observable state.
type SessionStatus struct {
	SessionID    string    `json:"sessionId"`
	Connected    bool      `json:"isConnected"`
	Recording    bool      `json:"isRecording"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Status returns a snapshot of the session's state.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStatus{
		SessionID:    s.ID,
		Connected:    s.conn != nil,
		Recording:    s.isRecording,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.lastActivity,
	}
}
